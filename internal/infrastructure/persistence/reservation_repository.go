package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	tenantRepository
}

// NewGormReservationRepository creates a reservation repository bound to a tenant
func NewGormReservationRepository(db *gorm.DB, tenantID uuid.UUID) *GormReservationRepository {
	return &GormReservationRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// FindForUpdate returns the locked reservation
func (r *GormReservationRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	if err := r.locked(ctx).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, translateError(err)
	}
	return &reservation, nil
}

// ListByOrder returns every reservation of an order in creation order
func (r *GormReservationRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.Reservation, error) {
	var reservations []inventory.Reservation
	err := r.scoped(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reservations, nil
}

// Save creates or updates a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	if err := r.owns(reservation.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(reservation).Error)
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
