package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository is the append-only ledger store. It exposes no update or
// delete, and the SQL migrations revoke both on the table.
type GormMovementRepository struct {
	tenantRepository
}

// NewGormMovementRepository creates a movement repository bound to a tenant
func NewGormMovementRepository(db *gorm.DB, tenantID uuid.UUID) *GormMovementRepository {
	return &GormMovementRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// Append writes one immutable movement
func (r *GormMovementRepository) Append(ctx context.Context, movement *inventory.StockMovement) error {
	if err := r.owns(movement.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Create(movement).Error)
}

// FindByID returns a movement
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.scoped(ctx).Where("id = ?", id).First(&movement).Error; err != nil {
		return nil, translateError(err)
	}
	return &movement, nil
}

// ListByItemLocation returns the movements of an item at a location in ledger order
func (r *GormMovementRepository) ListByItemLocation(ctx context.Context, itemID, locationID uuid.UUID) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	err := r.scoped(ctx).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, translateError(err)
	}
	return movements, nil
}

// ListByOrder returns the movements linked to an order
func (r *GormMovementRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	err := r.scoped(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, translateError(err)
	}
	return movements, nil
}

// ListKeys returns every (item, location) pair that has movements
func (r *GormMovementRepository) ListKeys(ctx context.Context) ([]inventory.LevelKey, error) {
	var keys []inventory.LevelKey
	err := r.scoped(ctx).
		Model(&inventory.StockMovement{}).
		Distinct("item_id", "location_id").
		Order("item_id, location_id").
		Scan(&keys).Error
	if err != nil {
		return nil, translateError(err)
	}
	return keys, nil
}

var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
