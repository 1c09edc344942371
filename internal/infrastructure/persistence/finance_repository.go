package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTitleRepository implements TitleRepository using GORM
type GormTitleRepository struct {
	tenantRepository
}

// NewGormTitleRepository creates a title repository bound to a tenant
func NewGormTitleRepository(db *gorm.DB, tenantID uuid.UUID) *GormTitleRepository {
	return &GormTitleRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// Save creates or updates a title
func (r *GormTitleRepository) Save(ctx context.Context, title *finance.Title) error {
	if err := r.owns(title.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(title).Error)
}

// FindByID returns a title
func (r *GormTitleRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Title, error) {
	var title finance.Title
	if err := r.scoped(ctx).Where("id = ?", id).First(&title).Error; err != nil {
		return nil, translateError(err)
	}
	return &title, nil
}

// ListByOrder returns the titles raised for an order
func (r *GormTitleRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]finance.Title, error) {
	var titles []finance.Title
	err := r.scoped(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&titles).Error
	if err != nil {
		return nil, translateError(err)
	}
	return titles, nil
}

// ExistsForOrder reports whether a title of the kind exists for the order
func (r *GormTitleRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID, kind finance.TitleKind) (bool, error) {
	var count int64
	err := r.scoped(ctx).
		Model(&finance.Title{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// GormTriggerRecordRepository implements TriggerRecordRepository using GORM
type GormTriggerRecordRepository struct {
	tenantRepository
}

// NewGormTriggerRecordRepository creates a trigger record repository bound to a tenant
func NewGormTriggerRecordRepository(db *gorm.DB, tenantID uuid.UUID) *GormTriggerRecordRepository {
	return &GormTriggerRecordRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// Exists reports whether the stage already triggered for the order
func (r *GormTriggerRecordRepository) Exists(ctx context.Context, orderID, stageID uuid.UUID) (bool, error) {
	var count int64
	err := r.scoped(ctx).
		Model(&finance.TriggerRecord{}).
		Where("order_id = ? AND stage_id = ?", orderID, stageID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Create inserts a record; the unique (tenant, order, stage) key rejects duplicates
func (r *GormTriggerRecordRepository) Create(ctx context.Context, record *finance.TriggerRecord) error {
	if err := r.owns(record.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Create(record).Error)
}

var (
	_ finance.TitleRepository         = (*GormTitleRepository)(nil)
	_ finance.TriggerRecordRepository = (*GormTriggerRecordRepository)(nil)
)
