package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	tenantRepository
}

// NewGormBatchRepository creates a batch repository bound to a tenant
func NewGormBatchRepository(db *gorm.DB, tenantID uuid.UUID) *GormBatchRepository {
	return &GormBatchRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// FindByKeyForUpdate returns the locked batch with the given key
func (r *GormBatchRepository) FindByKeyForUpdate(ctx context.Context, itemID, locationID uuid.UUID, key inventory.BatchKey) (*inventory.InventoryBatch, error) {
	key = key.Normalize()
	var batch inventory.InventoryBatch
	err := r.locked(ctx).
		Where("item_id = ? AND location_id = ? AND batch_number = ? AND position = ?", itemID, locationID, key.Number, key.Position).
		First(&batch).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &batch, nil
}

// ListAvailableForUpdate returns locked batches holding stock, oldest first
func (r *GormBatchRepository) ListAvailableForUpdate(ctx context.Context, itemID, locationID uuid.UUID) ([]inventory.InventoryBatch, error) {
	var batches []inventory.InventoryBatch
	err := r.locked(ctx).
		Where("item_id = ? AND location_id = ? AND quantity > 0", itemID, locationID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, translateError(err)
	}
	return batches, nil
}

// ListByItemLocation returns every batch including empty ones, oldest first
func (r *GormBatchRepository) ListByItemLocation(ctx context.Context, itemID, locationID uuid.UUID) ([]inventory.InventoryBatch, error) {
	var batches []inventory.InventoryBatch
	err := r.scoped(ctx).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, translateError(err)
	}
	return batches, nil
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.InventoryBatch) error {
	if err := r.owns(batch.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(batch).Error)
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
