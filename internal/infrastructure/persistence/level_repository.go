package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLevelRepository implements LevelRepository using GORM
type GormLevelRepository struct {
	tenantRepository
}

// NewGormLevelRepository creates a level repository bound to a tenant
func NewGormLevelRepository(db *gorm.DB, tenantID uuid.UUID) *GormLevelRepository {
	return &GormLevelRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// Find returns the level for an item at a location
func (r *GormLevelRepository) Find(ctx context.Context, itemID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	return r.find(r.scoped(ctx), itemID, locationID)
}

// FindForUpdate returns the level with a row lock
func (r *GormLevelRepository) FindForUpdate(ctx context.Context, itemID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	return r.find(r.locked(ctx), itemID, locationID)
}

func (r *GormLevelRepository) find(db *gorm.DB, itemID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	if err := db.Where("item_id = ? AND location_id = ?", itemID, locationID).First(&level).Error; err != nil {
		return nil, translateError(err)
	}
	return &level, nil
}

// GetOrCreateForUpdate returns the locked level, inserting an empty one first when
// the (item, location) has never been moved. A concurrent insert wins silently and
// its row is locked instead.
func (r *GormLevelRepository) GetOrCreateForUpdate(ctx context.Context, itemID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	level, err := r.FindForUpdate(ctx, itemID, locationID)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return level, err
	}

	fresh, err := inventory.NewInventoryLevel(r.tenantID, itemID, locationID)
	if err != nil {
		return nil, err
	}
	if err := r.scoped(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, translateError(err)
	}
	return r.FindForUpdate(ctx, itemID, locationID)
}

// Save persists level changes
func (r *GormLevelRepository) Save(ctx context.Context, level *inventory.InventoryLevel) error {
	if err := r.owns(level.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(level).Error)
}

// List returns every level of the tenant
func (r *GormLevelRepository) List(ctx context.Context) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.scoped(ctx).Order("item_id, location_id").Find(&levels).Error; err != nil {
		return nil, translateError(err)
	}
	return levels, nil
}

var _ inventory.LevelRepository = (*GormLevelRepository)(nil)
