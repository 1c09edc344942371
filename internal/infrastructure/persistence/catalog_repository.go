package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	tenantRepository
}

// NewGormItemRepository creates an item repository bound to a tenant
func NewGormItemRepository(db *gorm.DB, tenantID uuid.UUID) *GormItemRepository {
	return &GormItemRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// Snapshot returns the catalog view copied onto order lines
func (r *GormItemRepository) Snapshot(ctx context.Context, itemID uuid.UUID) (catalog.ItemSnapshot, error) {
	item, err := r.FindByID(ctx, itemID)
	if err != nil {
		return catalog.ItemSnapshot{}, err
	}
	return item.Snapshot(), nil
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.scoped(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// FindBySKU finds an item by its SKU
func (r *GormItemRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Item, error) {
	var item catalog.Item
	if err := r.scoped(ctx).Where("sku = ?", sku).First(&item).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// FindByIDs finds multiple items by their IDs. Unknown IDs are skipped.
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Item, error) {
	if len(ids) == 0 {
		return []catalog.Item{}, nil
	}
	var items []catalog.Item
	if err := r.scoped(ctx).Where("id IN ?", ids).Order("sku").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// ExistsBySKU checks if an item with the given SKU exists
func (r *GormItemRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.scoped(ctx).Model(&catalog.Item{}).Where("sku = ?", sku).Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *catalog.Item) error {
	if err := r.owns(item.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(item).Error)
}

// GormCompositionRepository implements CompositionRepository using GORM
type GormCompositionRepository struct {
	tenantRepository
}

// NewGormCompositionRepository creates a composition repository bound to a tenant
func NewGormCompositionRepository(db *gorm.DB, tenantID uuid.UUID) *GormCompositionRepository {
	return &GormCompositionRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// ListByParent returns the children of an item
func (r *GormCompositionRepository) ListByParent(ctx context.Context, parentID uuid.UUID) ([]catalog.Composition, error) {
	var compositions []catalog.Composition
	err := r.scoped(ctx).
		Where("parent_item_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&compositions).Error
	if err != nil {
		return nil, translateError(err)
	}
	return compositions, nil
}

// Save creates or updates a composition
func (r *GormCompositionRepository) Save(ctx context.Context, composition *catalog.Composition) error {
	if err := r.owns(composition.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(composition).Error)
}

// Delete removes a parent/child link
func (r *GormCompositionRepository) Delete(ctx context.Context, parentID, childID uuid.UUID) error {
	result := r.scoped(ctx).
		Where("parent_item_id = ? AND child_item_id = ?", parentID, childID).
		Delete(&catalog.Composition{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormLocationRepository implements LocationRepository using GORM
type GormLocationRepository struct {
	tenantRepository
}

// NewGormLocationRepository creates a location repository bound to a tenant
func NewGormLocationRepository(db *gorm.DB, tenantID uuid.UUID) *GormLocationRepository {
	return &GormLocationRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// FindByID finds a location by its ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Location, error) {
	var location catalog.Location
	if err := r.scoped(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		return nil, translateError(err)
	}
	return &location, nil
}

// FirstWarehouse returns the earliest created warehouse of the tenant
func (r *GormLocationRepository) FirstWarehouse(ctx context.Context) (*catalog.Location, error) {
	var location catalog.Location
	err := r.scoped(ctx).
		Where("is_warehouse = ?", true).
		Order("created_at ASC, id ASC").
		First(&location).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &location, nil
}

// Save creates or updates a location
func (r *GormLocationRepository) Save(ctx context.Context, location *catalog.Location) error {
	if err := r.owns(location.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(location).Error)
}

var (
	_ catalog.ItemRepository        = (*GormItemRepository)(nil)
	_ catalog.CompositionRepository = (*GormCompositionRepository)(nil)
	_ catalog.LocationRepository    = (*GormLocationRepository)(nil)
)
