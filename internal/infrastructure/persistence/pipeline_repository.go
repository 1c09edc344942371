package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func stagesByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func linesByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// GormPipelineRepository implements PipelineRepository using GORM
type GormPipelineRepository struct {
	tenantRepository
}

// NewGormPipelineRepository creates a pipeline repository bound to a tenant
func NewGormPipelineRepository(db *gorm.DB, tenantID uuid.UUID) *GormPipelineRepository {
	return &GormPipelineRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// FindByID returns a pipeline with its stages ordered by position
func (r *GormPipelineRepository) FindByID(ctx context.Context, id uuid.UUID) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	err := r.scoped(ctx).
		Preload("Stages", stagesByPosition).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// FindDefault returns the tenant default pipeline
func (r *GormPipelineRepository) FindDefault(ctx context.Context) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	err := r.scoped(ctx).
		Preload("Stages", stagesByPosition).
		Where("is_default = ?", true).
		First(&p).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// FindStage returns a single stage
func (r *GormPipelineRepository) FindStage(ctx context.Context, stageID uuid.UUID) (*pipeline.Stage, error) {
	var stage pipeline.Stage
	if err := r.scoped(ctx).Where("id = ?", stageID).First(&stage).Error; err != nil {
		return nil, translateError(err)
	}
	return &stage, nil
}

// List returns every pipeline of the tenant
func (r *GormPipelineRepository) List(ctx context.Context) ([]pipeline.Pipeline, error) {
	var pipelines []pipeline.Pipeline
	err := r.scoped(ctx).
		Preload("Stages", stagesByPosition).
		Order("created_at ASC, id ASC").
		Find(&pipelines).Error
	if err != nil {
		return nil, translateError(err)
	}
	return pipelines, nil
}

// Save creates or updates the pipeline row. Stages are written through SaveStage.
func (r *GormPipelineRepository) Save(ctx context.Context, p *pipeline.Pipeline) error {
	if err := r.owns(p.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Omit(clause.Associations).Save(p).Error)
}

// SaveStage creates or updates a stage
func (r *GormPipelineRepository) SaveStage(ctx context.Context, stage *pipeline.Stage) error {
	if err := r.owns(stage.TenantID); err != nil {
		return err
	}
	return translateError(r.scoped(ctx).Save(stage).Error)
}

// ClearDefault removes the default flag from every pipeline except keepID
func (r *GormPipelineRepository) ClearDefault(ctx context.Context, keepID uuid.UUID) error {
	err := r.scoped(ctx).
		Model(&pipeline.Pipeline{}).
		Where("id <> ? AND is_default = ?", keepID, true).
		Update("is_default", false).Error
	return translateError(err)
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	tenantRepository
}

// NewGormOrderRepository creates an order repository bound to a tenant
func NewGormOrderRepository(db *gorm.DB, tenantID uuid.UUID) *GormOrderRepository {
	return &GormOrderRepository{tenantRepository: newTenantRepository(db, tenantID)}
}

// FindByID returns an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*pipeline.Order, error) {
	return r.find(r.scoped(ctx), id)
}

// FindForUpdate returns the order locked until the transaction ends. Lines are read
// without a lock; every line write goes through the locked order.
func (r *GormOrderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*pipeline.Order, error) {
	return r.find(r.locked(ctx), id)
}

func (r *GormOrderRepository) find(db *gorm.DB, id uuid.UUID) (*pipeline.Order, error) {
	var order pipeline.Order
	if err := db.Preload("Items", linesByCreation).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// Save creates or updates an order and its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *pipeline.Order) error {
	if err := r.owns(order.TenantID); err != nil {
		return err
	}
	if err := r.scoped(ctx).Omit(clause.Associations).Save(order).Error; err != nil {
		return translateError(err)
	}
	for i := range order.Items {
		line := &order.Items[i]
		if err := r.owns(line.TenantID); err != nil {
			return err
		}
		if err := r.scoped(ctx).Save(line).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

// DeleteItem removes an order line
func (r *GormOrderRepository) DeleteItem(ctx context.Context, orderID, lineID uuid.UUID) error {
	err := r.scoped(ctx).
		Where("order_id = ? AND id = ?", orderID, lineID).
		Delete(&pipeline.OrderItem{}).Error
	return translateError(err)
}

// NextDisplayID returns the next per-tenant order serial. Two concurrent callers can
// read the same value; the unique (tenant_id, display_id) index rejects the loser
// and serializable isolation turns that into a retryable conflict.
func (r *GormOrderRepository) NextDisplayID(ctx context.Context) (int64, error) {
	var last int64
	err := r.scoped(ctx).
		Model(&pipeline.Order{}).
		Select("COALESCE(MAX(display_id), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, translateError(err)
	}
	return last + 1, nil
}

var (
	_ pipeline.PipelineRepository = (*GormPipelineRepository)(nil)
	_ pipeline.OrderRepository    = (*GormOrderRepository)(nil)
)
