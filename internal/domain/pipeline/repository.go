package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// PipelineRepository defines the interface for pipeline persistence.
// Implementations are bound to one tenant.
type PipelineRepository interface {
	// FindByID returns a pipeline with its stages ordered by position
	FindByID(ctx context.Context, id uuid.UUID) (*Pipeline, error)

	// FindDefault returns the tenant default pipeline
	FindDefault(ctx context.Context) (*Pipeline, error)

	// FindStage returns a single stage
	FindStage(ctx context.Context, stageID uuid.UUID) (*Stage, error)

	// List returns every pipeline of the tenant
	List(ctx context.Context) ([]Pipeline, error)

	// Save creates or updates a pipeline row
	Save(ctx context.Context, pipeline *Pipeline) error

	// SaveStage creates or updates a stage
	SaveStage(ctx context.Context, stage *Stage) error

	// ClearDefault removes the default flag from every pipeline except keepID
	ClearDefault(ctx context.Context, keepID uuid.UUID) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID returns an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindForUpdate returns the order locked until the transaction ends
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// Save creates or updates an order and its lines
	Save(ctx context.Context, order *Order) error

	// DeleteItem removes an order line
	DeleteItem(ctx context.Context, orderID, lineID uuid.UUID) error

	// NextDisplayID returns the next per-tenant order serial
	NextDisplayID(ctx context.Context) (int64, error)
}
