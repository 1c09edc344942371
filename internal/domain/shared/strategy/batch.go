// Package strategy holds the pluggable policies of the ledger
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is a candidate batch with the quantity still on hand
type Batch struct {
	ID          uuid.UUID
	BatchNumber string
	Position    string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Pick is the quantity an outgoing movement takes from one batch
type Pick struct {
	BatchID     uuid.UUID
	BatchNumber string
	Position    string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
}

// SelectionRequest asks for Quantity as of a point in time
type SelectionRequest struct {
	Quantity decimal.Decimal
	AsOf     time.Time
}

// Selection is the outcome of a selector: the picks in consumption order, their sum
// and what the candidates could not cover.
type Selection struct {
	Picks     []Pick
	Taken     decimal.Decimal
	Shortfall decimal.Decimal
}

// Satisfied reports whether the picks cover the requested quantity
func (s Selection) Satisfied() bool {
	return !s.Shortfall.IsPositive()
}

// BatchSelector decides which batches an outgoing movement without a pinned batch
// consumes. The same candidates must always yield the same picks.
type BatchSelector interface {
	// Name is the value of ledger.batch_policy
	Name() string
	Description() string
	Select(ctx context.Context, req SelectionRequest, candidates []Batch) (Selection, error)
	ConsidersExpiry() bool
}
