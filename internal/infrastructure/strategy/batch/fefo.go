package batch

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared/strategy"
)

// FEFO consumes the batch that expires first. Batches without an expiry date go
// last. Expired batches stay eligible and, expiring earliest, leave first.
type FEFO struct{}

// NewFEFO creates the fefo selector
func NewFEFO() *FEFO { return &FEFO{} }

func (*FEFO) Name() string { return "fefo" }

func (*FEFO) Description() string {
	return "first expired first out: earliest expiry first, undated batches last"
}

func (*FEFO) ConsidersExpiry() bool { return true }

// Select takes req.Quantity from the candidates in expiry order
func (*FEFO) Select(_ context.Context, req strategy.SelectionRequest, candidates []strategy.Batch) (strategy.Selection, error) {
	return take(onHand(candidates, byExpiry), req.Quantity), nil
}

func byExpiry(a, b strategy.Batch) int {
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt == nil:
	case a.ExpiresAt == nil:
		return 1
	case b.ExpiresAt == nil:
		return -1
	default:
		if c := a.ExpiresAt.Compare(*b.ExpiresAt); c != 0 {
			return c
		}
	}
	return byReceipt(a, b)
}
