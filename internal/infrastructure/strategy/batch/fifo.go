// Package batch provides the batch selectors of the ledger
package batch

import (
	"cmp"
	"context"
	"slices"

	"github.com/erp/stockcore/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FIFO consumes the oldest batch first
type FIFO struct{}

// NewFIFO creates the fifo selector
func NewFIFO() *FIFO { return &FIFO{} }

func (*FIFO) Name() string { return "fifo" }

func (*FIFO) Description() string {
	return "first in first out: oldest batch first"
}

func (*FIFO) ConsidersExpiry() bool { return false }

// Select takes req.Quantity from the candidates in receipt order
func (*FIFO) Select(_ context.Context, req strategy.SelectionRequest, candidates []strategy.Batch) (strategy.Selection, error) {
	return take(onHand(candidates, byReceipt), req.Quantity), nil
}

// byReceipt orders by creation time. Equal timestamps fall back to the id so the
// order never depends on the input order.
func byReceipt(a, b strategy.Batch) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// onHand returns the candidates with stock left, sorted by order
func onHand(candidates []strategy.Batch, order func(a, b strategy.Batch) int) []strategy.Batch {
	out := slices.DeleteFunc(slices.Clone(candidates), func(b strategy.Batch) bool {
		return !b.Quantity.IsPositive()
	})
	slices.SortStableFunc(out, order)
	return out
}

// take walks the sorted batches until quantity is covered or they run out
func take(sorted []strategy.Batch, quantity decimal.Decimal) strategy.Selection {
	sel := strategy.Selection{Taken: decimal.Zero, Shortfall: quantity}
	for _, b := range sorted {
		if !sel.Shortfall.IsPositive() {
			break
		}
		qty := decimal.Min(sel.Shortfall, b.Quantity)
		sel.Picks = append(sel.Picks, strategy.Pick{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Position:    b.Position,
			Quantity:    qty,
			UnitCost:    b.UnitCost,
		})
		sel.Taken = sel.Taken.Add(qty)
		sel.Shortfall = sel.Shortfall.Sub(qty)
	}
	return sel
}
