package strategy

import (
	"github.com/erp/stockcore/internal/domain/shared/strategy"
	"github.com/erp/stockcore/internal/infrastructure/strategy/batch"
)

// NewRegistryWithDefaults creates a registry holding fifo and fefo, with fifo as
// the default.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()
	for _, s := range []strategy.BatchSelector{
		batch.NewFIFO(),
		batch.NewFEFO(),
	} {
		if err := r.RegisterBatchStrategy(s); err != nil {
			return nil, err
		}
	}
	if err := r.SetDefaultBatchStrategy("fifo"); err != nil {
		return nil, err
	}
	return r, nil
}
