package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/shared/strategy"
)

// StrategyRegistry holds the batch policies an outgoing movement can be consumed with.
// One of them is the default used when ledger.batch_policy is empty.
type StrategyRegistry struct {
	mu           sync.RWMutex
	batch        map[string]strategy.BatchSelector
	defaultBatch string
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{batch: make(map[string]strategy.BatchSelector)}
}

// RegisterBatchStrategy adds a batch policy under its name
func (r *StrategyRegistry) RegisterBatchStrategy(s strategy.BatchSelector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.batch[name]; exists {
		return fmt.Errorf("%w: batch policy %q already registered", shared.ErrAlreadyExists, name)
	}
	r.batch[name] = s
	return nil
}

// GetBatchStrategy returns the named batch policy, or the default one for ""
func (r *StrategyRegistry) GetBatchStrategy(name string) (strategy.BatchSelector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if r.defaultBatch == "" {
			return nil, fmt.Errorf("%w: no default batch policy", shared.ErrNotFound)
		}
		name = r.defaultBatch
	}
	s, exists := r.batch[name]
	if !exists {
		return nil, fmt.Errorf("%w: batch policy %q (known: %v)", shared.ErrNotFound, name, r.namesLocked())
	}
	return s, nil
}

// ListBatchStrategies returns the registered policy names in order
func (r *StrategyRegistry) ListBatchStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *StrategyRegistry) namesLocked() []string {
	names := make([]string, 0, len(r.batch))
	for name := range r.batch {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultBatchStrategy makes a registered policy the default
func (r *StrategyRegistry) SetDefaultBatchStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batch[name]; !exists {
		return fmt.Errorf("%w: batch policy %q", shared.ErrNotFound, name)
	}
	r.defaultBatch = name
	return nil
}

// DefaultBatchStrategy returns the default policy name, or ""
func (r *StrategyRegistry) DefaultBatchStrategy() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultBatch
}
