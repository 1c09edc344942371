package cache

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
)

// MemoryIdempotencyStore keeps processed keys in process memory. Keys leave in
// expiry order through a min-heap, so a sweep only touches what has expired.
// Replays are only detected on the instance that saw the first request.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	queue   expiryQueue
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a MemoryIdempotencyStore
type MemoryOption func(*MemoryIdempotencyStore)

// WithClock overrides the clock used for expiry
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryIdempotencyStore) { s.now = now }
}

// NewMemoryIdempotencyStore creates a store that evicts expired keys every
// sweepEvery. With a non-positive interval keys are only evicted on write.
func NewMemoryIdempotencyStore(sweepEvery time.Duration, opts ...MemoryOption) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sweepEvery <= 0 {
		close(s.done)
		return s
	}
	go s.run(sweepEvery)
	return s
}

// MarkProcessed records key until ttl elapses. It reports false while an earlier
// mark of the same key is still live.
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)
	if _, live := s.expires[key]; live {
		return false, nil
	}
	at := now.Add(ttl)
	s.expires[key] = at
	heap.Push(&s.queue, expiry{key: key, at: at})
	return true, nil
}

// IsProcessed reports whether key holds a live mark
func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.expires[key]
	return ok && s.now().Before(at), nil
}

// Len returns the number of keys not evicted yet
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

// Close stops the sweeper. It may be called more than once.
func (s *MemoryIdempotencyStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryIdempotencyStore) run(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
}

// evictLocked pops every queue head that is due. A popped entry whose key was
// marked again later is left alone in the map.
func (s *MemoryIdempotencyStore) evictLocked(now time.Time) {
	for s.queue.Len() > 0 && !now.Before(s.queue[0].at) {
		e := heap.Pop(&s.queue).(expiry)
		if at, ok := s.expires[e.key]; ok && at.Equal(e.at) {
			delete(s.expires, e.key)
		}
	}
}

type expiry struct {
	key string
	at  time.Time
}

// expiryQueue is a container/heap of expiries, earliest first
type expiryQueue []expiry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q expiryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x any)        { *q = append(*q, x.(expiry)) }
func (q *expiryQueue) Pop() any {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
