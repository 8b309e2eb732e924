package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo is a load-once cache of immutable values.
//
// A value is stored only after its loader succeeds. Concurrent first
// requests for the same key share one load. Entries are never evicted.
type Memo[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	group singleflight.Group
}

// NewMemo creates an empty Memo.
func NewMemo[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{items: make(map[K]V)}
}

// Get returns the stored value for key without loading.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Load returns the stored value for key, calling load on first request.
// The second return reports whether this call performed the load.
//
// Callers waiting on the same key each honor their own ctx. The shared load
// runs with ctx's values but without its cancellation, so one caller giving
// up does not fail the others.
func (m *Memo[K, V]) Load(ctx context.Context, key K, load func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := m.Get(key); ok {
		return v, false, nil
	}
	if err := ctx.Err(); err != nil {
		var zero V
		return zero, false, err
	}

	loaded := false
	ch := m.group.DoChan(fmt.Sprint(key), func() (any, error) {
		// Another caller may have finished between Get and DoChan.
		if v, ok := m.Get(key); ok {
			return v, nil
		}

		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.items[key] = v
		m.mu.Unlock()

		loaded = true
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), loaded, nil
	}
}

// Len returns the number of stored values.
func (m *Memo[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
