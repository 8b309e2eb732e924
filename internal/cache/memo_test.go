package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runPart struct{ run, part int }

func TestMemo_LoadOnce(t *testing.T) {
	m := NewMemo[runPart, []int64]()
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) ([]int64, error) {
		calls.Add(1)
		return []int64{1, 2, 3}, nil
	}

	v, loaded, err := m.Load(ctx, runPart{0, 1}, load)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, []int64{1, 2, 3}, v)

	v, loaded, err = m.Load(ctx, runPart{0, 1}, load)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, []int64{1, 2, 3}, v)

	_, _, err = m.Load(ctx, runPart{1, 1}, load)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, m.Len())
}

func TestMemo_ErrorsAreNotStored(t *testing.T) {
	m := NewMemo[int, string]()
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := m.Load(ctx, 7, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	_, ok := m.Get(7)
	assert.False(t, ok)

	v, loaded, err := m.Load(ctx, 7, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "ok", v)
}

func TestMemo_ConcurrentFirstAccess(t *testing.T) {
	m := NewMemo[int, int]()
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := m.Load(ctx, 1, load)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, int32(1), calls.Load())
	_, ok := m.Get(1)
	assert.True(t, ok)
}

func TestMemo_CancelledCallerDoesNotFailOthers(t *testing.T) {
	m := NewMemo[int, string]()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var loadErr atomic.Value
	load := func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		loadErr.Store(fmt.Sprint(ctx.Err()))
		return "meta", nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := m.Load(ctxA, 3, load)
		errA <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, _, err := m.Load(context.Background(), 3, load)
		resB <- result{v, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "meta", b.v)
	assert.Equal(t, "<nil>", loadErr.Load())
	assert.Equal(t, int32(1), calls.Load())

	// The value was stored despite the first caller giving up.
	v, ok := m.Get(3)
	assert.True(t, ok)
	assert.Equal(t, "meta", v)
}
