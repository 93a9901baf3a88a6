package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource adapts a slice into a Source.
func sliceSource[I any](items []I) Source[I] {
	i := 0
	return func(context.Context) (I, bool, error) {
		if i >= len(items) {
			var zero I
			return zero, false, nil
		}
		item := items[i]
		i++
		return item, true, nil
	}
}

func collectSink[O any](out *[]O) Sink[O] {
	return func(o O) error {
		*out = append(*out, o)
		return nil
	}
}

func TestRun_OutputOrderMatchesInputOrder(t *testing.T) {
	inputs := make([]int, 50)
	for i := range inputs {
		inputs[i] = i
	}

	// Random per-unit delays force completions far out of admission order.
	var got []int
	err := Run(context.Background(), Options{Workers: 8},
		sliceSource(inputs),
		func(_ context.Context, in int) (int, error) {
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return in * 2, nil
		},
		collectSink(&got),
	)
	require.NoError(t, err)

	require.Len(t, got, len(inputs))
	for i, out := range got {
		assert.Equal(t, i*2, out)
	}
}

func TestRun_SerialWhenOneWorker(t *testing.T) {
	var concurrent, peak int64

	inputs := []string{"a", "b", "c", "d"}
	var got []string
	err := Run(context.Background(), Options{Workers: 1},
		sliceSource(inputs),
		func(_ context.Context, in string) (string, error) {
			cur := atomic.AddInt64(&concurrent, 1)
			defer atomic.AddInt64(&concurrent, -1)
			if cur > atomic.LoadInt64(&peak) {
				atomic.StoreInt64(&peak, cur)
			}
			return in, nil
		},
		collectSink(&got),
	)
	require.NoError(t, err)
	assert.Equal(t, inputs, got)
	assert.EqualValues(t, 1, peak)
}

func TestRun_ConcurrencyNeverExceedsPool(t *testing.T) {
	const workers = 4

	var mu sync.Mutex
	concurrent, peak := 0, 0

	inputs := make([]int, 40)
	var got []int
	err := Run(context.Background(), Options{Workers: workers},
		sliceSource(inputs),
		func(_ context.Context, in int) (int, error) {
			mu.Lock()
			concurrent++
			if concurrent > peak {
				peak = concurrent
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			concurrent--
			mu.Unlock()
			return in, nil
		},
		collectSink(&got),
	)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, workers)
	assert.Greater(t, peak, 1, "pool should actually run units in parallel")
}

func TestRun_WorkerFailureAbortsRun(t *testing.T) {
	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	procErr := errors.New("unit 7 exploded")
	var started atomic.Int64

	var got []int
	err := Run(context.Background(), Options{Workers: 4},
		sliceSource(inputs),
		func(ctx context.Context, in int) (int, error) {
			started.Add(1)
			if in == 7 {
				return 0, procErr
			}
			select {
			case <-time.After(time.Millisecond):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			return in, nil
		},
		collectSink(&got),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, procErr)
	assert.Less(t, int(started.Load()), len(inputs), "failure should stop admission")
}

func TestRun_SourceErrorAbortsRun(t *testing.T) {
	srcErr := errors.New("read: connection reset")
	reads := 0
	source := func(context.Context) (int, bool, error) {
		reads++
		if reads > 3 {
			return 0, false, srcErr
		}
		return reads, true, nil
	}

	var got []int
	err := Run(context.Background(), Options{Workers: 2},
		source,
		func(_ context.Context, in int) (int, error) { return in, nil },
		collectSink(&got),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
}

func TestRun_SinkErrorAbortsRun(t *testing.T) {
	inputs := make([]int, 100)
	sinkErr := errors.New("broken pipe")

	flushed := 0
	err := Run(context.Background(), Options{Workers: 4},
		sliceSource(inputs),
		func(_ context.Context, in int) (int, error) { return in, nil },
		func(int) error {
			flushed++
			if flushed == 5 {
				return sinkErr
			}
			return nil
		},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var got []int
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Workers: 2},
			sliceSource(make([]int, 100)),
			func(ctx context.Context, in int) (int, error) {
				select {
				case <-release:
					return in, nil
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			},
			collectSink(&got),
		)
	}()

	cancel()
	close(release)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after context cancellation")
	}
}

func TestRun_EmptySource(t *testing.T) {
	var got []int
	err := Run(context.Background(), Options{Workers: 4},
		sliceSource[int](nil),
		func(_ context.Context, in int) (int, error) { return in, nil },
		collectSink(&got),
	)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRun_RequiresProcAndSink(t *testing.T) {
	err := Run[int, int](context.Background(), Options{}, sliceSource[int](nil), nil, func(int) error { return nil })
	assert.ErrorIs(t, err, ErrProcRequired)

	err = Run[int, int](context.Background(), Options{}, sliceSource[int](nil),
		func(_ context.Context, in int) (int, error) { return in, nil }, nil)
	assert.ErrorIs(t, err, ErrSinkRequired)
}

func TestRun_LargeInputBoundedHolding(t *testing.T) {
	const n = 500

	inputs := make([]string, n)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("unit-%03d", i)
	}

	var got []string
	err := Run(context.Background(), Options{Workers: 16},
		sliceSource(inputs),
		func(_ context.Context, in string) (string, error) {
			if rand.Intn(4) == 0 {
				time.Sleep(time.Millisecond)
			}
			return in, nil
		},
		collectSink(&got),
	)
	require.NoError(t, err)
	assert.Equal(t, inputs, got)
}
