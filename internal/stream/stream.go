// Package stream provides a bounded-parallelism executor that fans input
// units out across a worker pool and re-serializes the outputs into input
// order. It is self-contained and shared by batch clients; it does not touch
// the job store.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrProcRequired indicates Run was called without a processing function.
var ErrProcRequired = errors.New("stream: proc function is required")

// ErrSinkRequired indicates Run was called without an output sink.
var ErrSinkRequired = errors.New("stream: sink function is required")

// Source supplies input units in order. It returns ok=false when the input
// is exhausted; a non-nil error aborts the run.
type Source[I any] func(ctx context.Context) (in I, ok bool, err error)

// Proc transforms one input unit into its output. Procs run concurrently,
// at most Workers at a time.
type Proc[I, O any] func(ctx context.Context, in I) (O, error)

// Sink receives outputs strictly in input order, one call at a time, from a
// single goroutine. A non-nil error aborts the run.
type Sink[O any] func(out O) error

// Options configures one Run.
type Options struct {
	// Workers bounds how many inputs are in flight at once. Values below 1
	// collapse to 1 (fully serial).
	Workers int
}

// numbered pairs an output with the sequence number assigned to its input at
// admission time. Assigning at admission, not completion, is what makes the
// reordering correct.
type numbered[O any] struct {
	seq int
	out O
}

// Run pulls inputs from source, processes up to opts.Workers of them
// concurrently, and flushes outputs to sink in input order. Admission blocks
// once the pool is saturated and resumes as a slot frees. The holding buffer
// between out-of-order completions and the sink never exceeds Workers
// entries. Any proc, source, or sink failure aborts the whole run; the first
// error is returned after in-flight workers have been cancelled and drained.
func Run[I, O any](ctx context.Context, opts Options, source Source[I], proc Proc[I, O], sink Sink[O]) error {
	if proc == nil {
		return ErrProcRequired
	}
	if sink == nil {
		return ErrSinkRequired
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	pool := semaphore.NewWeighted(int64(workers))
	// Unbuffered: a worker holds its pool slot until the flusher has taken
	// its output, which keeps the holding map bounded by the pool size.
	results := make(chan numbered[O])

	// Single flusher goroutine owns nextDue and the holding map, so the sink
	// never sees concurrent or out-of-order calls.
	var flushErr error
	var flusher sync.WaitGroup
	flusher.Add(1)
	go func() {
		defer flusher.Done()
		holding := make(map[int]O, workers)
		nextDue := 0
		for item := range results {
			holding[item.seq] = item.out
			for {
				out, ok := holding[nextDue]
				if !ok {
					break
				}
				delete(holding, nextDue)
				if err := sink(out); err != nil {
					flushErr = fmt.Errorf("stream: flush output %d: %w", nextDue, err)
					cancel()
					// Keep draining so workers blocked on the results
					// channel can exit.
					for range results {
					}
					return
				}
				nextDue++
			}
		}
	}()

	admitErr := admit(gctx, source, proc, pool, g, results)

	workErr := g.Wait()
	close(results)
	flusher.Wait()

	switch {
	case flushErr != nil:
		return flushErr
	case workErr != nil:
		return workErr
	case admitErr != nil:
		return admitErr
	default:
		return ctx.Err()
	}
}

// admit pulls inputs in order, assigns each its sequence number, and launches
// one worker per admitted unit. The pool semaphore is the only admission
// gate; acquisition blocking is the executor's back-pressure.
func admit[I, O any](
	ctx context.Context,
	source Source[I],
	proc Proc[I, O],
	pool *semaphore.Weighted,
	g *errgroup.Group,
	results chan<- numbered[O],
) error {
	seq := 0
	for {
		if source == nil {
			return nil
		}

		in, ok, err := source(ctx)
		if err != nil {
			return fmt.Errorf("stream: read input %d: %w", seq, err)
		}
		if !ok {
			return nil
		}

		if err := pool.Acquire(ctx, 1); err != nil {
			// A worker already failed and tore the run context down; its
			// error, not the acquisition's, is the interesting one.
			return nil
		}

		current := seq
		seq++
		g.Go(func() error {
			defer pool.Release(1)

			out, err := proc(ctx, in)
			if err != nil {
				return fmt.Errorf("stream: process input %d: %w", current, err)
			}

			select {
			case results <- numbered[O]{seq: current, out: out}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
}
