// Package enginetest provides a scripted in-memory engine for service and
// handler tests. Behavior is keyed by query string so tests can mix fast,
// slow, and failing searches in one scenario.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
)

// Script describes how the fake engine handles one query.
type Script struct {
	// Delay is how long the search blocks before responding. The block is
	// interruptible; context cancellation wins.
	Delay time.Duration
	// Err, when set, is returned instead of a result.
	Err error
	// Result is the payload returned on success. A nil Result yields an
	// empty match set.
	Result *model.MatchSet
}

// Engine is a scripted core.Engine implementation.
type Engine struct {
	mu      sync.Mutex
	scripts map[string]Script
	calls   []string
	healthy bool

	// Started receives the query string as soon as a search begins blocking,
	// when a test sets it. Lets tests synchronize with in-flight workers.
	Started chan string
}

// New creates a scripted engine with no scripts and healthy status.
func New() *Engine {
	return &Engine{
		scripts: make(map[string]Script),
		healthy: true,
	}
}

// Script registers the behavior for searches with the given query.
func (e *Engine) Script(query string, s Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[query] = s
}

// SetHealthy flips the health probe result.
func (e *Engine) SetHealthy(healthy bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.healthy = healthy
}

// Calls returns the queries searched so far, in arrival order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// Search runs the scripted behavior for req.Query. Unscripted queries
// succeed immediately with an empty match set.
func (e *Engine) Search(ctx context.Context, req *model.SearchRequest) (*model.MatchSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, contextCode(err), "engine request canceled")
	}

	e.mu.Lock()
	e.calls = append(e.calls, req.Query)
	script := e.scripts[req.Query]
	started := e.Started
	e.mu.Unlock()

	if started != nil {
		select {
		case started <- req.Query:
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), contextCode(ctx.Err()), "engine request canceled")
		}
	}

	if script.Delay > 0 {
		timer := time.NewTimer(script.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), contextCode(ctx.Err()), "engine request canceled")
		}
	}

	if script.Err != nil {
		return nil, script.Err
	}
	if script.Result != nil {
		return script.Result, nil
	}
	return &model.MatchSet{Matches: []model.Match{}}, nil
}

// Health reports the scripted health status.
func (e *Engine) Health(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.healthy {
		return apperrors.Backend("engine unhealthy")
	}
	return nil
}

func contextCode(err error) apperrors.ErrorCode {
	if err == context.DeadlineExceeded {
		return apperrors.ErrCodeTimeout
	}
	return apperrors.ErrCodeCanceled
}
