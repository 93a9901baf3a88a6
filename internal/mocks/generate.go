// Package mocks provides mock implementations for testing the seqsearch job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockJobStore(ctrl)
//	mockStore.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods for all JobStore interface methods:
// TryCreate, GetByID, CountRunning, ListRunning, ListExpired, AttachWorkerHandle,
// MarkCancelled, MarkTimedOut, Finalize, ConsumeResult, PeekState, Stats, WaitForCompletion
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/seqbase/seqsearch/internal/core JobStore

// Generate mock for CollectorStore interface from internal/core package.
// This creates MockCollectorStore with methods for all CollectorStore interface methods:
// PurgeOldResults, PurgeTerminalJobs
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=collector_store_mock.go github.com/seqbase/seqsearch/internal/core CollectorStore

// Generate mock for Engine interface from internal/core package.
// This creates MockEngine with methods for all Engine interface methods:
// Search, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=engine_mock.go github.com/seqbase/seqsearch/internal/core Engine
