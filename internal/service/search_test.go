package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/adapters/engine/enginetest"
	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/mocks"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxJobs:       4,
		JobTimeout:    time.Minute,
		MaxJobTimeout: time.Hour,
		CancelGrace:   2 * time.Second,
	}
}

func newTestSearchService(t *testing.T, store core.JobStore, eng core.Engine) *SearchService {
	t.Helper()
	svc, err := NewSearchService(SearchServiceOptions{
		Store:  store,
		Engine: eng,
		Config: testSearchConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)
	return svc
}

func TestNewSearchService_RequiredDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	eng := enginetest.New()

	_, err := NewSearchService(SearchServiceOptions{Engine: eng, Config: testSearchConfig()})
	require.Error(t, err)

	_, err = NewSearchService(SearchServiceOptions{Store: store, Config: testSearchConfig()})
	require.Error(t, err)

	cfg := testSearchConfig()
	cfg.MaxJobs = 0
	_, err = NewSearchService(SearchServiceOptions{Store: store, Engine: eng, Config: cfg})
	require.Error(t, err)
}

func TestSearchService_Submit_ValidationRejectedBeforeAdmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No store expectations: invalid requests must not touch persistence.
	store := mocks.NewMockJobStore(ctrl)
	svc := newTestSearchService(t, store, enginetest.New())

	tests := []struct {
		name string
		req  *model.SearchRequest
	}{
		{name: "nil request", req: nil},
		{name: "empty query", req: &model.SearchRequest{Query: "   "}},
		{name: "negative max matches", req: &model.SearchRequest{Query: "ATCG", MaxMatches: -1}},
		{name: "broken filter", req: &model.SearchRequest{Query: "ATCG", Filter: "[?score >"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestSearchService_Submit_CapacityExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(4, nil)

	svc := newTestSearchService(t, store, enginetest.New())

	_, err := svc.Submit(context.Background(), &model.SearchRequest{Query: "ATCG"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacity(err))
}

func TestSearchService_Submit_RunsToCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := enginetest.New()
	eng.Script("ATCG", enginetest.Script{
		Result: &model.MatchSet{
			Matches: []model.Match{{TargetID: "hit-1", Score: 0.93}},
			Total:   1,
		},
	})

	finalized := make(chan core.FinalizeParams, 1)

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().Finalize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FinalizeParams) (bool, error) {
			finalized <- params
			return true, nil
		})

	svc := newTestSearchService(t, store, eng)

	job, err := svc.Submit(context.Background(), &model.SearchRequest{Query: "ATCG", Index: "nt"})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusRunning, job.Status)
	assert.True(t, job.Deadline.After(job.SubmittedAt))

	select {
	case params := <-finalized:
		assert.Equal(t, job.ID, params.JobID)
		assert.Nil(t, params.Error)

		var result model.MatchSet
		require.NoError(t, json.Unmarshal(params.Payload, &result))
		require.Len(t, result.Matches, 1)
		assert.Equal(t, "hit-1", result.Matches[0].TargetID)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never finalized the search")
	}
}

func TestSearchService_Submit_EngineFailureBecomesFailedResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := enginetest.New()
	eng.Script("boom", enginetest.Script{Err: apperrors.Backend("index corrupted")})

	finalized := make(chan core.FinalizeParams, 1)

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().Finalize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FinalizeParams) (bool, error) {
			finalized <- params
			return true, nil
		})

	svc := newTestSearchService(t, store, eng)

	job, err := svc.Submit(context.Background(), &model.SearchRequest{Query: "boom"})
	require.NoError(t, err)

	select {
	case params := <-finalized:
		assert.Equal(t, job.ID, params.JobID)
		assert.Nil(t, params.Payload)
		require.NotNil(t, params.Error)
		assert.Contains(t, *params.Error, "index corrupted")
	case <-time.After(2 * time.Second):
		t.Fatal("worker never finalized the failed search")
	}
}

func TestSearchService_Submit_FilterAppliedToMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eng := enginetest.New()
	eng.Script("ATCG", enginetest.Script{
		Result: &model.MatchSet{
			Matches: []model.Match{
				{TargetID: "high", Score: 0.9},
				{TargetID: "low", Score: 0.2},
			},
			Total: 2,
		},
	})

	finalized := make(chan core.FinalizeParams, 1)

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().Finalize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FinalizeParams) (bool, error) {
			finalized <- params
			return true, nil
		})

	svc := newTestSearchService(t, store, eng)

	_, err := svc.Submit(context.Background(), &model.SearchRequest{
		Query:  "ATCG",
		Filter: "[?score > `0.5`]",
	})
	require.NoError(t, err)

	select {
	case params := <-finalized:
		var result model.MatchSet
		require.NoError(t, json.Unmarshal(params.Payload, &result))
		require.Len(t, result.Matches, 1)
		assert.Equal(t, "high", result.Matches[0].TargetID)
		assert.Equal(t, 1, result.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never finalized the filtered search")
	}
}

func TestSearchService_Submit_IDCollisionRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	done := make(chan struct{})

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	gomock.InOrder(
		store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(false, nil),
		store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(true, nil),
	)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().Finalize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, core.FinalizeParams) (bool, error) {
			close(done)
			return true, nil
		})

	svc := newTestSearchService(t, store, enginetest.New())

	_, err := svc.Submit(context.Background(), &model.SearchRequest{Query: "ATCG"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ran after collision retry")
	}
}

func TestSearchService_Submit_IDCollisionExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).Return(false, nil).Times(idCreateAttempts)

	svc := newTestSearchService(t, store, enginetest.New())

	_, err := svc.Submit(context.Background(), &model.SearchRequest{Query: "ATCG"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestSearchService_Submit_TimeoutClampedToMaximum(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var created *model.Job
	done := make(chan struct{})

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().CountRunning(gomock.Any()).Return(0, nil)
	store.EXPECT().TryCreate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *model.Job) (bool, error) {
			created = job
			return true, nil
		})
	store.EXPECT().AttachWorkerHandle(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().Finalize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, core.FinalizeParams) (bool, error) {
			close(done)
			return true, nil
		})

	svc := newTestSearchService(t, store, enginetest.New())

	// Requests a week; the policy grants at most an hour.
	_, err := svc.Submit(context.Background(), &model.SearchRequest{
		Query:          "ATCG",
		TimeoutSeconds: int((7 * 24 * time.Hour).Seconds()),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.WithinDuration(t, created.SubmittedAt.Add(time.Hour), created.Deadline, time.Second)

	<-done
}

func TestSearchService_Worker_SelfMarksTimedOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	marked := make(chan string, 1)

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), "expired-job", gomock.Any()).Return(true, nil).AnyTimes()
	store.EXPECT().MarkTimedOut(gomock.Any(), "expired-job").
		DoAndReturn(func(_ context.Context, id string) (bool, error) {
			marked <- id
			return true, nil
		})

	svc := newTestSearchService(t, store, enginetest.New())

	// A deadline already in the past expires the worker context before the
	// engine call can complete.
	svc.launchWorker(&model.Job{
		ID:       "expired-job",
		Status:   model.JobStatusRunning,
		Deadline: time.Now().Add(-time.Second),
	}, &model.SearchRequest{Query: "ATCG"})

	select {
	case id := <-marked:
		assert.Equal(t, "expired-job", id)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never self-marked timed out")
	}
}

func TestSearchService_Worker_DroppedResultWhenJobGone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attached := make(chan struct{})

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().AttachWorkerHandle(gomock.Any(), "gone-job", gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (bool, error) {
			close(attached)
			return false, nil
		})
	// No Finalize expectation: the worker must exit without writing.

	svc := newTestSearchService(t, store, enginetest.New())

	svc.launchWorker(&model.Job{
		ID:       "gone-job",
		Status:   model.JobStatusRunning,
		Deadline: time.Now().Add(time.Minute),
	}, &model.SearchRequest{Query: "ATCG"})

	select {
	case <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never attempted to attach")
	}
	// Give a wrongly-written Finalize a moment to trip the controller.
	time.Sleep(50 * time.Millisecond)
}

func TestSearchService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().Stats(gomock.Any()).Return(&model.SearchStats{Running: 3}, nil)

	svc := newTestSearchService(t, store, enginetest.New())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Running)
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, 1, stats.Available)
}
