package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seqbase/seqsearch/internal/adapters/engine/enginetest"
	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/mocks"
)

func TestSearchService_Status(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().PeekState(gomock.Any(), "job-1").
		Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateRunning}, nil)

	svc := newTestSearchService(t, store, enginetest.New())

	status, err := svc.Status(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.SearchStateRunning, status.Status)
}

func TestSearchService_Status_NotFoundPassthrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().PeekState(gomock.Any(), "missing").Return(nil, apperrors.NotFound("no such search"))

	svc := newTestSearchService(t, store, enginetest.New())

	_, err := svc.Status(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSearchService_Result_ConsumesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payload, err := json.Marshal(&model.MatchSet{Total: 1})
	require.NoError(t, err)

	store := mocks.NewMockJobStore(ctrl)
	gomock.InOrder(
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").
			Return(&model.SearchResult{JobID: "job-1", Payload: payload}, nil),
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").
			Return(nil, apperrors.NotFound("already consumed")),
		store.EXPECT().PeekState(gomock.Any(), "job-1").
			Return(nil, apperrors.NotFound("no such search")),
	)

	svc := newTestSearchService(t, store, enginetest.New())

	outcome, err := svc.Result(context.Background(), "job-1", 0)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "job-1", outcome.Result.JobID)

	// Second retrieval of the same result collapses into NotFound.
	_, err = svc.Result(context.Background(), "job-1", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSearchService_Result_StillRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ConsumeResult(gomock.Any(), "job-1").Return(nil, apperrors.NotFound("no result"))
	store.EXPECT().PeekState(gomock.Any(), "job-1").
		Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateRunning}, nil)

	svc := newTestSearchService(t, store, enginetest.New())

	outcome, err := svc.Result(context.Background(), "job-1", 0)
	require.NoError(t, err)
	assert.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, model.SearchStateRunning, outcome.Status.Status)
}

func TestSearchService_Result_TerminalStateCollapsesToNotFound(t *testing.T) {
	for _, state := range []model.SearchState{model.SearchStateCancelled, model.SearchStateTimedOut} {
		t.Run(string(state), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockJobStore(ctrl)
			store.EXPECT().ConsumeResult(gomock.Any(), "job-1").Return(nil, apperrors.NotFound("no result"))
			store.EXPECT().PeekState(gomock.Any(), "job-1").
				Return(&model.SearchStatusResponse{JobID: "job-1", Status: state}, nil)

			svc := newTestSearchService(t, store, enginetest.New())

			_, err := svc.Result(context.Background(), "job-1", 0)
			require.Error(t, err)
			assert.True(t, apperrors.IsNotFound(err))
		})
	}
}

func TestSearchService_Result_WaitStopsOnCancelledSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().WaitForCompletion(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}).AnyTimes()
	store.EXPECT().ConsumeResult(gomock.Any(), "job-1").Return(nil, apperrors.NotFound("no result"))
	store.EXPECT().PeekState(gomock.Any(), "job-1").
		Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateCancelled}, nil)

	svc := newTestSearchService(t, store, enginetest.New())

	// The wait window must not be consumed: a cancelled search fails the
	// long-poll immediately rather than spinning until the deadline.
	start := time.Now()
	_, err := svc.Result(context.Background(), "job-1", 5*time.Second)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSearchService_Result_RetriesConsumeOnCompletedPeek(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	gomock.InOrder(
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").Return(nil, apperrors.NotFound("not yet")),
		store.EXPECT().PeekState(gomock.Any(), "job-1").
			Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateCompleted}, nil),
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").
			Return(&model.SearchResult{JobID: "job-1"}, nil),
	)

	svc := newTestSearchService(t, store, enginetest.New())

	outcome, err := svc.Result(context.Background(), "job-1", 0)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
}

func TestSearchService_Result_WaitUntilCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	// The notifier's listen loop wakes subscribers every time the wait call
	// returns; returning nil immediately simulates a completion notification.
	store.EXPECT().WaitForCompletion(gomock.Any()).Return(nil).AnyTimes()
	gomock.InOrder(
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").Return(nil, apperrors.NotFound("not yet")),
		store.EXPECT().PeekState(gomock.Any(), "job-1").
			Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateRunning}, nil),
		store.EXPECT().ConsumeResult(gomock.Any(), "job-1").
			Return(&model.SearchResult{JobID: "job-1"}, nil),
	)

	svc := newTestSearchService(t, store, enginetest.New())

	outcome, err := svc.Result(context.Background(), "job-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "job-1", outcome.Result.JobID)
}

func TestSearchService_Result_WaitTimesOutWhileRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().WaitForCompletion(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}).AnyTimes()
	store.EXPECT().ConsumeResult(gomock.Any(), "job-1").
		Return(nil, apperrors.NotFound("not yet")).AnyTimes()
	store.EXPECT().PeekState(gomock.Any(), "job-1").
		Return(&model.SearchStatusResponse{JobID: "job-1", Status: model.SearchStateRunning}, nil).AnyTimes()

	svc := newTestSearchService(t, store, enginetest.New())

	start := time.Now()
	outcome, err := svc.Result(context.Background(), "job-1", 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, model.SearchStateRunning, outcome.Status.Status)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
