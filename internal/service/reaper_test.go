package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/domain/model"
	"github.com/seqbase/seqsearch/internal/mocks"
)

func newTestReaper(t *testing.T, store *mocks.MockJobStore) *ReaperService {
	t.Helper()
	svc, err := NewReaperService(ReaperServiceOptions{
		Store: store,
		Config: config.SearchConfig{
			CleanupInterval: 10 * time.Millisecond,
			CancelGrace:     50 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestNewReaperService_RequiresStore(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{
		Config: config.SearchConfig{CleanupInterval: time.Second},
	})
	require.Error(t, err)
}

func TestReaperService_Sweep_MarksExpiredJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	expired := []*model.Job{
		{ID: "old-1", Status: model.JobStatusRunning, Deadline: time.Now().Add(-time.Minute)},
		{ID: "old-2", Status: model.JobStatusRunning, Deadline: time.Now().Add(-time.Hour)},
	}

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ListExpired(gomock.Any(), gomock.Any(), reapBatchSize).Return(expired, nil)
	store.EXPECT().MarkTimedOut(gomock.Any(), "old-1").Return(true, nil)
	store.EXPECT().MarkTimedOut(gomock.Any(), "old-2").Return(true, nil)

	svc := newTestReaper(t, store)

	require.NoError(t, svc.sweep(context.Background()))
}

func TestReaperService_Sweep_OneFailureDoesNotBlockOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	expired := []*model.Job{
		{ID: "bad", Status: model.JobStatusRunning},
		{ID: "good", Status: model.JobStatusRunning},
	}

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ListExpired(gomock.Any(), gomock.Any(), reapBatchSize).Return(expired, nil)
	store.EXPECT().MarkTimedOut(gomock.Any(), "bad").Return(false, errors.New("deadlock detected"))
	store.EXPECT().MarkTimedOut(gomock.Any(), "good").Return(true, nil)

	svc := newTestReaper(t, store)

	err := svc.sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestReaperService_Sweep_StopsWhenFullBatchMakesNoProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// A full batch where every mark fails would be re-listed verbatim on
	// the next pass. The sweep must give up and leave the retry to the next
	// tick, so ListExpired is expected exactly once.
	expired := make([]*model.Job, reapBatchSize)
	for i := range expired {
		expired[i] = &model.Job{ID: "stuck", Status: model.JobStatusRunning}
	}

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ListExpired(gomock.Any(), gomock.Any(), reapBatchSize).Return(expired, nil)
	store.EXPECT().MarkTimedOut(gomock.Any(), gomock.Any()).
		Return(false, errors.New("read-only transaction")).Times(reapBatchSize)

	svc := newTestReaper(t, store)

	err := svc.sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only transaction")
}

func TestReaperService_Sweep_AlreadyFinalizedIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ListExpired(gomock.Any(), gomock.Any(), reapBatchSize).
		Return([]*model.Job{{ID: "raced", Status: model.JobStatusRunning}}, nil)
	// The worker finalized between listing and marking.
	store.EXPECT().MarkTimedOut(gomock.Any(), "raced").Return(false, nil)

	svc := newTestReaper(t, store)

	require.NoError(t, svc.sweep(context.Background()))
}

func TestReaperService_Run_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockJobStore(ctrl)
	store.EXPECT().ListExpired(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	svc := newTestReaper(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
