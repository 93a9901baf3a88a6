package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/testutil"
)

// TestJobStore_PurgeOldResults tests retention cleanup of result rows.
func TestJobStore_PurgeOldResults(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("removes aged results regardless of consumption", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			timeProvider := NewFixedTimeProvider(testutil.TestTime())
			store := NewJobStore(db, StoreConfig{TimeProvider: timeProvider})
			ctx := context.Background()

			created, err := store.TryCreate(ctx, testutil.NewJob("job-purge-old").Build())
			require.NoError(t, err)
			require.True(t, created)
			finalized, err := store.Finalize(ctx, core.FinalizeParams{
				JobID:   "job-purge-old",
				Payload: []byte(`{"matches":[],"total":0}`),
			})
			require.NoError(t, err)
			require.True(t, finalized)

			// Eight days later a fresh result lands.
			timeProvider.AddTime(8 * 24 * time.Hour)

			created, err = store.TryCreate(ctx, testutil.NewJob("job-purge-new").Build())
			require.NoError(t, err)
			require.True(t, created)
			finalized, err = store.Finalize(ctx, core.FinalizeParams{
				JobID:   "job-purge-new",
				Payload: []byte(`{"matches":[],"total":0}`),
			})
			require.NoError(t, err)
			require.True(t, finalized)

			count, err := store.PurgeOldResults(ctx, core.PurgeOldResultsParams{
				MaxAge:    7 * 24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			// The aged result is gone even though nobody ever consumed it.
			_, err = store.ConsumeResult(ctx, "job-purge-old")
			assert.ErrorIs(t, err, ErrResultNotFound)

			// The fresh one is still deliverable.
			result, err := store.ConsumeResult(ctx, "job-purge-new")
			require.NoError(t, err)
			assert.Equal(t, "job-purge-new", result.JobID)
		})
	})

	t.Run("respects the batch size", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			timeProvider := NewFixedTimeProvider(testutil.TestTime())
			store := NewJobStore(db, StoreConfig{TimeProvider: timeProvider})
			ctx := context.Background()

			for i := range 3 {
				id := fmt.Sprintf("job-purge-batch-%d", i)
				created, err := store.TryCreate(ctx, testutil.NewJob(id).Build())
				require.NoError(t, err)
				require.True(t, created)
				finalized, err := store.Finalize(ctx, core.FinalizeParams{
					JobID:   id,
					Payload: []byte(`{"matches":[],"total":0}`),
				})
				require.NoError(t, err)
				require.True(t, finalized)
			}

			timeProvider.AddTime(8 * 24 * time.Hour)

			count, err := store.PurgeOldResults(ctx, core.PurgeOldResultsParams{
				MaxAge:    7 * 24 * time.Hour,
				BatchSize: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			count, err = store.PurgeOldResults(ctx, core.PurgeOldResultsParams{
				MaxAge:    7 * 24 * time.Hour,
				BatchSize: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})
	})

	t.Run("rejects invalid params", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			store := NewJobStore(db, StoreConfig{})
			ctx := context.Background()

			_, err := store.PurgeOldResults(ctx, core.PurgeOldResultsParams{MaxAge: time.Hour})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "batch size")

			_, err = store.PurgeOldResults(ctx, core.PurgeOldResultsParams{BatchSize: 100})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "max age")
		})
	})
}

// TestJobStore_PurgeTerminalJobs tests retention cleanup of cancelled and
// timed-out job rows.
func TestJobStore_PurgeTerminalJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("removes aged terminal rows only", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			timeProvider := NewFixedTimeProvider(testutil.TestTime())
			store := NewJobStore(db, StoreConfig{TimeProvider: timeProvider})
			ctx := context.Background()

			created, err := store.TryCreate(ctx, testutil.NewJob("job-term-aged").Build())
			require.NoError(t, err)
			require.True(t, created)
			marked, err := store.MarkCancelled(ctx, "job-term-aged")
			require.NoError(t, err)
			require.True(t, marked)

			timeProvider.AddTime(8 * 24 * time.Hour)

			created, err = store.TryCreate(ctx, testutil.NewJob("job-term-fresh").Build())
			require.NoError(t, err)
			require.True(t, created)
			marked, err = store.MarkTimedOut(ctx, "job-term-fresh")
			require.NoError(t, err)
			require.True(t, marked)

			created, err = store.TryCreate(ctx, testutil.NewJob("job-term-running").Build())
			require.NoError(t, err)
			require.True(t, created)

			count, err := store.PurgeTerminalJobs(ctx, core.PurgeTerminalJobsParams{
				MaxAge:    7 * 24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			_, err = store.GetByID(ctx, "job-term-aged")
			assert.ErrorIs(t, err, ErrJobNotFound)

			_, err = store.GetByID(ctx, "job-term-fresh")
			assert.NoError(t, err)

			_, err = store.GetByID(ctx, "job-term-running")
			assert.NoError(t, err)
		})
	})

	t.Run("never touches running jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			timeProvider := NewFixedTimeProvider(testutil.TestTime())
			store := NewJobStore(db, StoreConfig{TimeProvider: timeProvider})
			ctx := context.Background()

			created, err := store.TryCreate(ctx, testutil.NewJob("job-term-longrun").Build())
			require.NoError(t, err)
			require.True(t, created)

			timeProvider.AddTime(30 * 24 * time.Hour)

			count, err := store.PurgeTerminalJobs(ctx, core.PurgeTerminalJobsParams{
				MaxAge:    7 * 24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)

			_, err = store.GetByID(ctx, "job-term-longrun")
			assert.NoError(t, err)
		})
	})

	t.Run("rejects invalid params", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			store := NewJobStore(db, StoreConfig{})
			ctx := context.Background()

			_, err := store.PurgeTerminalJobs(ctx, core.PurgeTerminalJobsParams{MaxAge: time.Hour})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "batch size")

			_, err = store.PurgeTerminalJobs(ctx, core.PurgeTerminalJobsParams{BatchSize: 100})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "max age")
		})
	})
}
