package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
)

func evt(run uuid.UUID, at time.Time, stage progress.Stage, kind string, count int64, note string) progress.Event {
	e := progress.Event{
		RunID: progress.UUIDToBytes(run),
		TS:    at,
		Stage: stage,
		Kind:  kind,
		Count: count,
		Total: 1296,
		Note:  note,
	}
	switch stage {
	case progress.StageCodeFound, progress.StageCodeSkipped, progress.StageCodeMalformed, progress.StageCodeFailed:
		e.Code = "AA"
	}
	return e
}

func TestMemoryTracksCrawlLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	run := uuid.New()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemory()

	require.NoError(t, repo.Consume(ctx, []progress.Event{
		evt(run, t0, progress.StageCrawlStart, "carrier", 0, "resumed after AZ"),
		evt(run, t0.Add(time.Second), progress.StageCodeFound, "carrier", 2, ""),
		evt(run, t0.Add(2*time.Second), progress.StageCodeSkipped, "carrier", 0, ""),
		evt(run, t0.Add(3*time.Second), progress.StageCodeMalformed, "carrier", 0, "missing body"),
		evt(run, t0.Add(4*time.Second), progress.StageCodeFailed, "carrier", 0, "timeout"),
		evt(run, t0.Add(5*time.Second), progress.StageCrawlProgress, "carrier", 100, ""),
	}))

	got, err := repo.GetCrawl(ctx, "carrier")
	require.NoError(t, err)
	require.Equal(t, RunRunning, got.Status)
	require.Equal(t, run, got.RunID)
	require.Equal(t, "resumed after AZ", got.Note)
	require.Equal(t, int64(100), got.Processed)
	require.Equal(t, int64(1296), got.Total)
	require.Equal(t, int64(1), got.Found)
	require.Equal(t, int64(2), got.Records)
	require.Equal(t, int64(1), got.NotFound)
	require.Equal(t, int64(1), got.Malformed)
	require.Equal(t, int64(1), got.Failed)
	require.Nil(t, got.FinishedAt)

	require.NoError(t, repo.Consume(ctx, []progress.Event{
		evt(run, t0.Add(time.Minute), progress.StageCrawlDone, "carrier", 1296, ""),
	}))
	got, err = repo.GetCrawl(ctx, "carrier")
	require.NoError(t, err)
	require.Equal(t, RunSuccess, got.Status)
	require.Equal(t, int64(1296), got.Processed)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, t0.Add(time.Minute), *got.FinishedAt)
}

func TestMemoryListAndFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	run := uuid.New()
	t0 := time.Now().UTC()
	repo := NewMemory()
	require.NoError(t, repo.Consume(ctx, []progress.Event{
		evt(run, t0, progress.StageCrawlStart, "carrier", 0, ""),
		evt(run, t0, progress.StageCrawlError, "carrier", 0, "disk full"),
		evt(run, t0, progress.StageCrawlStart, "airport", 0, ""),
	}))

	all, err := repo.ListCrawls(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "airport", all[0].Kind)
	require.Equal(t, "carrier", all[1].Kind)
	require.Equal(t, "disk full", *all[1].ErrorMessage)

	failed := RunError
	onlyFailed, err := repo.ListCrawls(ctx, &failed)
	require.NoError(t, err)
	require.Len(t, onlyFailed, 1)
	require.Equal(t, "carrier", onlyFailed[0].Kind)

	_, err = repo.GetCrawl(ctx, "seaport")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.Close(ctx))
}

func TestMemoryNewRunReplacesPrevious(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	t0 := time.Now().UTC()
	repo := NewMemory()
	require.NoError(t, repo.Consume(ctx, []progress.Event{
		evt(first, t0, progress.StageCrawlStart, "airport", 0, ""),
		evt(first, t0, progress.StageCodeFailed, "airport", 0, "boom"),
		evt(second, t0.Add(time.Hour), progress.StageCodeFound, "airport", 1, ""),
	}))

	got, err := repo.GetCrawl(ctx, "airport")
	require.NoError(t, err)
	require.Equal(t, second, got.RunID)
	require.Zero(t, got.Failed)
	require.Equal(t, int64(1), got.Found)
}
