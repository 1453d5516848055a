package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
)

// ErrNotFound signals that no crawl of the requested kind has been seen.
var ErrNotFound = errors.New("crawl status not found")

// CrawlStatus is the lifecycle state of one crawl.
type CrawlStatus string

// Crawl statuses.
const (
	RunRunning CrawlStatus = "running"
	RunSuccess CrawlStatus = "success"
	RunError   CrawlStatus = "error"
)

// CrawlRun is the latest known state of a crawl of one kind.
type CrawlRun struct {
	RunID        uuid.UUID
	Kind         string
	StartedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
	Status       CrawlStatus
	ErrorMessage *string
	Note         string
	// Total is the size of the code space; Processed counts probed codes.
	Total     int64
	Processed int64
	// Per-outcome code counts. Records counts rows, not codes.
	Found     int64
	Records   int64
	NotFound  int64
	Malformed int64
	Failed    int64
}

// ProgressRepository answers crawl status queries.
type ProgressRepository interface {
	// GetCrawl returns the latest crawl of kind or ErrNotFound.
	GetCrawl(ctx context.Context, kind string) (CrawlRun, error)
	// ListCrawls returns the latest crawl of every kind, optionally filtered by status.
	ListCrawls(ctx context.Context, status *CrawlStatus) ([]CrawlRun, error)
}

// Memory is a ProgressRepository that also implements progress.Sink. A
// CRAWL_START for a kind replaces whatever was stored for it.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*CrawlRun
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*CrawlRun)}
}

// Consume implements progress.Sink.
func (m *Memory) Consume(_ context.Context, batch []progress.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range batch {
		m.apply(evt)
	}
	return nil
}

func (m *Memory) apply(evt progress.Event) {
	run, ok := m.runs[evt.Kind]
	if evt.Stage == progress.StageCrawlStart || !ok || run.RunID != evt.RunUUID() {
		run = &CrawlRun{
			RunID:     evt.RunUUID(),
			Kind:      evt.Kind,
			StartedAt: evt.TS,
			Status:    RunRunning,
		}
		m.runs[evt.Kind] = run
	}
	run.UpdatedAt = evt.TS
	if evt.Total > 0 {
		run.Total = evt.Total
	}

	switch evt.Stage {
	case progress.StageCrawlStart:
		run.Note = evt.Note
	case progress.StageCrawlProgress:
		run.Processed = evt.Count
	case progress.StageCodeFound:
		run.Found++
		run.Records += evt.Count
	case progress.StageCodeSkipped:
		run.NotFound++
	case progress.StageCodeMalformed:
		run.Malformed++
	case progress.StageCodeFailed:
		run.Failed++
	case progress.StageCrawlDone:
		run.Processed = evt.Count
		run.finish(evt.TS, RunSuccess, nil)
	case progress.StageCrawlError:
		msg := evt.Note
		run.finish(evt.TS, RunError, &msg)
	}
}

func (r *CrawlRun) finish(at time.Time, status CrawlStatus, errMsg *string) {
	r.FinishedAt = &at
	r.Status = status
	r.ErrorMessage = errMsg
}

// Close implements progress.Sink.
func (m *Memory) Close(context.Context) error { return nil }

// GetCrawl implements ProgressRepository.
func (m *Memory) GetCrawl(_ context.Context, kind string) (CrawlRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[kind]
	if !ok {
		return CrawlRun{}, ErrNotFound
	}
	return *run, nil
}

// ListCrawls implements ProgressRepository. Results are ordered by kind.
func (m *Memory) ListCrawls(_ context.Context, status *CrawlStatus) ([]CrawlRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CrawlRun, 0, len(m.runs))
	for _, run := range m.runs {
		if status != nil && run.Status != *status {
			continue
		}
		out = append(out, *run)
	}
	slices.SortFunc(out, func(a, b CrawlRun) int { return strings.Compare(a.Kind, b.Kind) })
	return out, nil
}
