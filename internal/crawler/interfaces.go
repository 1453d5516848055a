package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// Getter issues a GET and returns the status and body.
type Getter interface {
	Get(ctx context.Context, url string) (Page, error)
}

// Fetcher resolves a single code to the records published for it.
type Fetcher interface {
	Fetch(ctx context.Context, code string, kind codes.Kind) ([]record.Record, error)
}

// RecordLog is the append-only destination of crawled records.
type RecordLog interface {
	Append(ctx context.Context, rec record.Record) error
}

// RetryPolicy decides whether a failed attempt is retried and how long to wait.
// Attempts are numbered from 1.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Pacer throttles outgoing requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Cursor persists the last code whose results were fully committed so an
// interrupted crawl can continue where it stopped.
type Cursor interface {
	Load(ctx context.Context, kind codes.Kind) (string, bool, error)
	Save(ctx context.Context, kind codes.Kind, code string) error
	Reset(ctx context.Context, kind codes.Kind) error
}

// Observer receives crawl lifecycle notifications. Implementations must be
// safe to call from the driver's commit goroutine.
type Observer interface {
	OnStart(kind codes.Kind, total int, resumeAfter string)
	OnProgress(kind codes.Kind, processed int)
	OnRecords(kind codes.Kind, code string, count int)
	OnSkip(kind codes.Kind, code string, err error)
	OnError(kind codes.Kind, code string, err error)
	OnComplete(summary Summary)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// NopObserver ignores every notification.
type NopObserver struct{}

// OnStart implements Observer.
func (NopObserver) OnStart(codes.Kind, int, string) {}

// OnProgress implements Observer.
func (NopObserver) OnProgress(codes.Kind, int) {}

// OnRecords implements Observer.
func (NopObserver) OnRecords(codes.Kind, string, int) {}

// OnSkip implements Observer.
func (NopObserver) OnSkip(codes.Kind, string, error) {}

// OnError implements Observer.
func (NopObserver) OnError(codes.Kind, string, error) {}

// OnComplete implements Observer.
func (NopObserver) OnComplete(Summary) {}
