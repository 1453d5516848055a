package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// RecordFetcher resolves a code to a catalog URL, fetches it with the retry
// policy, and parses the result table.
type RecordFetcher struct {
	getter  Getter
	catalog Catalog
	policy  RetryPolicy
	sleep   Sleeper
	logger  *zap.Logger
}

// NewRecordFetcher wires a RecordFetcher. A nil policy uses the default fixed
// policy, a nil sleep uses a context-aware timer.
func NewRecordFetcher(
	getter Getter,
	catalog Catalog,
	policy RetryPolicy,
	sleep Sleeper,
	logger *zap.Logger,
) *RecordFetcher {
	if policy == nil {
		policy = NewFixedRetryPolicy(DefaultMaxAttempts, DefaultRetryDelay)
	}
	if sleep == nil {
		sleep = sleepWithContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordFetcher{
		getter:  getter,
		catalog: catalog,
		policy:  policy,
		sleep:   sleep,
		logger:  logger,
	}
}

// Fetch returns the records published for code. It fails with ErrNoData when
// the page carries no result table, *ParseError when the table is malformed,
// and *TransportError once the retry policy gives up.
func (f *RecordFetcher) Fetch(ctx context.Context, code string, kind codes.Kind) ([]record.Record, error) {
	target, err := f.catalog.URL(code, kind)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		page, err := f.get(ctx, target)
		if err == nil {
			return ParseTable(page.Body)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", code, ctxErr)
		}
		if !f.policy.ShouldRetry(err, attempt) {
			return nil, &TransportError{Code: code, URL: target, Attempts: attempt, Err: err}
		}
		delay := f.policy.Backoff(attempt)
		f.logger.Warn("request failed, retrying",
			zap.String("code", code),
			zap.Stringer("kind", kind),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fetch %s backoff: %w", code, err)
		}
	}
}

func (f *RecordFetcher) get(ctx context.Context, target string) (Page, error) {
	page, err := f.getter.Get(ctx, target)
	if err != nil {
		return Page{}, err
	}
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return Page{}, &StatusError{StatusCode: page.StatusCode}
	}
	return page, nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
