package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// DefaultProgressEvery is the number of codes between progress notifications.
const DefaultProgressEvery = 100

// Options tunes a Driver.
//   - Alphabet: ordered characters codes are built from (default codes.DefaultAlphabet).
//   - Concurrency: number of in-flight fetches (default 1, strictly sequential).
//   - ProgressEvery: codes between OnProgress calls and cursor checkpoints (default 100).
//   - Pacer: optional throttle consulted before every request.
//   - Cursor: optional checkpoint store; Resume makes Run continue after the saved code.
//   - Observer: receives lifecycle notifications (default NopObserver).
type Options struct {
	Alphabet      string
	Concurrency   int
	ProgressEvery int
	Pacer         Pacer
	Cursor        Cursor
	Resume        bool
	Observer      Observer
}

// Driver walks a whole code space through a Fetcher into a RecordLog.
type Driver struct {
	fetcher Fetcher
	opts    Options
	logger  *zap.Logger
}

// NewDriver builds a Driver, filling in defaults for unset options.
func NewDriver(fetcher Fetcher, opts Options, logger *zap.Logger) *Driver {
	if opts.Alphabet == "" {
		opts.Alphabet = codes.DefaultAlphabet
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{fetcher: fetcher, opts: opts, logger: logger}
}

type outcome struct {
	index   int
	code    string
	records []record.Record
	err     error
}

// Run probes every code of kind and appends the records found to log, in
// enumeration order. Failures of individual codes are reported to the
// observer and never stop the crawl; only context cancellation or a log that
// cannot be appended to does.
func (d *Driver) Run(ctx context.Context, kind codes.Kind, log RecordLog) (Summary, error) {
	space, err := codes.ForKind(kind, d.opts.Alphabet)
	if err != nil {
		return Summary{Kind: kind}, fmt.Errorf("build code space: %w", err)
	}
	start, resumeAfter, err := d.resumePoint(ctx, kind, space)
	if err != nil {
		return Summary{Kind: kind}, err
	}

	summary := Summary{Kind: kind, Total: space.Size(), ResumedAfter: resumeAfter}
	d.opts.Observer.OnStart(kind, space.Size(), resumeAfter)
	began := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan outcome)
	results := make(chan outcome, d.opts.Concurrency)

	g.Go(func() error {
		defer close(jobs)
		for i, code := range space.From(start) {
			select {
			case jobs <- outcome{index: i, code: code}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for range d.opts.Concurrency {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			return d.work(gctx, kind, jobs, results)
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	c := &committer{driver: d, kind: kind, log: log, next: start, summary: &summary, lastCode: resumeAfter}
	g.Go(func() error {
		return c.run(gctx, results)
	})

	runErr := g.Wait()
	summary.Duration = time.Since(began)
	d.finishCursor(ctx, kind, c, runErr == nil && c.next == space.Size())
	if runErr != nil {
		return summary, fmt.Errorf("crawl %s: %w", kind, runErr)
	}
	d.opts.Observer.OnComplete(summary)
	return summary, nil
}

func (d *Driver) work(ctx context.Context, kind codes.Kind, jobs <-chan outcome, results chan<- outcome) error {
	for job := range jobs {
		if d.opts.Pacer != nil {
			if err := d.opts.Pacer.Wait(ctx); err != nil {
				return fmt.Errorf("pace request: %w", err)
			}
		}
		job.records, job.err = d.fetcher.Fetch(ctx, job.code, kind)
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case results <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *Driver) resumePoint(ctx context.Context, kind codes.Kind, space *codes.Space) (int, string, error) {
	if !d.opts.Resume || d.opts.Cursor == nil {
		return 0, "", nil
	}
	code, ok, err := d.opts.Cursor.Load(ctx, kind)
	if err != nil {
		return 0, "", fmt.Errorf("load %s cursor: %w", kind, err)
	}
	if !ok {
		return 0, "", nil
	}
	idx, ok := space.Index(code)
	if !ok {
		d.logger.Warn("cursor code is outside the code space, starting over",
			zap.Stringer("kind", kind), zap.String("code", code))
		return 0, "", nil
	}
	return idx + 1, code, nil
}

func (d *Driver) finishCursor(ctx context.Context, kind codes.Kind, c *committer, complete bool) {
	if d.opts.Cursor == nil {
		return
	}
	// The crawl context may already be canceled; the checkpoint must still land.
	ctx = context.WithoutCancel(ctx)
	var err error
	switch {
	case complete:
		err = d.opts.Cursor.Reset(ctx, kind)
	case c.lastCode != "":
		err = d.opts.Cursor.Save(ctx, kind, c.lastCode)
	}
	if err != nil {
		d.logger.Warn("cursor update failed", zap.Stringer("kind", kind), zap.Error(err))
	}
}

// committer is the single writer of a crawl: it restores enumeration order
// across workers and appends to the log.
type committer struct {
	driver   *Driver
	kind     codes.Kind
	log      RecordLog
	next     int
	pending  map[int]outcome
	summary  *Summary
	lastCode string
}

func (c *committer) run(ctx context.Context, results <-chan outcome) error {
	c.pending = make(map[int]outcome)
	for res := range results {
		c.pending[res.index] = res
		for {
			ready, ok := c.pending[c.next]
			if !ok {
				break
			}
			delete(c.pending, c.next)
			if err := c.apply(ctx, ready); err != nil {
				return err
			}
			c.next++
		}
	}
	return nil
}

func (c *committer) apply(ctx context.Context, res outcome) error {
	obs := c.driver.opts.Observer
	var parseErr *ParseError
	switch {
	case res.err == nil:
		for _, rec := range res.records {
			if err := c.log.Append(ctx, rec); err != nil {
				return fmt.Errorf("append record for %s: %w", res.code, err)
			}
		}
		c.summary.Records += len(res.records)
		if len(res.records) > 0 {
			obs.OnRecords(c.kind, res.code, len(res.records))
		}
	case errors.Is(res.err, ErrNoData):
		c.summary.Skipped++
		obs.OnSkip(c.kind, res.code, res.err)
	case errors.As(res.err, &parseErr):
		c.summary.Malformed++
		obs.OnSkip(c.kind, res.code, res.err)
	default:
		c.summary.Failed++
		c.driver.logger.Warn("code failed",
			zap.Stringer("kind", c.kind), zap.String("code", res.code), zap.Error(res.err))
		obs.OnError(c.kind, res.code, res.err)
	}

	c.summary.Processed++
	c.lastCode = res.code
	if c.summary.Processed%c.driver.opts.ProgressEvery == 0 {
		obs.OnProgress(c.kind, c.summary.Processed)
		c.checkpoint(ctx)
	}
	return nil
}

func (c *committer) checkpoint(ctx context.Context) {
	cursor := c.driver.opts.Cursor
	if cursor == nil {
		return
	}
	if err := cursor.Save(ctx, c.kind, c.lastCode); err != nil {
		c.driver.logger.Warn("cursor checkpoint failed",
			zap.Stringer("kind", c.kind), zap.String("code", c.lastCode), zap.Error(err))
	}
}
