// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	googleuuid "github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/api"
	"github.com/JakeFAU/iata-code-fetcher/internal/clock/system"
	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/config"
	"github.com/JakeFAU/iata-code-fetcher/internal/crawler"
	"github.com/JakeFAU/iata-code-fetcher/internal/crawllog"
	"github.com/JakeFAU/iata-code-fetcher/internal/cursor"
	filecursor "github.com/JakeFAU/iata-code-fetcher/internal/cursor/file"
	pgcursor "github.com/JakeFAU/iata-code-fetcher/internal/cursor/postgres"
	"github.com/JakeFAU/iata-code-fetcher/internal/export"
	collyfetcher "github.com/JakeFAU/iata-code-fetcher/internal/fetcher/colly"
	"github.com/JakeFAU/iata-code-fetcher/internal/hash/sha256"
	"github.com/JakeFAU/iata-code-fetcher/internal/id/uuid"
	"github.com/JakeFAU/iata-code-fetcher/internal/metrics"
	"github.com/JakeFAU/iata-code-fetcher/internal/normalize"
	"github.com/JakeFAU/iata-code-fetcher/internal/policy/ratelimit"
	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
	"github.com/JakeFAU/iata-code-fetcher/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/iata-code-fetcher/internal/publisher/pubsub"
	"github.com/JakeFAU/iata-code-fetcher/internal/storage"
	"github.com/JakeFAU/iata-code-fetcher/internal/storage/gcs"
	"github.com/JakeFAU/iata-code-fetcher/internal/storage/local"
	"github.com/JakeFAU/iata-code-fetcher/internal/store"
)

const closeTimeout = 10 * time.Second

// App holds the shared services for one CLI invocation. It is built once by
// the root command and closed when the command returns.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	runID    googleuuid.UUID
	clock    *system.Clock
	getter   crawler.Getter
	pacer    *ratelimit.Pacer
	cursor   crawler.Cursor
	hub      *progress.Hub
	status   *store.Memory
	pipeline *normalize.Pipeline
	exporter *export.Exporter
	metrics  *metrics.Server
	closers  []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds every service named by cfg. It fails fast when a configured
// backend cannot be reached; whatever was opened before the failure is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New(), status: store.NewMemory()}
	defer func() {
		if err != nil {
			_ = a.closeAll(ctx)
		}
	}()

	if a.runID, err = uuid.New().NewRunID(); err != nil {
		return nil, err
	}
	metricsOn := cfg.Metrics.Addr != ""
	if metricsOn {
		metrics.Init()
	}

	a.getter = a.buildGetter(metricsOn)
	a.pacer = a.buildPacer(metricsOn)
	if a.cursor, err = a.buildCursor(ctx); err != nil {
		return nil, err
	}
	if a.hub, err = a.buildHub(metricsOn); err != nil {
		return nil, err
	}
	a.pipeline = normalize.NewPipeline(sha256.New(), logger.Named("normalize"))
	if a.exporter, err = a.buildExporter(ctx); err != nil {
		return nil, err
	}
	if metricsOn {
		status := api.NewProgressHandler(a.status, logger.Named("api"))
		a.metrics = metrics.NewServer(cfg.Metrics.Addr, logger.Named("metrics"), status.Routes)
	}

	logger.Info("application services initialized",
		zap.Stringer("run_id", a.runID),
		zap.String("cursor", cfg.Cursor.Backend),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("metrics", metricsOn),
	)
	return a, nil
}

func (a *App) buildGetter(metricsOn bool) crawler.Getter {
	var getter crawler.Getter = collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Crawl.UserAgent,
		RespectRobots: a.cfg.Crawl.RespectRobots,
		Timeout:       a.cfg.HTTP.Timeout,
	})
	if metricsOn {
		getter = metrics.InstrumentGetter(getter)
	}
	return getter
}

func (a *App) buildPacer(metricsOn bool) *ratelimit.Pacer {
	pc := ratelimit.Config{Pause: a.cfg.Crawl.Pause}
	if metricsOn {
		pc.OnDelay = metrics.ObserveRateLimitDelay
	}
	return ratelimit.New(pc)
}

func (a *App) buildCursor(ctx context.Context) (crawler.Cursor, error) {
	switch a.cfg.Cursor.Backend {
	case config.BackendFile:
		cur, err := filecursor.New(a.cfg.Cursor.Dir, a.clock)
		if err != nil {
			return nil, fmt.Errorf("init file cursor: %w", err)
		}
		return cur, nil
	case config.BackendPostgres:
		cur, err := pgcursor.New(ctx, pgcursor.Config{DSN: a.cfg.Cursor.DSN, Table: a.cfg.Cursor.Table})
		if err != nil {
			return nil, fmt.Errorf("init postgres cursor: %w", err)
		}
		a.addCloser("postgres cursor", func(context.Context) error {
			cur.Close()
			return nil
		})
		return cur, nil
	default:
		return cursor.Nop{}, nil
	}
}

func (a *App) buildHub(metricsOn bool) (*progress.Hub, error) {
	hubSinks := []progress.Sink{sinks.NewLogSink(a.logger.Named("progress")), a.status}
	if metricsOn {
		promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		hubSinks = append(hubSinks, promSink)
	}
	return progress.NewHub(progress.Config{Logger: a.logger.Named("hub")}, hubSinks...), nil
}

func (a *App) buildExporter(ctx context.Context) (*export.Exporter, error) {
	var blobs storage.BlobStore
	switch a.cfg.Storage.Backend {
	case config.BackendLocal:
		s, err := local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		blobs = s
	case config.BackendGCS:
		s, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.addCloser("gcs storage", func(context.Context) error { return s.Close() })
		blobs = s
	}

	var publisher export.Publisher
	if a.cfg.PubSub.TopicName != "" {
		p, err := pubsubpublisher.Open(ctx, pubsubpublisher.Config{
			ProjectID: a.cfg.PubSub.ProjectID,
			TopicName: a.cfg.PubSub.TopicName,
		})
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.addCloser("pubsub publisher", func(context.Context) error { return p.Close() })
		publisher = p
	}

	return export.New(blobs, publisher, a.clock, export.Config{
		Prefix: a.cfg.Storage.Prefix,
		Topic:  a.cfg.PubSub.TopicName,
	}, a.logger.Named("export")), nil
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// RunID identifies this invocation in progress events.
func (a *App) RunID() googleuuid.UUID { return a.runID }

// Pipeline returns the normalization pipeline.
func (a *App) Pipeline() *normalize.Pipeline { return a.pipeline }

// Exporter returns the dataset exporter; it may be disabled.
func (a *App) Exporter() *export.Exporter { return a.exporter }

// Status returns the live crawl status repository.
func (a *App) Status() store.ProgressRepository { return a.status }

// Reporter returns an observer that turns driver notifications into progress events.
func (a *App) Reporter() *progress.Reporter {
	return progress.NewReporter(a.hub, a.runID, a.clock)
}

// Driver builds a crawl driver over the configured catalog, retry policy,
// pacer, and cursor.
func (a *App) Driver(resume bool, observer crawler.Observer) *crawler.Driver {
	fetcher := crawler.NewRecordFetcher(
		a.getter,
		a.cfg.CatalogLayout(),
		a.cfg.RetryPolicy(),
		nil,
		a.logger.Named("fetcher"),
	)
	return crawler.NewDriver(fetcher, crawler.Options{
		Alphabet:      a.cfg.Crawl.Alphabet,
		Concurrency:   a.cfg.Crawl.Concurrency,
		ProgressEvery: a.cfg.Crawl.ProgressEvery,
		Pacer:         a.pacer,
		Cursor:        a.cursor,
		Resume:        resume,
		Observer:      observer,
	}, a.logger.Named("driver"))
}

// OpenLog opens the append-only crawl log for kind.
func (a *App) OpenLog(kind codes.Kind) (*crawllog.File, error) {
	return crawllog.Open(a.cfg.LogPath(kind), crawllog.Options{Fsync: a.cfg.Output.Fsync})
}

// ServeMetrics starts the metrics endpoint when one is configured.
func (a *App) ServeMetrics() error {
	if a.metrics == nil {
		return nil
	}
	if err := a.metrics.Start(); err != nil {
		return err
	}
	a.addCloser("metrics server", a.metrics.Shutdown)
	return nil
}

// Close flushes progress events and releases every backend. Errors are
// logged and joined.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("shutting down application services")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	err := a.closeAll(ctx)
	_ = a.logger.Sync()
	return err
}

func (a *App) closeAll(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("error closing progress hub", zap.Error(err))
			errs = append(errs, err)
		}
		a.hub = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
