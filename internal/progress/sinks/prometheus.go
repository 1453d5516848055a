package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
)

// Outcome labels for iata_codes_processed_total.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// PrometheusSink exports crawl progress via Prometheus.
type PrometheusSink struct {
	crawlsStarted   *prometheus.CounterVec
	crawlsCompleted *prometheus.CounterVec
	crawlRuntime    *prometheus.HistogramVec
	codesProcessed  *prometheus.CounterVec
	recordsFound    *prometheus.CounterVec
	progress        *prometheus.GaugeVec
	spaceSize       *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		crawlsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iata_crawls_started_total",
			Help: "Code-space crawls started, by kind.",
		}, []string{"kind"}),
		crawlsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iata_crawls_completed_total",
			Help: "Code-space crawls finished, by kind and result.",
		}, []string{"kind", "result"}),
		crawlRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iata_crawl_runtime_seconds",
			Help:    "Wall time per finished crawl.",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
		}, []string{"kind", "result"}),
		codesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iata_codes_processed_total",
			Help: "Codes probed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		recordsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iata_records_found_total",
			Help: "Records appended to the crawl log, by kind.",
		}, []string{"kind"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iata_crawl_processed_codes",
			Help: "Codes processed so far in the current crawl.",
		}, []string{"kind"}),
		spaceSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iata_crawl_space_size",
			Help: "Number of codes in the space being crawled.",
		}, []string{"kind"}),
	}
	for _, collector := range []prometheus.Collector{
		s.crawlsStarted,
		s.crawlsCompleted,
		s.crawlRuntime,
		s.codesProcessed,
		s.recordsFound,
		s.progress,
		s.spaceSize,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	kind := evt.Kind
	switch evt.Stage {
	case progress.StageCrawlStart:
		s.crawlsStarted.WithLabelValues(kind).Inc()
		s.spaceSize.WithLabelValues(kind).Set(float64(evt.Total))
		s.progress.WithLabelValues(kind).Set(0)
	case progress.StageCrawlProgress:
		s.progress.WithLabelValues(kind).Set(float64(evt.Count))
	case progress.StageCrawlDone:
		s.progress.WithLabelValues(kind).Set(float64(evt.Count))
		s.finish(kind, "success", evt)
	case progress.StageCrawlError:
		s.finish(kind, "error", evt)
	case progress.StageCodeFound:
		s.codesProcessed.WithLabelValues(kind, OutcomeFound).Inc()
		s.recordsFound.WithLabelValues(kind).Add(float64(evt.Count))
	case progress.StageCodeSkipped:
		s.codesProcessed.WithLabelValues(kind, OutcomeNotFound).Inc()
	case progress.StageCodeMalformed:
		s.codesProcessed.WithLabelValues(kind, OutcomeMalformed).Inc()
	case progress.StageCodeFailed:
		s.codesProcessed.WithLabelValues(kind, OutcomeFailed).Inc()
	}
}

func (s *PrometheusSink) finish(kind, result string, evt progress.Event) {
	s.crawlsCompleted.WithLabelValues(kind, result).Inc()
	if evt.Dur > 0 {
		s.crawlRuntime.WithLabelValues(kind, result).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
