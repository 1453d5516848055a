package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
)

// LogSink writes progress events as structured log lines. Per-code skips are
// logged at debug level since most codes have no catalog entry.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("run_id", evt.RunUUID()),
			zap.String("kind", evt.Kind),
		}
		if evt.Code != "" {
			fields = append(fields, zap.String("code", evt.Code))
		}
		switch evt.Stage {
		case progress.StageCrawlStart:
			fields = append(fields, zap.Int64("total", evt.Total))
		case progress.StageCrawlProgress, progress.StageCrawlDone:
			fields = append(fields, zap.Int64("processed", evt.Count), zap.Int64("total", evt.Total))
		case progress.StageCodeFound:
			fields = append(fields, zap.Int64("records", evt.Count))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Log(levelFor(evt.Stage), message(evt.Stage), fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func levelFor(stage progress.Stage) zapcore.Level {
	switch stage {
	case progress.StageCodeSkipped:
		return zapcore.DebugLevel
	case progress.StageCodeMalformed, progress.StageCodeFailed:
		return zapcore.WarnLevel
	case progress.StageCrawlError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func message(stage progress.Stage) string {
	switch stage {
	case progress.StageCrawlStart:
		return "crawl started"
	case progress.StageCrawlProgress:
		return "crawl progress"
	case progress.StageCrawlDone:
		return "crawl finished"
	case progress.StageCrawlError:
		return "crawl stopped"
	case progress.StageCodeFound:
		return "records found"
	case progress.StageCodeSkipped:
		return "no record found"
	case progress.StageCodeMalformed:
		return "malformed result table"
	case progress.StageCodeFailed:
		return "code failed after retries"
	default:
		return "progress event"
	}
}
