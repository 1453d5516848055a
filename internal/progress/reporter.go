package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/crawler"
)

// Reporter implements crawler.Observer by emitting progress events for a
// single run.
type Reporter struct {
	emitter Emitter
	runID   [16]byte
	clock   crawler.Clock
	totals  map[codes.Kind]int64
}

var _ crawler.Observer = (*Reporter)(nil)

// NewReporter binds emitter to runID. A nil clock uses UTC wall time.
func NewReporter(emitter Emitter, runID uuid.UUID, clock crawler.Clock) *Reporter {
	return &Reporter{
		emitter: emitter,
		runID:   UUIDToBytes(runID),
		clock:   clock,
		totals:  make(map[codes.Kind]int64),
	}
}

func (r *Reporter) now() time.Time {
	if r.clock == nil {
		return time.Now().UTC()
	}
	return r.clock.Now()
}

func (r *Reporter) emit(kind codes.Kind, evt Event) {
	if r.emitter == nil {
		return
	}
	evt.RunID = r.runID
	evt.TS = r.now()
	evt.Kind = kind.String()
	if evt.Total == 0 {
		evt.Total = r.totals[kind]
	}
	r.emitter.Emit(evt)
}

// OnStart implements crawler.Observer.
func (r *Reporter) OnStart(kind codes.Kind, total int, resumeAfter string) {
	r.totals[kind] = int64(total)
	evt := Event{Stage: StageCrawlStart}
	if resumeAfter != "" {
		evt.Note = "resumed after " + resumeAfter
	}
	r.emit(kind, evt)
}

// OnProgress implements crawler.Observer.
func (r *Reporter) OnProgress(kind codes.Kind, processed int) {
	r.emit(kind, Event{Stage: StageCrawlProgress, Count: int64(processed)})
}

// OnRecords implements crawler.Observer.
func (r *Reporter) OnRecords(kind codes.Kind, code string, count int) {
	r.emit(kind, Event{Stage: StageCodeFound, Code: code, Count: int64(count)})
}

// OnSkip implements crawler.Observer.
func (r *Reporter) OnSkip(kind codes.Kind, code string, err error) {
	var parseErr *crawler.ParseError
	if errors.As(err, &parseErr) {
		r.emit(kind, Event{Stage: StageCodeMalformed, Code: code, Note: err.Error()})
		return
	}
	r.emit(kind, Event{Stage: StageCodeSkipped, Code: code})
}

// OnError implements crawler.Observer.
func (r *Reporter) OnError(kind codes.Kind, code string, err error) {
	evt := Event{Stage: StageCodeFailed, Code: code}
	if err != nil {
		evt.Note = err.Error()
	}
	r.emit(kind, evt)
}

// OnComplete implements crawler.Observer.
func (r *Reporter) OnComplete(summary crawler.Summary) {
	r.emit(summary.Kind, Event{
		Stage: StageCrawlDone,
		Count: int64(summary.Processed),
		Total: int64(summary.Total),
		Dur:   summary.Duration,
	})
}

// Fail reports a crawl that stopped before exhausting its code space.
func (r *Reporter) Fail(kind codes.Kind, dur time.Duration, err error) {
	evt := Event{Stage: StageCrawlError, Dur: dur}
	if err != nil {
		evt.Note = err.Error()
	}
	r.emit(kind, evt)
}
