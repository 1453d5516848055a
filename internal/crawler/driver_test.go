package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// fakeFetcher answers from a per-code table; codes not listed yield ErrNoData.
type fakeFetcher struct {
	mu      sync.Mutex
	answers map[string]fakeAnswer
	seen    []string
}

type fakeAnswer struct {
	records []record.Record
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, code string, _ codes.Kind) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, code)
	answer, ok := f.answers[code]
	if !ok {
		return nil, ErrNoData
	}
	return answer.records, answer.err
}

func (f *fakeFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

type memoryLog struct {
	mu      sync.Mutex
	records []record.Record
	failOn  string
}

func (l *memoryLog) Append(_ context.Context, rec record.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOn != "" && rec.Value("code") == l.failOn {
		return errors.New("disk full")
	}
	l.records = append(l.records, rec)
	return nil
}

type recordingObserver struct {
	NopObserver
	mu        sync.Mutex
	progress  []int
	skipped   []string
	failed    []string
	completed *Summary
}

func (o *recordingObserver) OnProgress(_ codes.Kind, processed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, processed)
}

func (o *recordingObserver) OnSkip(_ codes.Kind, code string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, code)
}

func (o *recordingObserver) OnError(_ codes.Kind, code string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, code)
}

func (o *recordingObserver) OnComplete(s Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = &s
}

type memoryCursor struct {
	mu     sync.Mutex
	saved  map[codes.Kind]string
	saves  []string
	resets int
}

func newMemoryCursor() *memoryCursor {
	return &memoryCursor{saved: make(map[codes.Kind]string)}
}

func (c *memoryCursor) Load(_ context.Context, kind codes.Kind) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.saved[kind]
	return code, ok, nil
}

func (c *memoryCursor) Save(_ context.Context, kind codes.Kind, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved[kind] = code
	c.saves = append(c.saves, code)
	return nil
}

func (c *memoryCursor) Reset(_ context.Context, kind codes.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.saved, kind)
	c.resets++
	return nil
}

func row(code string) record.Record {
	return record.New("code", code)
}

func codesOf(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Value("code")
	}
	return out
}

func TestDriverAppendsOnlyFoundRecords(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"AB": {records: []record.Record{row("AB"), row("AB")}},
		"CA": {records: []record.Record{row("CA")}},
	}}
	log := &memoryLog{}
	obs := &recordingObserver{}
	driver := NewDriver(fetcher, Options{Alphabet: "ABC", Observer: obs}, nil)

	summary, err := driver.Run(context.Background(), codes.KindCarrier, log)
	require.NoError(t, err)
	require.Equal(t, []string{"AB", "AB", "CA"}, codesOf(log.records))
	require.Equal(t, 9, summary.Total)
	require.Equal(t, 9, summary.Processed)
	require.Equal(t, 3, summary.Records)
	require.Equal(t, 7, summary.Skipped)
	require.Equal(t, []string{"AA", "AB", "AC", "BA", "BB", "BC", "CA", "CB", "CC"}, fetcher.requested())
	require.NotNil(t, obs.completed)
	require.Equal(t, summary, *obs.completed)
}

func TestDriverIsolatesFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"AA": {err: &TransportError{Code: "AA", Attempts: 3, Err: errors.New("timeout")}},
		"AB": {err: &ParseError{Reason: "missing body"}},
		"BA": {records: []record.Record{row("BA")}},
	}}
	log := &memoryLog{}
	obs := &recordingObserver{}
	driver := NewDriver(fetcher, Options{Alphabet: "AB", Observer: obs}, nil)

	summary, err := driver.Run(context.Background(), codes.KindCarrier, log)
	require.NoError(t, err)
	require.Equal(t, []string{"BA"}, codesOf(log.records))
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Malformed)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 4, summary.Processed)
	require.Equal(t, []string{"AA"}, obs.failed)
	require.Equal(t, []string{"AB", "BB"}, obs.skipped)
}

func TestDriverLogsFailedCodes(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"AB": {err: &TransportError{Code: "AB", Attempts: 3, Err: errors.New("timeout")}},
		"BA": {err: &TransportError{Code: "BA", Attempts: 3, Err: errors.New("reset")}},
	}}
	driver := NewDriver(fetcher, Options{Alphabet: "AB"}, zap.New(core))

	summary, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Failed)

	entries := logs.FilterMessage("code failed").AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "AB", entries[0].ContextMap()["code"])
	require.Equal(t, "BA", entries[1].ContextMap()["code"])
	require.Equal(t, "carrier", entries[0].ContextMap()["kind"])
}

func TestDriverReportsProgressEveryN(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	driver := NewDriver(&fakeFetcher{}, Options{Alphabet: "ABCDE", ProgressEvery: 10, Observer: obs}, nil)

	_, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{})
	require.NoError(t, err)
	require.Equal(t, []int{10, 20}, obs.progress)
}

func TestDriverPreservesOrderWithConcurrency(t *testing.T) {
	t.Parallel()

	answers := make(map[string]fakeAnswer)
	space, err := codes.NewSpace("ABCD", 3)
	require.NoError(t, err)
	var want []string
	for code := range space.All() {
		if code[2] != 'D' {
			answers[code] = fakeAnswer{records: []record.Record{row(code)}}
			want = append(want, code)
		}
	}
	log := &memoryLog{}
	driver := NewDriver(&fakeFetcher{answers: answers}, Options{Alphabet: "ABCD", Concurrency: 8}, nil)

	summary, err := driver.Run(context.Background(), codes.KindAirport, log)
	require.NoError(t, err)
	require.Equal(t, want, codesOf(log.records))
	require.Equal(t, 64, summary.Processed)
}

func TestDriverStopsWhenLogFails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"AA": {records: []record.Record{row("AA")}},
		"AB": {records: []record.Record{row("AB")}},
		"BA": {records: []record.Record{row("BA")}},
	}}
	obs := &recordingObserver{}
	driver := NewDriver(fetcher, Options{Alphabet: "AB", Observer: obs}, nil)

	_, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{failOn: "AB"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Nil(t, obs.completed)
}

func TestDriverHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	driver := NewDriver(&fakeFetcher{}, Options{Alphabet: "AB"}, nil)

	_, err := driver.Run(ctx, codes.KindCarrier, &memoryLog{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDriverResumesFromCursor(t *testing.T) {
	t.Parallel()

	cursor := newMemoryCursor()
	require.NoError(t, cursor.Save(context.Background(), codes.KindCarrier, "AB"))
	fetcher := &fakeFetcher{}
	driver := NewDriver(fetcher, Options{Alphabet: "AB", Cursor: cursor, Resume: true}, nil)

	summary, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{})
	require.NoError(t, err)
	require.Equal(t, []string{"BA", "BB"}, fetcher.requested())
	require.Equal(t, "AB", summary.ResumedAfter)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, cursor.resets)
	_, ok, err := cursor.Load(context.Background(), codes.KindCarrier)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDriverIgnoresCursorWithoutResume(t *testing.T) {
	t.Parallel()

	cursor := newMemoryCursor()
	require.NoError(t, cursor.Save(context.Background(), codes.KindCarrier, "BA"))
	fetcher := &fakeFetcher{}
	driver := NewDriver(fetcher, Options{Alphabet: "AB", Cursor: cursor, ProgressEvery: 2}, nil)

	_, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{})
	require.NoError(t, err)
	require.Len(t, fetcher.requested(), 4)
	require.Equal(t, []string{"BA", "AB", "BB"}, cursor.saves)
}

func TestDriverSavesCursorOnFailure(t *testing.T) {
	t.Parallel()

	cursor := newMemoryCursor()
	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"BA": {records: []record.Record{row("BA")}},
	}}
	driver := NewDriver(fetcher, Options{Alphabet: "AB", Cursor: cursor}, nil)

	_, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{failOn: "BA"})
	require.Error(t, err)
	code, ok, err := cursor.Load(context.Background(), codes.KindCarrier)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "AB", code)
	require.Zero(t, cursor.resets)
}

func TestDriverRejectsBadAlphabet(t *testing.T) {
	t.Parallel()

	driver := NewDriver(&fakeFetcher{}, Options{Alphabet: "AA"}, nil)
	_, err := driver.Run(context.Background(), codes.KindCarrier, &memoryLog{})
	require.Error(t, err)
}

func ExampleDriver_Run() {
	fetcher := &fakeFetcher{answers: map[string]fakeAnswer{
		"XY": {records: []record.Record{record.New("Company name", "Example Air", "2-letter code", "XY")}},
	}}
	log := &memoryLog{}
	summary, err := NewDriver(fetcher, Options{Alphabet: "XY"}, nil).Run(context.Background(), codes.KindCarrier, log)
	if err != nil {
		panic(err)
	}
	fmt.Println(summary.Processed, summary.Records, log.records[0].Value("Company name"))
	// Output: 4 1 Example Air
}
