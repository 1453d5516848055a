// Package crawllog holds the append-only JSON Lines record logs a crawl
// writes to and the reader the normalizer loads them back with.
package crawllog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 1 << 20

// Options controls how a File log writes.
type Options struct {
	// Fsync forces every append to stable storage before Append returns.
	Fsync bool
}

// File appends records to a JSON Lines file. Existing content is never
// truncated, so reruns accumulate duplicates for the normalizer to collapse.
type File struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	fsync bool
}

// Open opens path for appending, creating it and its directory if needed.
func Open(path string, opts Options) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	// #nosec G304 -- the path comes from operator configuration.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open crawl log: %w", err)
	}
	return &File{path: path, file: f, fsync: opts.Fsync}, nil
}

// Path returns the file the log appends to.
func (l *File) Path() string {
	return l.path
}

// Append writes rec as one line.
func (l *File) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return os.ErrClosed
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", l.path, err)
	}
	if l.fsync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", l.path, err)
		}
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close crawl log: %w", err)
	}
	return nil
}

// Memory is an in-memory log for dry runs and tests.
type Memory struct {
	mu      sync.RWMutex
	records []record.Record
}

// NewMemory returns an empty Memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores rec.
func (m *Memory) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (m *Memory) Records() []record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]record.Record, len(m.records))
	copy(out, m.records)
	return out
}

// WriteTo writes the stored records as JSON Lines.
func (m *Memory) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, rec := range m.Records() {
		line, err := encodeLine(rec)
		if err != nil {
			return total, err
		}
		n, err := w.Write(line)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write record: %w", err)
		}
	}
	return total, nil
}

// LineError reports a line that does not hold a flat JSON object of strings.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ReadAll decodes every non-blank line of r. Line numbers in errors are
// 1-based and count blank lines.
func ReadAll(r io.Reader) ([]record.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var out []record.Record
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record.Record
		if err := rec.UnmarshalJSON(raw); err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("read crawl log: line longer than %d bytes: %w", maxLineSize, err)
		}
		return nil, fmt.Errorf("read crawl log: %w", err)
	}
	return out, nil
}

// ReadFile opens path and decodes it with ReadAll.
func ReadFile(path string) ([]record.Record, error) {
	// #nosec G304 -- the path comes from operator input.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadAll(f)
}

func encodeLine(rec record.Record) ([]byte, error) {
	data, err := rec.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(data, '\n'), nil
}
