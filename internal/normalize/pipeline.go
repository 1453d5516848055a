package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/crawllog"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// OutputSuffix replaces the input extension to form the output file name.
const OutputSuffix = "_processed.jsonl"

// Hasher computes a content digest for the written dataset.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Result describes one normalization run.
type Result struct {
	Kind       codes.Kind
	InputPath  string
	OutputPath string
	Loaded     int
	Unique     int
	Checksum   string
}

// Pipeline loads a crawl log, canonicalizes it, and writes the dataset next
// to the input.
type Pipeline struct {
	hasher Hasher
	logger *zap.Logger
}

// NewPipeline builds a Pipeline. The hasher is optional; without one Result
// carries no checksum.
func NewPipeline(hasher Hasher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{hasher: hasher, logger: logger}
}

// OutputPath derives the dataset path for inputPath. Leading dots of the file
// name are not an extension, so ".jsonl" becomes ".jsonl_processed.jsonl".
func OutputPath(inputPath string) string {
	if !strings.Contains(strings.TrimLeft(filepath.Base(inputPath), "."), ".") {
		return inputPath + OutputSuffix
	}
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + OutputSuffix
}

// Normalize runs the pipeline over inputPath. Nothing is written unless every
// line of the input decodes.
func (p *Pipeline) Normalize(ctx context.Context, inputPath string, kind codes.Kind) (Result, error) {
	result := Result{Kind: kind, InputPath: inputPath, OutputPath: OutputPath(inputPath)}
	if _, err := Schema(kind); err != nil {
		return result, err
	}
	info, err := os.Stat(inputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return result, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
	case err != nil:
		return result, fmt.Errorf("stat input: %w", err)
	case info.IsDir():
		return result, fmt.Errorf("input %s is a directory", inputPath)
	}

	records, err := crawllog.ReadFile(inputPath)
	if err != nil {
		var lineErr *crawllog.LineError
		if errors.As(err, &lineErr) {
			return result, &SchemaError{Path: inputPath, Line: lineErr.Line, Err: lineErr.Err}
		}
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	result.Loaded = len(records)

	canonical, err := Canonicalize(records, kind)
	if err != nil {
		return result, err
	}
	result.Unique = len(canonical)

	data, err := encode(canonical)
	if err != nil {
		return result, err
	}
	if p.hasher != nil {
		sum, err := p.hasher.Hash(data)
		if err != nil {
			return result, fmt.Errorf("hash dataset: %w", err)
		}
		result.Checksum = sum
	}
	if err := writeAtomic(result.OutputPath, data); err != nil {
		return result, err
	}

	p.logger.Info("dataset normalized",
		zap.Stringer("kind", kind),
		zap.String("input", inputPath),
		zap.String("output", result.OutputPath),
		zap.Int("loaded", result.Loaded),
		zap.Int("unique", result.Unique),
	)
	return result, nil
}

func encode(records []record.Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := rec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path with data via a temp file in the same directory,
// so readers never observe a partial dataset.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close output: %w", err)
	}
	// #nosec G302 -- datasets are meant to be readable by other tools.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
