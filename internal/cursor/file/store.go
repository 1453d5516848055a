// Package file stores crawl cursors as small JSON documents on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

type clock interface {
	Now() time.Time
}

// Store keeps one <kind>.cursor.json file per kind under a directory.
type Store struct {
	mu    sync.Mutex
	dir   string
	clock clock
}

type document struct {
	Kind      string    `json:"kind"`
	Code      string    `json:"code"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates the directory if needed and returns a Store.
func New(dir string, clk clock) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cursor directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cursor directory: %w", err)
	}
	return &Store{dir: dir, clock: clk}, nil
}

// Path returns the file holding kind's cursor.
func (s *Store) Path(kind codes.Kind) string {
	return filepath.Join(s.dir, kind.String()+".cursor.json")
}

// Load returns the saved code for kind, if any.
func (s *Store) Load(_ context.Context, kind codes.Kind) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cursor: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false, fmt.Errorf("decode cursor %s: %w", s.Path(kind), err)
	}
	if doc.Kind != kind.String() {
		return "", false, fmt.Errorf("cursor %s belongs to kind %q", s.Path(kind), doc.Kind)
	}
	return doc.Code, doc.Code != "", nil
}

// Save records code as the last committed code for kind.
func (s *Store) Save(_ context.Context, kind codes.Kind, code string) error {
	doc := document{Kind: kind.String(), Code: code, UpdatedAt: s.now()}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, "."+kind.String()+".cursor.*")
	if err != nil {
		return fmt.Errorf("create cursor temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cursor: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(kind)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace cursor: %w", err)
	}
	return nil
}

// Reset forgets kind's cursor.
func (s *Store) Reset(_ context.Context, kind codes.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(kind)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cursor: %w", err)
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
