// Package cursor holds resume checkpoints for interrupted crawls. Each code
// kind has at most one cursor: the last code whose results were fully written
// to the crawl log. Backends live in the file and postgres subpackages.
package cursor

import (
	"context"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

// Nop is a cursor that remembers nothing.
type Nop struct{}

// Load implements crawler.Cursor.
func (Nop) Load(context.Context, codes.Kind) (string, bool, error) { return "", false, nil }

// Save implements crawler.Cursor.
func (Nop) Save(context.Context, codes.Kind, string) error { return nil }

// Reset implements crawler.Cursor.
func (Nop) Reset(context.Context, codes.Kind) error { return nil }
