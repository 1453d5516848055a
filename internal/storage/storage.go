// Package storage defines where finished datasets are published. Backends
// live in the local, memory, and gcs subpackages.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// BlobStore uploads an object and returns a URI that locates it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// ObjectPath joins a prefix and name into a slash-separated object key.
func ObjectPath(prefix string, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		elems = append(elems, p)
	}
	elems = append(elems, parts...)
	return path.Join(elems...)
}
