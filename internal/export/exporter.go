// Package export publishes a normalized dataset: the file is uploaded to a
// blob store and a notification describing it is sent to a topic.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/normalize"
	"github.com/JakeFAU/iata-code-fetcher/internal/storage"
)

// ContentType is the media type datasets are uploaded with.
const ContentType = "application/x-ndjson"

// Publisher sends a JSON-encodable payload to a topic and returns its message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Notification announces a freshly produced dataset.
type Notification struct {
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	Output     string    `json:"output"`
	URI        string    `json:"uri,omitempty"`
	Records    int       `json:"records"`
	SHA256     string    `json:"sha256,omitempty"`
	ProducedAt time.Time `json:"produced_at"`
}

// Attributes are attached to Pub/Sub messages so subscribers can filter by kind.
func (n Notification) Attributes() map[string]string {
	return map[string]string{"kind": n.Kind, "sha256": n.SHA256}
}

// Config names where datasets go.
type Config struct {
	Prefix string
	Topic  string
}

// Exporter uploads and announces datasets. Either side may be nil.
type Exporter struct {
	store     storage.BlobStore
	publisher Publisher
	clock     Clock
	cfg       Config
	logger    *zap.Logger
}

// New builds an Exporter.
func New(store storage.BlobStore, publisher Publisher, clock Clock, cfg Config, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, publisher: publisher, clock: clock, cfg: cfg, logger: logger}
}

// Enabled reports whether Export would do anything.
func (e *Exporter) Enabled() bool {
	return e != nil && (e.store != nil || e.publisher != nil)
}

// Export uploads res.OutputPath under <prefix>/<kind>/<file> and publishes
// the resulting Notification.
func (e *Exporter) Export(ctx context.Context, res normalize.Result) (Notification, error) {
	note := Notification{
		Kind:       res.Kind.String(),
		Source:     res.InputPath,
		Output:     res.OutputPath,
		Records:    res.Unique,
		SHA256:     res.Checksum,
		ProducedAt: e.now(),
	}

	if e.store != nil {
		uri, err := e.upload(ctx, res)
		if err != nil {
			return note, err
		}
		note.URI = uri
		e.logger.Info("dataset uploaded", zap.String("kind", note.Kind), zap.String("uri", uri))
	}

	if e.publisher != nil {
		id, err := e.publisher.Publish(ctx, e.cfg.Topic, note)
		if err != nil {
			return note, fmt.Errorf("publish %s notification: %w", note.Kind, err)
		}
		e.logger.Info("dataset announced",
			zap.String("kind", note.Kind),
			zap.String("topic", e.cfg.Topic),
			zap.String("message_id", id),
		)
	}
	return note, nil
}

func (e *Exporter) upload(ctx context.Context, res normalize.Result) (string, error) {
	f, err := os.Open(res.OutputPath)
	if err != nil {
		return "", fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close dataset", zap.String("path", res.OutputPath), zap.Error(cerr))
		}
	}()

	key := storage.ObjectPath(e.cfg.Prefix, res.Kind.String(), filepath.Base(res.OutputPath))
	uri, err := e.store.PutObject(ctx, key, ContentType, f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return uri, nil
}

func (e *Exporter) now() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock.Now()
}
