package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sorynturda/link-sharing/config"
)

// ObjectStorage is a destination for downloaded files.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Location describes where key ends up, for display.
	Location(key string) string
}

// Sink wraps an ObjectStorage backend with a stable API.
type Sink struct {
	backend ObjectStorage
	prefix  string
}

// NewSink constructs a Sink for the provided backend. Keys are placed under
// prefix when it is not empty.
func NewSink(backend ObjectStorage, prefix string) *Sink {
	return &Sink{backend: backend, prefix: strings.Trim(prefix, "/")}
}

// New builds the sink selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (*Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewSink(NewLocalDir(cfg.Dir), ""), nil
	case "minio", "s3":
		backend, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return NewSink(backend, ""), nil
	case "gcs":
		backend, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return NewSink(backend, ""), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// WithPrefix returns a Sink writing to the same backend under prefix.
func (s *Sink) WithPrefix(prefix string) *Sink {
	return NewSink(s.backend, path.Join(s.prefix, prefix))
}

// EnsureBucket ensures the destination exists.
func (s *Sink) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Save writes r under name and returns its location.
func (s *Sink) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := s.key(name)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("save %s: %w", key, err)
	}
	return s.backend.Location(key), nil
}

func (s *Sink) key(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func exportMetadata() map[string]string {
	return map[string]string{"exported-by": "linkshare"}
}
