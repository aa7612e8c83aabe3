package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalDir writes objects as files below a directory.
type LocalDir struct {
	dir string
}

func NewLocalDir(dir string) *LocalDir {
	if dir == "" {
		dir = "."
	}
	return &LocalDir{dir: dir}
}

// EnsureBucket creates the directory.
func (l *LocalDir) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

// Put writes r to a temporary file and renames it into place.
func (l *LocalDir) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".linkshare-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short write: got %d of %d bytes", written, size)
	}
	return os.Rename(tmp.Name(), target)
}

// Location returns the file path of key.
func (l *LocalDir) Location(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
