package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalDisk stores files under a base directory. This is the default
// backend; the stored path is the absolute filesystem path.
type LocalDisk struct {
	dir string
}

func NewLocalDisk(dir string) (*LocalDisk, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalDisk{dir: abs}, nil
}

func (l *LocalDisk) Upload(_ context.Context, objectName string, _ string, r io.Reader) (string, error) {
	dest := filepath.Join(l.dir, filepath.Base(objectName))

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	// fsync before the caller records the path; the document row must never
	// point at bytes that could vanish on a crash.
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (l *LocalDisk) Open(_ context.Context, storedPath string) (io.ReadCloser, error) {
	return os.Open(storedPath)
}

func (l *LocalDisk) Delete(_ context.Context, storedPath string) error {
	err := os.Remove(storedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
