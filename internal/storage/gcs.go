package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCS stores files in a Cloud Storage bucket; the stored path is the object
// key.
type GCS struct {
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCS{client: c, bucket: bucket}, nil
}

func (u *GCS) Close() error { return u.client.Close() }

func (u *GCS) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	obj := u.client.Bucket(u.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return objectName, nil
}

func (u *GCS) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	return u.client.Bucket(u.bucket).Object(storedPath).NewReader(ctx)
}

func (u *GCS) Delete(ctx context.Context, storedPath string) error {
	err := u.client.Bucket(u.bucket).Object(storedPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}
