// Package gcs provides an artifact uploader backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// Uploader writes artifacts to a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed uploader.
func New(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Save uploads data to the configured bucket under objectName.
func (u *Uploader) Save(ctx context.Context, objectName string, data []byte) error {
	if strings.TrimSpace(objectName) == "" {
		return fmt.Errorf("object name is required")
	}
	writer := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = "application/pdf"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// URI returns the gs:// location an object name maps to.
func (u *Uploader) URI(objectName string) string {
	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName)
}
