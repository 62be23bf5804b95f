// Package gcs archives rendered HTML snapshots to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// BlobStore implements event.BlobStore on a GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New initializes a GCS client and verifies bucket access. Authentication
// uses Application Default Credentials.
func New(ctx context.Context, bucket, prefix string) (*BlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bucket %q attributes: %w", bucket, err)
	}
	return &BlobStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Save uploads data to an object under the configured prefix.
func (b *BlobStore) Save(ctx context.Context, objectName string, data []byte) error {
	name := objectName
	if b.prefix != "" {
		name = b.prefix + "/" + objectName
	}
	wc := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = "text/html; charset=utf-8"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (b *BlobStore) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
