package output

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSSink uploads artefacts to a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink uses credentialsPath when set, application default credentials otherwise.
func NewGCSSink(ctx context.Context, bucket, prefix, credentialsPath string) (*GCSSink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs output requires a bucket")
	}

	var client *storage.Client
	var err error

	if credentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSSink{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put streams r into the object. A failed copy closes the writer without
// committing, so no object is created.
func (g *GCSSink) Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	key := objectKey(g.prefix, name)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	size, err := io.Copy(writer, r)
	if err != nil {
		cancel()
		writer.Close()
		return nil, fmt.Errorf("failed to copy data to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return &Object{
		Name:        name,
		Location:    fmt.Sprintf("gs://%s/%s", g.bucket, key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Close releases the client.
func (g *GCSSink) Close() error {
	return g.client.Close()
}
