// Package output stores exported templates and filled documents. A write
// either lands completely or not at all.
package output

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Content types of the two exported artefacts.
const (
	ContentTypeJSON = "application/json"
	ContentTypePDF  = "application/pdf"
	ContentTypePNG  = "image/png"
)

// Object describes a stored artefact.
type Object struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Sink receives exported artefacts.
type Sink interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error)
}

// Options selects and configures a sink.
type Options struct {
	Kind            string
	Dir             string
	Bucket          string
	Prefix          string
	GCSCredentials  string
	S3Region        string
	AccessKeyID     string
	SecretAccessKey string
}

// Sink kinds accepted by New.
const (
	KindLocal = "local"
	KindGCS   = "gcs"
	KindS3    = "s3"
)

// New builds the sink named by opts.Kind.
func New(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Kind {
	case "", KindLocal:
		return NewLocalSink(opts.Dir)
	case KindGCS:
		return NewGCSSink(ctx, opts.Bucket, opts.Prefix, opts.GCSCredentials)
	case KindS3:
		return NewS3Sink(ctx, opts.Bucket, opts.Prefix, opts.S3Region, opts.AccessKeyID, opts.SecretAccessKey)
	default:
		return nil, fmt.Errorf("unknown output kind %q", opts.Kind)
	}
}

// CleanName reduces name to a single safe path element.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\x00", "")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return base, nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(strings.Trim(prefix, "/"), name)
}
