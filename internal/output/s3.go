package output

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink uploads artefacts to an S3 bucket.
type S3Sink struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Sink loads the default AWS configuration, overriding the region and
// static credentials when given.
func NewS3Sink(ctx context.Context, bucket, prefix, region, accessKeyID, secretAccessKey string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 output requires a bucket")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if region != "" {
		awsCfg.Region = region
	}
	if accessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
	}

	return &S3Sink{
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

// Put uploads r. Multipart uploads that fail are aborted by the uploader.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	key := objectKey(s.prefix, name)

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}

	location := out.Location
	if location == "" {
		location = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	}
	return &Object{
		Name:        name,
		Location:    location,
		Size:        int64(len(body)),
		ContentType: contentType,
	}, nil
}
