package publish

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used for uploads.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher stores the report as an object named after the local file.
type S3Publisher struct {
	client S3API
	bucket string
}

// NewS3Publisher builds a publisher from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, bucket string) (*S3Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3PublisherWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3PublisherWithClient wraps an existing client.
func NewS3PublisherWithClient(client S3API, bucket string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket}
}

// Name implements Publisher.
func (p *S3Publisher) Name() string { return "s3" }

// Publish uploads data under the base name of name.
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	key := filepath.Base(name)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to bucket %s: %w", key, p.bucket, err)
	}

	return "s3://" + p.bucket + "/" + key, nil
}
