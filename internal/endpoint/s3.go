package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lodtree/lodtree/internal/octerr"
)

// s3Client is the subset of *s3.Client this endpoint calls, so tests
// can substitute a fake without spinning up real AWS credentials.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Endpoint persists chunk blobs as objects in one bucket, keyed by path.
type S3Endpoint struct {
	client s3Client
	bucket string
}

// NewS3Endpoint loads the default AWS config (environment, shared config
// file, or instance role, in that order) and targets bucket.
func NewS3Endpoint(ctx context.Context, bucket string) (*S3Endpoint, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("endpoint: load AWS config: %w", err)
	}
	return &S3Endpoint{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Endpoint) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("endpoint: s3 put %s: %w", path, err)
	}
	return nil
}

func (s *S3Endpoint) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, fmt.Errorf("endpoint: s3 get %s: %w", path, octerr.ErrChunkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint: s3 get %s: %w", path, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("endpoint: s3 read body %s: %w", path, err)
	}
	return data, nil
}
