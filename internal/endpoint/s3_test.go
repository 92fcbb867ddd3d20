package endpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtree/lodtree/internal/octerr"
)

type fakeS3Client struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{objects: make(map[string][]byte)}
}

func (f *fakeS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3_PutGetRoundTrip(t *testing.T) {
	client := newFakeS3Client()
	s3ep := &S3Endpoint{client: client, bucket: "chunks"}

	ctx := context.Background()
	require.NoError(t, s3ep.Put(ctx, "12345", []byte("chunk-bytes")))

	got, err := s3ep.Get(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk-bytes"), got)
}

func TestS3_GetMissingKeyErrors(t *testing.T) {
	client := newFakeS3Client()
	s3ep := &S3Endpoint{client: client, bucket: "chunks"}

	_, err := s3ep.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestS3_GetNoSuchKeyWrapsChunkNotFound(t *testing.T) {
	client := newFakeS3Client()
	client.getErr = &types.NoSuchKey{}
	s3ep := &S3Endpoint{client: client, bucket: "chunks"}

	_, err := s3ep.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, octerr.ErrChunkNotFound)
}
