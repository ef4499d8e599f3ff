package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/labelstore/remote"
)

// Store implements remote.ObjectStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
}

// NewStore creates a new MinIO object store.
func NewStore(client *minio.Client) *Store {
	return &Store{client: client}
}

// Config holds connection settings for New.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// New connects to endpoint with static credentials.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewStore(client), nil
}

// Get implements remote.ObjectStore.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, remote.ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; errors surface on the first read or Stat.
	info, err := obj.Stat()
	if err != nil {
		return nil, remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	return data, objectInfo(info.ETag, info.Size), nil
}

// Head implements remote.ObjectStore.
func (s *Store) Head(ctx context.Context, bucket, key string) (remote.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	return objectInfo(info.ETag, info.Size), nil
}

// Put implements remote.ObjectStore.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (remote.ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	return objectInfo(info.ETag, int64(len(data))), nil
}

func objectInfo(etag string, size int64) remote.ObjectInfo {
	return remote.ObjectInfo{ETag: etag, ContentLength: &size}
}

func mapError(err error, bucket, key string) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return fmt.Errorf("%w: s3://%s/%s: %w", remote.ErrObjectNotFound, bucket, key, err)
	}
	return err
}

var _ remote.ObjectStore = (*Store)(nil)
