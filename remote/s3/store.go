package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/labelstore/internal/hash"
	"github.com/hupe1980/labelstore/remote"
)

// DefaultRegion is used when neither AWS_REGION nor AWS_DEFAULT_REGION is set.
const DefaultRegion = "us-east-1"

// EndpointEnv names the variable holding a custom S3 endpoint.
const EndpointEnv = "AWS_ENDPOINT_URL_S3"

// Client is the subset of *s3.Client the store uses.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// UploadConfig configures uploads.
type UploadConfig struct {
	// MultipartThreshold is the size from which the upload manager is used.
	// Default: 16MB
	MultipartThreshold int64

	// PartSize is the part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum attaches CRC32C checksums.
	// Default: true
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		MultipartThreshold: 16 * 1024 * 1024,
		PartSize:           8 * 1024 * 1024,
		Concurrency:        5,
		EnableChecksum:     true,
	}
}

// Store implements remote.ObjectStore for S3.
type Store struct {
	client   Client
	uploader *manager.Uploader
	cfg      UploadConfig
}

// NewStore creates a store on top of client.
func NewStore(client Client, optFns ...func(*UploadConfig)) *Store {
	cfg := DefaultUploadConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	return &Store{
		client: client,
		cfg:    cfg,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = cfg.PartSize
			u.Concurrency = cfg.Concurrency
		}),
	}
}

// Region returns the region from the environment, or DefaultRegion.
func Region() string {
	for _, env := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if r := os.Getenv(env); r != "" {
			return r
		}
	}
	return DefaultRegion
}

// New loads the default AWS configuration from the environment and returns a
// store using it.
func New(ctx context.Context, optFns ...func(*UploadConfig)) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(Region()))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := os.Getenv(EndpointEnv)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewStore(client, optFns...), nil
}

// Get implements remote.ObjectStore.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, remote.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, remote.ObjectInfo{}, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return data, remote.ObjectInfo{
		ETag:          aws.ToString(out.ETag),
		ContentLength: out.ContentLength,
	}, nil
}

// Head implements remote.ObjectStore.
func (s *Store) Head(ctx context.Context, bucket, key string) (remote.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	return remote.ObjectInfo{
		ETag:          aws.ToString(out.ETag),
		ContentLength: out.ContentLength,
	}, nil
}

// Put implements remote.ObjectStore.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (remote.ObjectInfo, error) {
	size := int64(len(data))

	if size >= s.cfg.MultipartThreshold {
		input := &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		}
		if s.cfg.EnableChecksum {
			input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		}
		out, err := s.uploader.Upload(ctx, input)
		if err != nil {
			return remote.ObjectInfo{}, mapError(err, bucket, key)
		}
		return remote.ObjectInfo{ETag: aws.ToString(out.ETag), ContentLength: &size}, nil
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if s.cfg.EnableChecksum {
		input.ChecksumCRC32C = aws.String(hash.CRC32CBase64(data))
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return remote.ObjectInfo{}, mapError(err, bucket, key)
	}
	return remote.ObjectInfo{ETag: aws.ToString(out.ETag), ContentLength: &size}, nil
}

// mapError translates missing-object responses to remote.ErrObjectNotFound.
func mapError(err error, bucket, key string) error {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: s3://%s/%s: %w", remote.ErrObjectNotFound, bucket, key, err)
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: s3://%s/%s: %w", remote.ErrObjectNotFound, bucket, key, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%w: s3://%s/%s: %w", remote.ErrObjectNotFound, bucket, key, err)
		}
	}
	return err
}

var _ remote.ObjectStore = (*Store)(nil)
