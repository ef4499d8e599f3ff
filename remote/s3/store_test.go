package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/labelstore/internal/hash"
	"github.com/hupe1980/labelstore/remote"
)

func TestStore_Head(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient)

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "bucket" && *input.Key == "missing.json"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Head(context.Background(), "bucket", "missing.json")
		assert.ErrorIs(t, err, remote.ErrObjectNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "bucket" && *input.Key == "data.json"
		})).Return(&s3.HeadObjectOutput{
			ETag:          aws.String(`"abc"`),
			ContentLength: aws.Int64(42),
		}, nil).Once()

		info, err := store.Head(context.Background(), "bucket", "data.json")
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, info.ETag)
		require.NotNil(t, info.ContentLength)
		assert.Equal(t, int64(42), *info.ContentLength)
	})

	mockClient.AssertExpectations(t)
}

func TestStore_Get(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient)

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "bucket" && *input.Key == "data.json"
	})).Return(&s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(`{"images":[]}`)),
		ETag:          aws.String(`"e1"`),
		ContentLength: aws.Int64(13),
	}, nil).Once()

	data, info, err := store.Get(context.Background(), "bucket", "data.json")
	require.NoError(t, err)
	assert.Equal(t, `{"images":[]}`, string(data))
	assert.Equal(t, `"e1"`, info.ETag)

	mockClient.On("GetObject", mock.Anything, mock.Anything).
		Return(nil, &types.NoSuchKey{}).Once()

	_, _, err = store.Get(context.Background(), "bucket", "gone.json")
	assert.ErrorIs(t, err, remote.ErrObjectNotFound)
}

func TestStore_PutWithChecksum(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient)
	payload := []byte(`{"annotations":[]}`)

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "bucket" &&
			*input.Key == "out.json" &&
			aws.ToString(input.ContentType) == remote.ContentTypeJSON &&
			aws.ToInt64(input.ContentLength) == int64(len(payload)) &&
			aws.ToString(input.ChecksumCRC32C) == hash.CRC32CBase64(payload)
	})).Return(&s3.PutObjectOutput{ETag: aws.String(`"new"`)}, nil).Once()

	info, err := store.Put(context.Background(), "bucket", "out.json", payload, remote.ContentTypeJSON)
	require.NoError(t, err)
	assert.Equal(t, `"new"`, info.ETag)
	assert.Equal(t, int64(len(payload)), *info.ContentLength)
	mockClient.AssertExpectations(t)
}

func TestStore_PutWithoutChecksum(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, func(c *UploadConfig) { c.EnableChecksum = false })

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return input.ChecksumCRC32C == nil
	})).Return(&s3.PutObjectOutput{ETag: aws.String(`"x"`)}, nil).Once()

	_, err := store.Put(context.Background(), "bucket", "out.json", []byte("{}"), remote.ContentTypeJSON)
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestMapError(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "NoSuchKey", Message: "gone"}
	assert.ErrorIs(t, mapError(apiErr, "b", "k"), remote.ErrObjectNotFound)

	denied := &smithy.GenericAPIError{Code: "AccessDenied"}
	err := mapError(denied, "b", "k")
	assert.False(t, errors.Is(err, remote.ErrObjectNotFound))
	assert.Equal(t, denied, err)
}

func TestRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	assert.Equal(t, DefaultRegion, Region())

	t.Setenv("AWS_DEFAULT_REGION", "eu-west-1")
	assert.Equal(t, "eu-west-1", Region())

	t.Setenv("AWS_REGION", "eu-central-1")
	assert.Equal(t, "eu-central-1", Region())
}
