package kvstore_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsync/pkg/kvstore"
)

// MockS3Client is a mock implementation of the S3Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func newTestS3(t *testing.T, client *MockS3Client) *kvstore.S3 {
	t.Helper()
	store, err := kvstore.NewS3(context.Background(), kvstore.S3Config{
		Bucket: "test-bucket",
		Region: "us-east-1",
		Prefix: "kv/",
	}, kvstore.WithS3Client(client))
	require.NoError(t, err)
	return store
}

func objectKey(key string) any {
	return mock.MatchedBy(func(in any) bool {
		switch v := in.(type) {
		case *s3.GetObjectInput:
			return *v.Bucket == "test-bucket" && *v.Key == key
		case *s3.PutObjectInput:
			return *v.Bucket == "test-bucket" && *v.Key == key
		case *s3.DeleteObjectInput:
			return *v.Bucket == "test-bucket" && *v.Key == key
		}
		return false
	})
}

func TestNewS3(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		store, err := kvstore.NewS3(context.Background(), kvstore.S3Config{
			Bucket:      "test-bucket",
			Region:      "us-east-1",
			AccessKeyID: "test-key",
			SecretKey:   "test-secret",
		})
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		store, err := kvstore.NewS3(context.Background(), kvstore.S3Config{Region: "us-east-1"})
		assert.ErrorIs(t, err, kvstore.ErrInvalidS3Config)
		assert.Nil(t, store)
	})
}

func TestS3GetItem(t *testing.T) {
	t.Parallel()

	t.Run("existing object", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("hello"))}, nil)

		v, ok, err := newTestS3(t, client).GetItem(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
		client.AssertExpectations(t)
	})

	t.Run("no such key", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(nil, &types.NoSuchKey{})

		_, ok, err := newTestS3(t, client).GetItem(context.Background(), "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not found api error", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "NotFound"})

		_, ok, err := newTestS3(t, client).GetItem(context.Background(), "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		apiErr := &smithy.GenericAPIError{Code: "AccessDenied"}
		client.On("GetObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(nil, apiErr)

		_, ok, err := newTestS3(t, client).GetItem(context.Background(), "k")
		assert.ErrorIs(t, err, apiErr)
		assert.False(t, ok)
	})
}

func TestS3SetAndRemove(t *testing.T) {
	t.Parallel()

	t.Run("put and delete", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("PutObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(&s3.PutObjectOutput{}, nil)
		client.On("DeleteObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(&s3.DeleteObjectOutput{}, nil)

		store := newTestS3(t, client)
		require.NoError(t, store.SetItem(context.Background(), "k", "v"))
		require.NoError(t, store.RemoveItem(context.Background(), "k"))
		client.AssertExpectations(t)
	})

	t.Run("put failure", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		errSlowDown := errors.New("slow down")
		client.On("PutObject", mock.Anything, objectKey("kv/k"), mock.Anything).
			Return(nil, errSlowDown)

		err := newTestS3(t, client).SetItem(context.Background(), "k", "v")
		assert.ErrorIs(t, err, errSlowDown)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()
		store := newTestS3(t, &MockS3Client{})
		assert.ErrorIs(t, store.SetItem(context.Background(), "", "v"), kvstore.ErrEmptyKey)
		assert.ErrorIs(t, store.RemoveItem(context.Background(), ""), kvstore.ErrEmptyKey)
	})
}
