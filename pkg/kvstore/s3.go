package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures the bucket holding entries.
type S3Config struct {
	Bucket         string `env:"S3_BUCKET"`
	Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`                            // Optional: for S3-compatible services
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"` // For S3-compatible services like MinIO
	Prefix         string `env:"S3_PREFIX" envDefault:"kvsync/"`         // Prefix is prepended to every object key.
}

// S3Client defines the S3 operations used by the store.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Option configures NewS3.
type S3Option func(*s3Options)

type s3Options struct {
	client          S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
}

// WithS3Client sets a pre-configured client. Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// S3 stores each entry as one object under Prefix.
type S3 struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 builds an S3-backed store. It is safe for concurrent use.
func NewS3(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidS3Config
	}

	o := &s3Options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		awsOptions = append(awsOptions, o.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// GetItem maps a missing object to absence.
func (s *S3) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if isS3NotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("read object: %w", err)
	}
	return string(b), true, nil
}

func (s *S3) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + key),
		Body:          strings.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// RemoveItem deletes the object; S3 treats deleting a missing key as success.
func (s *S3) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
