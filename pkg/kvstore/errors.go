package kvstore

import "errors"

var (
	// ErrEmptyKey is returned by every backend for an empty key.
	ErrEmptyKey = errors.New("kvstore: key cannot be empty")

	// ErrQuotaExceeded is returned when a write would push the memory store over its quota.
	ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")

	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")

	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

	ErrInvalidS3Config    = errors.New("kvstore: s3 bucket and region are required")
	ErrFailedToLoadConfig = errors.New("kvstore: failed to load aws config")

	ErrHealthcheckFailed = errors.New("kvstore: healthcheck failed")
	ErrUnknownBackend    = errors.New("kvstore: unknown backend")
)
