package kvstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/kvsync/pkg/kvsync"
	"github.com/dmitrymomot/kvsync/pkg/logger"
)

var (
	_ kvsync.Store = (*Memory)(nil)
	_ kvsync.Store = (*Redis)(nil)
	_ kvsync.Store = (*Postgres)(nil)
	_ kvsync.Store = (*Mongo)(nil)
	_ kvsync.Store = (*S3)(nil)
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendS3       = "s3"
)

// Config selects a backend and carries the settings of every backend.
type Config struct {
	Backend  string `env:"KVSYNC_BACKEND" envDefault:"memory"`
	Memory   MemoryConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	S3       S3Config
}

// Open connects the configured backend. The returned close func releases
// its connections and is never nil.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (kvsync.Store, func() error, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Backend(cfg.Backend))
	noop := func() error { return nil }

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(cfg.Memory), noop, nil

	case BackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		log.DebugContext(ctx, "connected to redis")
		return NewRedis(client, cfg.Redis), client.Close, nil

	case BackendPostgres:
		pool, err := ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		if err := MigratePostgres(ctx, pool, cfg.Postgres, log); err != nil {
			pool.Close()
			return nil, noop, err
		}
		log.DebugContext(ctx, "connected to postgres")
		return NewPostgres(pool), func() error { pool.Close(); return nil }, nil

	case BackendMongo:
		client, err := ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, noop, err
		}
		log.DebugContext(ctx, "connected to mongo")
		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		return NewMongo(coll), func() error { return client.Disconnect(context.Background()) }, nil

	case BackendS3:
		store, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
