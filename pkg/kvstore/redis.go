package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis connection and key layout.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL is in the format "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`            // RetryInterval is the pause between connection attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`          // ConnectTimeout bounds the whole connection procedure.
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"kvsync:"`           // KeyPrefix is prepended to every key.
	TTL            time.Duration `env:"REDIS_TTL" envDefault:"0s"`                       // TTL is the expiration of written keys; zero means none.
}

// ConnectRedis dials Redis and pings it, retrying RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisHealthcheck returns a probe that pings the server.
func RedisHealthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// redisClient is the subset of redis.UniversalClient the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores each entry as a plain string key.
type Redis struct {
	db     redisClient
	prefix string
	ttl    time.Duration
}

// NewRedis wraps a connected client. Prefix and TTL come from cfg.
func NewRedis(client redisClient, cfg RedisConfig) *Redis {
	return &Redis{
		db:     client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}
}

// GetItem maps redis.Nil to absence.
func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	val, err := r.db.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetItem writes value with the configured TTL. Zero TTL means no expiration.
func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.db.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.db.Del(ctx, r.prefix+key).Err()
}
