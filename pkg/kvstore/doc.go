// Package kvstore provides the persistent key-value backends a kvsync
// machine can be bound to.
//
// Every backend implements kvsync.Store: GetItem reports a missing key as
// ok == false with a nil error, SetItem overwrites, RemoveItem is idempotent.
// Empty keys are rejected with ErrEmptyKey.
//
//   - Memory: in-process, backed by github.com/patrickmn/go-cache, with an
//     optional TTL and a byte quota that makes writes fail when full.
//   - Redis: plain string keys under a prefix, via github.com/redis/go-redis/v9.
//   - Postgres: the kv_items table, created by MigratePostgres from embedded
//     goose migrations, via github.com/jackc/pgx/v5.
//   - Mongo: one document per key in a collection, via the v2 driver.
//   - S3: one object per key under a prefix, via aws-sdk-go-v2.
//
// Each networked backend has a Connect function that retries the initial
// dial and a Healthcheck returning a func(context.Context) error probe.
// Configuration structs carry env tags for github.com/caarlos0/env, and Open
// picks a backend from Config.Backend:
//
//	var cfg kvstore.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	store, closeStore, err := kvstore.Open(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer closeStore()
package kvstore
