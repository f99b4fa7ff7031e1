package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cache holds one parsed copy per configuration type.
type cache struct {
	mu     sync.Mutex
	values map[reflect.Type]any
}

var (
	globalCache = &cache{values: make(map[reflect.Type]any)}

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into v using `env` and `envDefault`
// struct tags. The default .env file, if present, is read once before the
// first parse. Each configuration type is parsed once; later calls copy the
// cached value.
//
//	var cfg kvstore.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := reflect.TypeFor[T]()

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	if cached, ok := globalCache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	globalCache.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. Earlier files win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// ResetCache forgets every parsed configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	clear(globalCache.values)
	globalCache.mu.Unlock()
}
