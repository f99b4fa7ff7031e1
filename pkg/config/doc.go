// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: Load
// reads the optional .env file once, parses the environment into any struct
// annotated with `env` tags and caches the result per type. Nested structs
// are parsed recursively, which is how the kvsync CLI assembles its settings
// from the per-backend structs of package kvstore.
//
//	type Settings struct {
//	    Key     string `env:"KVSYNC_KEY,required"`
//	    Timeout time.Duration `env:"KVSYNC_TIMEOUT" envDefault:"10s"`
//	}
//
//	var s Settings
//	if err := config.Load(&s); err != nil {
//	    return err
//	}
//
// LoadEnv reads extra .env files before the first Load. ResetCache clears the
// cache between tests.
//
// Errors are sentinels for errors.Is: ErrParsingConfig, ErrLoadingEnvFile and
// ErrNilPointer.
package config
