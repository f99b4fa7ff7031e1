package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/kvsync/pkg/kvstore"
	"github.com/dmitrymomot/kvsync/pkg/logger"
)

// appConfig is the environment-driven configuration of the CLI. Flags
// override Key, Codec, Timeout and LogLevel.
type appConfig struct {
	Env      string        `env:"APP_ENV" envDefault:"development"`
	LogLevel string        `env:"KVSYNC_LOG_LEVEL"`
	Key      string        `env:"KVSYNC_KEY"`
	Codec    string        `env:"KVSYNC_CODEC" envDefault:"string"`
	Timeout  time.Duration `env:"KVSYNC_TIMEOUT" envDefault:"10s"`

	Store kvstore.Config
}

func (c appConfig) newLogger(w io.Writer) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(c.Env, "kvsync"),
		logger.WithOutput(w),
	}
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(opts...), nil
}
