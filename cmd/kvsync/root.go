package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/kvsync/pkg/codec"
	"github.com/dmitrymomot/kvsync/pkg/config"
	"github.com/dmitrymomot/kvsync/pkg/kvstore"
	"github.com/dmitrymomot/kvsync/pkg/kvsync"
	"github.com/dmitrymomot/kvsync/pkg/logger"
)

var (
	errMissingKey  = errors.New("key is required: pass --key or set KVSYNC_KEY")
	errWriteFailed = errors.New("value was not stored")
)

// stopTimeout bounds how long the machine waits for a store call that
// ignores cancellation.
const stopTimeout = time.Second

// storeOpener connects the configured backend. kvstore.Open in production.
type storeOpener func(ctx context.Context, cfg kvstore.Config, log *slog.Logger) (kvsync.Store, func() error, error)

// app carries what the subcommands share once the root pre-run has loaded it.
type app struct {
	open storeOpener
	cfg  appConfig
	log  *slog.Logger

	flagKey      string
	flagCodec    string
	flagLogLevel string
	flagTimeout  time.Duration
}

func newRootCmd(open storeOpener) *cobra.Command {
	if open == nil {
		open = kvstore.Open
	}
	a := &app{open: open}

	root := &cobra.Command{
		Use:          "kvsync",
		Short:        "Keep a value in sync with a key-value store entry",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.flagKey, "key", "k", "", "Store key (or set KVSYNC_KEY)")
	root.PersistentFlags().StringVar(&a.flagCodec, "codec", "", "Value codec: string or json (or set KVSYNC_CODEC)")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (or set KVSYNC_LOG_LEVEL)")
	root.PersistentFlags().DurationVar(&a.flagTimeout, "timeout", 0, "Operation timeout (or set KVSYNC_TIMEOUT)")

	root.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Load the entry and print it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, nil)
			},
		},
		&cobra.Command{
			Use:   "set <value>",
			Short: "Store a new value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := args[0]
				return a.run(cmd, func(ctx context.Context, m *kvsync.Machine[string]) error {
					if err := m.Store(value); err != nil {
						return err
					}
					snap, err := m.Settle(ctx)
					if err != nil {
						return err
					}
					if _, ok := snap.Value(); !ok {
						return errWriteFailed
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, m *kvsync.Machine[string]) error {
					if err := m.Clear(); err != nil {
						return err
					}
					_, err := m.Settle(ctx)
					return err
				})
			},
		},
	)

	return root
}

// load reads the environment and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.Load(&a.cfg); err != nil {
		return err
	}

	if a.flagKey != "" {
		a.cfg.Key = a.flagKey
	}
	if a.flagCodec != "" {
		a.cfg.Codec = a.flagCodec
	}
	if a.flagLogLevel != "" {
		a.cfg.LogLevel = a.flagLogLevel
	}
	if a.flagTimeout > 0 {
		a.cfg.Timeout = a.flagTimeout
	}
	if a.cfg.Key == "" {
		return errMissingKey
	}

	log, err := a.cfg.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.log = log
	return nil
}

// run opens the store, loads the entry, applies op if any and prints the
// final snapshot.
func (a *app) run(cmd *cobra.Command, op func(ctx context.Context, m *kvsync.Machine[string]) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
	defer cancel()

	c, err := codec.ByName(a.cfg.Codec)
	if err != nil {
		return err
	}

	store, closeStore, err := a.open(ctx, a.cfg.Store, a.log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.log.WarnContext(ctx, "failed to close store", logger.Error(err))
		}
	}()

	m, err := kvsync.New(kvsync.Config[string]{
		Key:   a.cfg.Key,
		Codec: c,
		Store: store,
	}, kvsync.WithLogger(a.log), kvsync.WithStopTimeout(stopTimeout))
	if err != nil {
		return err
	}
	defer m.Stop()

	if err := m.Start(ctx); err != nil {
		return err
	}
	if _, err := m.Settle(ctx); err != nil {
		return err
	}

	if op != nil {
		if err := op(ctx, m); err != nil {
			return err
		}
	}

	return printSnapshot(cmd, a.cfg.Key, m.Snapshot())
}

type output struct {
	Key      string `json:"key"`
	State    string `json:"state"`
	HasValue bool   `json:"has_value"`
	Value    string `json:"value,omitempty"`
}

func printSnapshot(cmd *cobra.Command, key string, snap kvsync.Snapshot[string]) error {
	value, ok := snap.Value()
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(output{
		Key:      key,
		State:    snap.State.Name(),
		HasValue: ok,
		Value:    value,
	})
}
