// Package logger provides a thin factory around log/slog with functional
// options and attribute helpers that keep key names consistent across the
// state machine, the store backends and the CLI.
//
// New builds a *slog.Logger writing JSON at info level to stdout unless told
// otherwise:
//
//	log := logger.New(
//	    logger.WithEnvironment("development", "kvsync"),
//	    logger.WithOutput(os.Stderr),
//	)
//	log.Debug("state transition", logger.State("idle"), logger.Event("clear value"))
//
// Discard returns a logger that drops everything; packages use it when the
// caller supplies no logger.
package logger
