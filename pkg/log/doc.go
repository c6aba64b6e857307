// Package log provides Mobile Pulse's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a bridge handler that routes records through the
// formatter/output pipeline, so output stays consistent across the codebase
// while remaining slog-compatible.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("uploader"))
//	l.Info("batch delivered", log.Int("events", 50))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config with level and
// format strings, as read from flags or PULSE_LOG_* environment variables.
//
// # Interop
//
// To integrate with libraries expecting the standard library logger (Pebble
// among them), use RedirectStdLog or ToStdLogger.
package log
