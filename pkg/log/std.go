package log

import (
	stdlog "log"
	"strings"
)

// stdWriter adapts a Logger to io.Writer so the standard library logger can
// feed into it. Each Write call is treated as one message.
type stdWriter struct {
	logger Logger
	level  Level
}

func (w *stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}

// ToStdLogger returns a standard library *log.Logger that writes through the
// given Logger at the given level.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(&stdWriter{logger: logger, level: level}, "", 0)
}

// RedirectStdLog routes the standard library's default logger (used by Pebble
// among others) through the given Logger at InfoLevel.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(&stdWriter{logger: logger, level: InfoLevel})
}
