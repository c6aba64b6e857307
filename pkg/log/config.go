package log

import "fmt"

// Config is a declarative logger configuration, typically sourced from CLI
// flags or PULSE_LOG_LEVEL / PULSE_LOG_FORMAT environment variables.
type Config struct {
	// Level is one of debug|info|warn|error|fatal. Empty means info.
	Level string
	// Format is one of text|json. Empty means text.
	Format string
}

// ApplyConfig builds a Logger from a Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	), nil
}
