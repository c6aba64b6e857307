// Package config loads and validates the agent configuration.
//
// Precedence, lowest to highest: built-in defaults, a JSON or YAML config
// file, PULSE_* environment variables, CLI flags (applied by the caller).
// Durations are carried as milliseconds to match the collector-facing
// defaults (uploadIntervalMs=30000, debounceDelayMs=2000).
package config
