package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PULSE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PULSE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("PULSE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PULSE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("PULSE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("PULSE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capacity = n
		}
	}
	if v := os.Getenv("PULSE_UPLOAD_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UploadIntervalMs = n
		}
	}
	if v := os.Getenv("PULSE_DEBOUNCE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DebounceDelayMs = n
		}
	}
	if v := os.Getenv("PULSE_REQUEST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeoutMs = n
		}
	}
	if v := os.Getenv("PULSE_COMPRESSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Compression = b
		}
	}
	if v := os.Getenv("PULSE_INGEST_FILTER"); v != "" {
		cfg.IngestFilter = v
	}
}
