package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level agent configuration loaded from file/env.
type Config struct {
	// ServerURL is the collector endpoint batches are POSTed to.
	ServerURL string `json:"serverUrl" yaml:"serverUrl"`
	// APIKey, when set, is sent as a bearer token on every upload.
	APIKey string `json:"apiKey" yaml:"apiKey"`
	// BatchSize is the maximum number of events per upload request.
	BatchSize int `json:"batchSize" yaml:"batchSize"`
	// MaxRetries bounds failed delivery attempts per event; it is snapshotted
	// onto each event at enqueue time.
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
	// Capacity bounds the queue; the oldest events are dropped first when an
	// append would exceed it.
	Capacity int `json:"capacity" yaml:"capacity"`
	// UploadIntervalMs is the periodic flush interval.
	UploadIntervalMs int `json:"uploadIntervalMs" yaml:"uploadIntervalMs"`
	// DebounceDelayMs is the quiet period after the last append before a
	// debounced flush starts.
	DebounceDelayMs int `json:"debounceDelayMs" yaml:"debounceDelayMs"`
	// RequestTimeoutMs bounds each batch upload request.
	RequestTimeoutMs int `json:"requestTimeoutMs" yaml:"requestTimeoutMs"`
	// Compression enables gzip request bodies.
	Compression bool `json:"compression" yaml:"compression"`
	// IngestFilter is an optional CEL expression; events evaluating false are
	// dropped before queueing.
	IngestFilter string `json:"ingestFilter" yaml:"ingestFilter"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		BatchSize:        50,
		MaxRetries:       3,
		Capacity:         1000,
		UploadIntervalMs: 30_000,
		DebounceDelayMs:  2_000,
		RequestTimeoutMs: 10_000,
	}
}

// UploadInterval returns the periodic flush interval as a duration.
func (c Config) UploadInterval() time.Duration {
	return time.Duration(c.UploadIntervalMs) * time.Millisecond
}

// DebounceDelay returns the debounce quiet period as a duration.
func (c Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request upload timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Validate checks invariants that would otherwise surface as runtime
// misbehavior.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New("config: batchSize must be > 0")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: maxRetries must be >= 0")
	}
	if c.Capacity <= 0 {
		return errors.New("config: capacity must be > 0")
	}
	if c.UploadIntervalMs <= 0 {
		return errors.New("config: uploadIntervalMs must be > 0")
	}
	if c.DebounceDelayMs < 0 {
		return errors.New("config: debounceDelayMs must be >= 0")
	}
	if c.RequestTimeoutMs <= 0 {
		return errors.New("config: requestTimeoutMs must be > 0")
	}
	if c.ServerURL != "" {
		u, err := url.Parse(c.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid serverUrl %q", c.ServerURL)
		}
	}
	return nil
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
