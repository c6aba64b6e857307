package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	agentrun "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/cmd/agent"
	cfgpkg "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/config"
	pebblestore "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/storage/pebble"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Mobile Pulse telemetry agent CLI",
		Long:  "Mobile Pulse buffers telemetry events locally and delivers them to a collector in ordered batches. This CLI runs the agent and manages its queue.",
	}

	// agent start
	agentCmd := &cobra.Command{Use: "agent", Short: "Agent commands"}
	agentStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the pulse agent",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			listen, _ := cmd.Flags().GetString("listen")
			configPath, _ := cmd.Flags().GetString("config")
			serverURL, _ := cmd.Flags().GetString("server-url")
			apiKey, _ := cmd.Flags().GetString("api-key")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if apiKey != "" {
				cfg.APIKey = apiKey
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if logLevel != "" {
				_ = os.Setenv("PULSE_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("PULSE_LOG_FORMAT", logFormat)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := agentrun.Run(ctx, agentrun.Options{
				DataDir:       dataDir,
				ListenAddr:    listen,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("agent error: %w", err)
			}
			return nil
		},
	}
	agentStartCmd.Flags().String("data-dir", "", "Data directory (default: OS-specific cache directory)")
	agentStartCmd.Flags().String("listen", ":8787", "HTTP listen address for ingestion and management")
	agentStartCmd.Flags().String("config", os.Getenv("PULSE_CONFIG"), "Config file path (JSON or YAML)")
	agentStartCmd.Flags().String("server-url", "", "Collector endpoint (overrides config)")
	agentStartCmd.Flags().String("api-key", "", "Bearer token sent on uploads (overrides config)")
	agentStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	agentStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	agentStartCmd.Flags().String("log-level", os.Getenv("PULSE_LOG_LEVEL"), "Log level: debug|info|warn|error")
	agentStartCmd.Flags().String("log-format", os.Getenv("PULSE_LOG_FORMAT"), "Log format: text|json")
	agentCmd.AddCommand(agentStartCmd)
	rootCmd.AddCommand(agentCmd)

	// queue stats|flush|clear
	queueCmd := &cobra.Command{Use: "queue", Short: "Inspect and manage the local queue"}
	queueStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(apiURL() + "/v1/queue/stats")
		},
	}
	queueFlushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Trigger an immediate upload run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(apiURL()+"/v1/queue/flush", nil)
		},
	}
	queueClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Irreversibly drop all queued events",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodDelete, apiURL()+"/v1/queue", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("clear failed: %s", resp.Status)
			}
			fmt.Println("queue cleared")
			return nil
		},
	}
	queueCmd.AddCommand(queueStatsCmd, queueFlushCmd, queueClearCmd)
	rootCmd.AddCommand(queueCmd)

	// ingest
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Queue one event through the running agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			data, _ := cmd.Flags().GetString("data")
			body, err := json.Marshal(map[string]json.RawMessage{
				"type": json.RawMessage(fmt.Sprintf("%q", kind)),
				"data": json.RawMessage(data),
			})
			if err != nil {
				return err
			}
			return postJSON(apiURL()+"/v1/events", body)
		},
	}
	ingestCmd.Flags().String("type", "custom", "Event type: crash|performance|network|session|custom")
	ingestCmd.Flags().String("data", "{}", "Event payload as JSON")
	rootCmd.AddCommand(ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("PULSE_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8787"
}

func getJSON(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printBody(resp)
}

func postJSON(url string, body []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printBody(resp)
}

func printBody(resp *http.Response) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(b))
	}
	fmt.Println(string(bytes.TrimSpace(b)))
	return nil
}
