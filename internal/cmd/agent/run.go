package agentrun

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/config"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/filter"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/scheduler"
	httpserver "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/server/http"
	pebblestore "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/storage/pebble"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/telemetry"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/uploader"
	logpkg "github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Options configures an agent run.
type Options struct {
	DataDir       string
	ListenAddr    string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Run starts the agent and blocks until ctx is cancelled. Shutdown lets an
// in-flight upload run finish before closing storage.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers without
	// signal awareness still get clean termination.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCfg := &logpkg.Config{
		Level:  getenvDefault("PULSE_LOG_LEVEL", "info"),
		Format: getenvDefault("PULSE_LOG_FORMAT", "text"),
	}
	logger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		logger = logpkg.NewLogger(logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	// Pebble logs through the standard library.
	logpkg.RedirectStdLog(logger)

	if opts.DataDir == "" {
		opts.DataDir = defaultDataDir()
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := queue.Open(db, queue.Options{
		Capacity: opts.Config.Capacity,
		Logger:   logger.WithComponent("queue"),
	})
	if err != nil {
		return err
	}

	filt, err := filter.New(opts.Config.IngestFilter)
	if err != nil {
		return err
	}

	svc := telemetry.New(store, filt, opts.Config, logger.WithComponent("telemetry"))
	probe := &uploader.DialProbe{URL: func() string { return svc.Config().ServerURL }}
	up := uploader.New(store, &http.Client{}, probe, svc.Config, logger.WithComponent("uploader"))
	sched := scheduler.New(up, scheduler.Options{
		Debounce: opts.Config.DebounceDelay(),
		Interval: opts.Config.UploadInterval(),
		Logger:   logger.WithComponent("scheduler"),
	})
	svc.Bind(sched)
	sched.Start(sctx)

	hsrv := httpserver.New(svc, logger.WithComponent("http"))

	logger.Info("starting mobile-pulse agent",
		logpkg.Str("listen", opts.ListenAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("server_url", opts.Config.ServerURL),
		logpkg.Int("capacity", opts.Config.Capacity),
		logpkg.Int("batch_size", opts.Config.BatchSize),
		logpkg.Int("queued", store.Size()),
	)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		err := hsrv.ListenAndServe(gctx, opts.ListenAddr)
		if err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	err = g.Wait()
	hsrv.Close()
	// Joins the scheduling loop; a run in flight completes its batch first.
	sched.Stop()
	logger.Info("agent stopped")
	return err
}

// defaultDataDir resolves the per-user data directory for the agent.
func defaultDataDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "mobile-pulse")
	}
	return ".mobile-pulse"
}
