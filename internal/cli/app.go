package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/config"
	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/engine"
	"github.com/roach88/storypage/internal/logging"
	"github.com/roach88/storypage/internal/metrics"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// app is the wired engine behind one command invocation.
type app struct {
	engine  *engine.Engine
	docs    *docstore.SQLite
	metrics *metrics.Collector
	log     *slog.Logger

	logCloser   io.Closer
	dumpMetrics bool
	stderr      io.Writer
}

// openApp loads configuration and wires the store, blob storage, tier
// table, logger, and metrics into an engine.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	tiers, err := loadTiers(cfg.Tiers.File)
	if err != nil {
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load tiers", err)
	}

	storeOpts := []docstore.Option{docstore.WithIndex(order.IndexedFields...)}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, docstore.WithClock(opts.Clock.Now))
	}
	logger.Debug("opening database", "path", cfg.Store.Path)
	docs, err := docstore.Open(cfg.Store.Path, storeOpts...)
	if err != nil {
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	blobs, err := blobstore.NewFS(cfg.Blobs.Root, cfg.Blobs.BaseURL)
	if err != nil {
		docs.Close()
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open blob storage", err)
	}

	collector, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		docs.Close()
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithRecorder(collector),
	}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}

	return &app{
		engine:      engine.New(docs, blobs, tiers, engineOpts...),
		docs:        docs,
		metrics:     collector,
		log:         logger,
		logCloser:   logCloser,
		dumpMetrics: opts.Metrics,
		stderr:      cmd.ErrOrStderr(),
	}, nil
}

func loadTiers(path string) (*tier.Table, error) {
	if path == "" {
		return tier.Default()
	}
	return tier.Load(path)
}

// Close dumps metrics if requested and releases the store and log sink.
func (a *app) Close() error {
	var errs []error
	if a.dumpMetrics {
		if err := a.metrics.WriteText(a.stderr); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.docs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := a.logCloser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	return errors.Join(errs...)
}

// withApp opens the app, runs fn, and closes the app. A close failure is
// logged; fn's error wins.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.log.Error("error closing", "error", cerr)
		}
	}()
	return fn(a)
}
