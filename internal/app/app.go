package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"watchpost/internal/activity"
	"watchpost/internal/annict"
	"watchpost/internal/config"
	"watchpost/internal/metrics"
	"watchpost/internal/notifier"
	"watchpost/internal/task/scheduler"
	logx "watchpost/pkg/logx"
	"watchpost/pkg/systemd"
)

type Options struct {
	DryRun bool
	// Stdout receives dry-run output. Defaults to os.Stdout.
	Stdout io.Writer
	Log    logx.Logger
	// Metrics is shared across runs in daemon mode. When nil, RunOnce makes
	// a fresh collector if METRICS_TEXTFILE is set.
	Metrics *metrics.Collector
}

// Run loads the config at path and either performs one pass or, when
// SCHEDULE is set, keeps polling until ctx is done.
func Run(ctx context.Context, path string, opts Options) error {
	mgr := config.NewConfigManager(path)
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	logs, log := logx.New(cfg.LogConfig())
	defer logs.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	opts.Log = log

	log.Info("config loaded",
		logx.String("path", path),
		logx.String("delivery", string(cfg.Delivery)),
		logx.Bool("dry_run", opts.DryRun),
		logx.Bool("daemon", cfg.Daemon()),
	)

	if cfg.Daemon() {
		return Serve(ctx, mgr, logs, opts)
	}
	_, err = RunOnce(ctx, cfg, opts)
	return err
}

// RunOnce performs a single fetch/deliver pass with cfg.
func RunOnce(ctx context.Context, cfg *config.Config, opts Options) (res notifier.Result, err error) {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("run_id", uuid.NewString()))

	ledger, err := openLedger(cfg, log)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := ledger.Close(); cerr != nil {
			log.Warn("ledger close failed", logx.Err(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	hc := newHTTPClient(cfg)
	fetcher, err := newFetcher(cfg, hc, log)
	if err != nil {
		return res, err
	}

	deps := notifier.Deps{
		Fetcher: fetcher,
		Ledger:  ledger,
		Log:     log.With(logx.String("comp", "notifier")),
		Metrics: metrics.Nop{},
		DryOut:  opts.Stdout,
	}
	if !opts.DryRun {
		if deps.Sender, err = newSender(cfg, hc, log); err != nil {
			return res, err
		}
	}

	collector := opts.Metrics
	if collector == nil && cfg.MetricsTextfile != "" {
		collector = newCollector(cfg, log)
	}
	if collector != nil {
		deps.Metrics = collector
	}

	p, err := notifier.New(deps, notifier.Config{
		Query:        annict.Query{UserID: cfg.Annict.UserID, PerPage: cfg.Annict.FetchOnce},
		DryRun:       opts.DryRun,
		PostInterval: cfg.PostInterval,
		Locale:       cfg.Message.Locale,
		Decode:       activity.DecodeOptions{URLMode: cfg.Message.URLMode, Locale: cfg.Message.Locale},
	})
	if err != nil {
		return res, err
	}

	res, err = p.Run(ctx)

	if collector != nil && cfg.MetricsTextfile != "" {
		if werr := collector.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			log.Warn("metrics textfile write failed", logx.String("path", cfg.MetricsTextfile), logx.Err(werr))
		}
	}
	return res, err
}

// Serve runs RunOnce on the configured schedule until ctx is done. Each run
// uses the latest committed config; a reload that fails validation leaves the
// previous config in place. logs may be nil.
func Serve(ctx context.Context, mgr *config.ConfigManager, logs *logx.Service, opts Options) error {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg := mgr.Get()
	if cfg == nil {
		return fmt.Errorf("serve: config not loaded")
	}
	spec, err := scheduler.ParseSchedule(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = newCollector(cfg, log)
	}

	runner, err := scheduler.NewRunner(spec, func(ctx context.Context) error {
		_, err := RunOnce(ctx, mgr.Get(), opts)
		return err
	}, log.With(logx.String("comp", "scheduler")), scheduler.Options{RunAtStart: true})
	if err != nil {
		return err
	}

	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return mgr.Watch(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case next, ok := <-updates:
				if !ok {
					return nil
				}
				if logs != nil {
					logs.Apply(next.LogConfig())
				}
				if next.Schedule != cfg.Schedule {
					log.Warn("SCHEDULE changed; restart to apply", logx.String("running", spec.String()))
				}
			}
		}
	})

	systemd.Ready(log)
	systemd.Status(log, "polling "+spec.String())
	log.Info("daemon started", logx.String("schedule", spec.String()))

	<-gctx.Done()
	systemd.Stopping(log)
	err = g.Wait()
	log.Info("daemon stopped", logx.Int64("runs", runner.Runs()))
	return err
}
