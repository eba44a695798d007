package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bakkerme/salewatch/internal/config"
	"github.com/bakkerme/salewatch/internal/health"
	"github.com/bakkerme/salewatch/internal/observability/otelx"
	"github.com/bakkerme/salewatch/internal/reconcile"
	"github.com/bakkerme/salewatch/internal/runner"
	"github.com/bakkerme/salewatch/internal/runner/factory"
)

func main() {
	env := config.LoadEnv()

	flag.StringVar(&env.WatchlistPath, "watchlist", env.WatchlistPath, "path to watchlist document")
	flag.DurationVar(&env.PollInterval, "poll-interval", env.PollInterval, "time between poll cycles")
	flag.StringVar(&env.SeenPolicy, "seen-policy", env.SeenPolicy, "seen set policy: strict or incremental")
	flag.StringVar(&env.Seen.Store, "seen-store", env.Seen.Store, "seen store: file, sqlite or badger")
	flag.BoolVar(&env.RunOnce, "run-once", env.RunOnce, "run one poll cycle and exit")
	flag.BoolVar(&env.RunOnStart, "run-on-start", env.RunOnStart, "run a poll cycle before waiting for the first interval")
	flag.StringVar(&env.Health.Addr, "health-addr", env.Health.Addr, "health server listen address; empty disables it")
	flag.StringVar(&env.LogLevel, "log-level", env.LogLevel, "log level: debug, info, warn or error")
	flag.Parse()

	logger := newLogger(env.LogLevel, env.LogFormat)
	slog.SetDefault(logger)

	if err := env.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	doc, builtin, err := config.LoadWatchlist(env.WatchlistPath)
	if err != nil {
		log.Fatalf("failed to load watchlist: %v", err)
	}
	if builtin {
		logger.Info("watchlist file not found; using built-in watchlist", "path", env.WatchlistPath)
	}
	if err := doc.Validate(); err != nil {
		log.Fatalf("invalid watchlist: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	build, err := factory.NewFromEnvConfig(logger, env).Build(ctx, doc)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	defer func() {
		if err := build.Close(); err != nil {
			logger.Warn("failed to close seen store", "error", err)
		}
	}()

	r := runner.NewWithConfig(logger, build.Pipeline, runner.Config{RunOnStart: env.RunOnStart})
	logger.Info("salewatch starting",
		"watchlist", doc.Watchlist.Name,
		"targets", len(build.Pipeline.Targets),
		"policy", env.SeenPolicy,
		"store", env.Seen.Store,
		"poll_interval", env.PollInterval,
	)

	if env.RunOnce {
		if err := runOnce(ctx, r); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	var server *health.Server
	if env.Health.Addr != "" {
		server = health.NewServer(r, build.Manual, logger)
		go func() {
			if err := server.Start(env.Health.Addr); err != nil {
				logger.Error("health server stopped", "error", err)
			}
		}()
	}

	if err := r.Start(ctx); err != nil {
		log.Fatalf("failed to start runner: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown failed", "error", err)
		}
		cancel()
	}
	<-r.Done()
}

// runOnce fails on an unsaved seen set, since there is no next cycle to retry
// the write, and when no storefront could be reached at all.
func runOnce(ctx context.Context, r *runner.Runner) error {
	run, err := r.RunOnce(ctx)
	if err != nil {
		var persistErr *reconcile.PersistError
		if errors.As(err, &persistErr) {
			return fmt.Errorf("notifications sent but seen set not saved: %w", err)
		}
		return err
	}
	if run.Targets > 0 && run.SourceFails == run.Targets {
		return fmt.Errorf("every storefront fetch failed")
	}
	return nil
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
