package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/observability/otelx"
	"github.com/bakkerme/salewatch/internal/sources/storefront"
)

// Stage fetches every watched target once per cycle.
type Stage struct {
	name           string
	fetcher        storefront.Fetcher
	maxConcurrency int
	fetchTimeout   time.Duration
	logger         *slog.Logger
}

type StageConfig struct {
	MaxConcurrency int
	FetchTimeout   time.Duration
}

func NewStage(fetcher storefront.Fetcher, cfg StageConfig, logger *slog.Logger) *Stage {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		name:           "storefront_sweep",
		fetcher:        fetcher,
		maxConcurrency: cfg.MaxConcurrency,
		fetchTimeout:   cfg.FetchTimeout,
		logger:         logger,
	}
}

func (s *Stage) Name() string {
	return s.name
}

func (s *Stage) Validate() error {
	if s.fetcher == nil {
		return fmt.Errorf("storefront fetcher is required")
	}
	return nil
}

// Sweep fetches all targets concurrently and returns one result per target in
// the order given. A failing target never affects the others; if ctx is
// cancelled the remaining targets are reported as failed.
func (s *Stage) Sweep(ctx context.Context, targets []core.Target) core.Sweep {
	logger := core.LoggerFromContext(ctx, s.logger)
	results := make([]core.SourceResult, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrency)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = s.fetchOne(ctx, logger, target)
			return nil
		})
	}
	_ = g.Wait()

	sweep := core.Sweep{Results: results}
	logger.Info("storefront sweep finished",
		"targets", len(targets),
		"discounts", len(sweep.Records()),
		"failures", sweep.Failures(),
	)
	return sweep
}

func (s *Stage) fetchOne(ctx context.Context, logger *slog.Logger, target core.Target) core.SourceResult {
	result := core.SourceResult{Target: target}
	if err := ctx.Err(); err != nil {
		result.Err = storefront.AsFetchError(target, err)
		result.Error = result.Err.Error()
		return result
	}

	ctx, span := otelx.Tracer("storefront").Start(ctx, "storefront.fetch")
	span.SetAttributes(
		attribute.String("storefront.platform", string(target.Platform)),
		attribute.String("storefront.title", target.Title),
		attribute.String("storefront.url", target.URL),
	)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	started := time.Now()
	record, err := s.fetcher.Fetch(fetchCtx, target)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", s.fetchTimeout, err)
		}
		result.Err = storefront.AsFetchError(target, err)
		result.Error = result.Err.Error()
		otelx.End(span, result.Err)
		logger.Warn("storefront fetch failed",
			"platform", target.Platform,
			"title", target.Title,
			"url", target.URL,
			"error", result.Err,
		)
		return result
	}

	if record != nil {
		if record.ID == "" {
			record.ID = target.ID()
		}
		span.SetAttributes(attribute.String("storefront.discount", record.DiscountLabel))
	}
	span.SetAttributes(attribute.Bool("storefront.on_sale", record != nil))
	otelx.End(span, nil)

	logger.Debug("storefront fetch finished",
		"platform", target.Platform,
		"title", target.Title,
		"on_sale", record != nil,
		"duration", time.Since(started),
	)
	result.Record = record
	return result
}
