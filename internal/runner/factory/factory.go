package factory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bakkerme/salewatch/internal/config"
	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/httputil"
	"github.com/bakkerme/salewatch/internal/outputs/discord"
	"github.com/bakkerme/salewatch/internal/outputs/discord/rest"
	"github.com/bakkerme/salewatch/internal/processors/output"
	"github.com/bakkerme/salewatch/internal/processors/quality"
	"github.com/bakkerme/salewatch/internal/processors/source"
	"github.com/bakkerme/salewatch/internal/processors/trigger"
	"github.com/bakkerme/salewatch/internal/reconcile"
	"github.com/bakkerme/salewatch/internal/retry"
	"github.com/bakkerme/salewatch/internal/runner"
	"github.com/bakkerme/salewatch/internal/runner/snapshot"
	"github.com/bakkerme/salewatch/internal/seen"
	"github.com/bakkerme/salewatch/internal/sources/storefront"
	storefrontimpl "github.com/bakkerme/salewatch/internal/sources/storefront/impl"
)

// Factory builds the pipeline from environment config. Any boundary left nil
// is built from Env; tests set them to mocks.
type Factory struct {
	Logger        *slog.Logger
	Env           config.EnvConfig
	Fetcher       storefront.Fetcher
	DiscordSender discord.Sender
	Store         seen.Store
}

func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{Logger: logger, Env: env}
}

// Build is an assembled pipeline plus the handles main needs to drive and
// shut it down.
type Build struct {
	Pipeline *runner.Pipeline
	Manual   *trigger.ManualProcessor
	Store    seen.Store
}

func (b *Build) Close() error {
	if b == nil || b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

func (f *Factory) Build(ctx context.Context, doc *config.WatchDocument) (*Build, error) {
	if doc == nil {
		return nil, fmt.Errorf("watchlist is required")
	}
	policy, err := reconcile.ParsePolicy(f.Env.SeenPolicy)
	if err != nil {
		return nil, err
	}

	src, err := f.NewSource()
	if err != nil {
		return nil, err
	}
	var qualityProcessors []core.QualityProcessor
	if strings.TrimSpace(doc.Watchlist.Rule) != "" {
		q, err := quality.NewRuleProcessor(doc.Watchlist.Rule, f.Logger)
		if err != nil {
			return nil, err
		}
		qualityProcessors = append(qualityProcessors, q)
	}
	out, err := f.NewDiscordOutput()
	if err != nil {
		return nil, err
	}

	store, err := f.NewStore()
	if err != nil {
		return nil, err
	}
	reconciler, err := reconcile.New(ctx, store, reconcile.Config{
		Policy: policy,
		Retry:  retry.Config{Attempts: f.Env.Seen.PersistRetries},
	}, f.Logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	manual := trigger.NewManualProcessor()
	triggers := []core.TriggerProcessor{
		trigger.NewIntervalProcessor(core.CyclePoll, f.Env.PollInterval),
		manual,
	}
	if policy == reconcile.PolicyIncremental {
		triggers = append(triggers, trigger.NewIntervalProcessor(core.CycleCleanup, f.Env.CleanupInterval))
	}

	return &Build{
		Pipeline: &runner.Pipeline{
			Targets:    doc.Watchlist.Targets(),
			Source:     src,
			Quality:    qualityProcessors,
			Reconciler: reconciler,
			Outputs:    []core.OutputProcessor{out},
			Triggers:   triggers,
		},
		Manual: manual,
		Store:  store,
	}, nil
}

// NewHTTPClient returns the shared storefront client: browser headers, rate
// limiting and, when enabled, robots.txt checks.
func (f *Factory) NewHTTPClient() *http.Client {
	h := f.Env.HTTP
	transport := httputil.NewTransport(nil, h.UserAgent, h.AcceptLanguage, h.RatePerSecond, h.RateBurst, h.RespectRobots)
	return httputil.NewHTTPClient(transport, h.Timeout)
}

func (f *Factory) NewSource() (core.SourceProcessor, error) {
	fetcher := f.Fetcher
	if fetcher == nil {
		fetcher = storefrontimpl.NewFetcher(f.NewHTTPClient(), f.Env.HTTP.SteamCountry)
	}
	stage := source.NewStage(fetcher, source.StageConfig{
		MaxConcurrency: f.Env.HTTP.MaxConcurrency,
		FetchTimeout:   f.Env.HTTP.FetchTimeout,
	}, f.Logger)
	return snapshot.WrapSource(stage, f.Env.Snapshot.Path, snapshot.Mode(f.Env.Snapshot.Mode), f.Logger)
}

func (f *Factory) NewDiscordOutput() (core.OutputProcessor, error) {
	sender := f.DiscordSender
	if sender == nil {
		sender = rest.NewSender(rest.Config{
			BaseURL: f.Env.Discord.BaseURL,
			Token:   f.Env.Discord.Token,
			Timeout: f.Env.Discord.Timeout,
		}, f.Logger)
	}
	return output.NewDiscordProcessor(f.Env.Discord.ChannelID, sender, f.Logger)
}

func (f *Factory) NewStore() (seen.Store, error) {
	if f.Store != nil {
		return f.Store, nil
	}
	store, err := seen.Open(seen.Options{
		Kind:      seen.Kind(f.Env.Seen.Store),
		FilePath:  f.Env.Seen.FilePath,
		SQLiteDSN: f.Env.Seen.SQLiteDSN,
		BadgerDir: f.Env.Seen.BadgerDir,
	})
	if err != nil {
		return nil, fmt.Errorf("open seen store: %w", err)
	}
	return store, nil
}
