package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bakkerme/salewatch/internal/config"
	discordmock "github.com/bakkerme/salewatch/internal/outputs/discord/mock"
	"github.com/bakkerme/salewatch/internal/runner/snapshot"
	storefrontmock "github.com/bakkerme/salewatch/internal/sources/storefront/mock"
)

func testFactory(t *testing.T, policy string) *Factory {
	t.Helper()
	f := NewFromEnvConfig(nil, config.EnvConfig{
		PollInterval:    time.Hour,
		CleanupInterval: 6 * time.Hour,
		SeenPolicy:      policy,
		Discord:         config.DiscordEnvConfig{Token: "t", ChannelID: "123"},
		Seen:            config.SeenEnvConfig{Store: "file", FilePath: filepath.Join(t.TempDir(), "seen.txt")},
		HTTP:            config.HTTPEnvConfig{MaxConcurrency: 4, FetchTimeout: time.Second},
	})
	f.Fetcher = &storefrontmock.Fetcher{}
	f.DiscordSender = &discordmock.Sender{}
	return f
}

func TestBuildTriggersFollowPolicy(t *testing.T) {
	tests := []struct {
		policy string
		want   []string
	}{
		{policy: "strict", want: []string{"poll_cron", "manual"}},
		{policy: "incremental", want: []string{"poll_cron", "manual", "cleanup_cron"}},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			doc := config.DefaultWatchlist()
			build, err := testFactory(t, tt.policy).Build(context.Background(), &doc)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer build.Close()

			var names []string
			for _, trig := range build.Pipeline.Triggers {
				names = append(names, trig.Name())
			}
			if len(names) != len(tt.want) {
				t.Fatalf("expected triggers %v, got %v", tt.want, names)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Fatalf("expected triggers %v, got %v", tt.want, names)
				}
			}
			if build.Manual == nil {
				t.Fatalf("expected manual trigger handle")
			}
			if got := len(build.Pipeline.Targets); got != 8 {
				t.Fatalf("expected 8 targets, got %d", got)
			}
			if err := build.Pipeline.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestBuildWithRuleAddsQualityProcessor(t *testing.T) {
	doc := config.DefaultWatchlist()
	doc.Watchlist.Rule = "discount_percent >= 50"
	build, err := testFactory(t, "strict").Build(context.Background(), &doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer build.Close()
	if len(build.Pipeline.Quality) != 1 {
		t.Fatalf("expected one quality processor, got %d", len(build.Pipeline.Quality))
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	doc := config.DefaultWatchlist()
	f := testFactory(t, "sometimes")
	if _, err := f.Build(context.Background(), &doc); err == nil {
		t.Fatalf("expected error for unknown policy")
	}

	f = testFactory(t, "strict")
	if _, err := f.Build(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil watchlist")
	}

	f = testFactory(t, "strict")
	f.Env.Seen.Store = "memcached"
	if _, err := f.Build(context.Background(), &doc); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestNewSourceWrapsSnapshot(t *testing.T) {
	f := testFactory(t, "strict")
	f.Env.Snapshot = config.SnapshotEnvConfig{Path: filepath.Join(t.TempDir(), "sweep.json"), Mode: "save"}
	src, err := f.NewSource()
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if _, ok := src.(*snapshot.Source); !ok {
		t.Fatalf("expected snapshot wrapper, got %T", src)
	}

	f.Env.Snapshot.Mode = "replay"
	if _, err := f.NewSource(); err == nil {
		t.Fatalf("expected error for unknown snapshot mode")
	}
}
