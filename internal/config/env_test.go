package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	for _, key := range []string{"POLL_INTERVAL", "SEEN_POLICY", "SEEN_STORE", "HEALTH_ADDR", "PORT", "RUN_ON_START"} {
		t.Setenv(key, "")
	}
	cfg := LoadEnv()
	if cfg.PollInterval != time.Hour {
		t.Fatalf("expected 1h poll interval, got %s", cfg.PollInterval)
	}
	if cfg.CleanupInterval != 12*time.Hour {
		t.Fatalf("expected 12h cleanup interval, got %s", cfg.CleanupInterval)
	}
	if cfg.SeenPolicy != "strict" || cfg.Seen.Store != "file" || cfg.Seen.FilePath != "seen_sales.txt" {
		t.Fatalf("unexpected seen defaults: policy=%q store=%q file=%q", cfg.SeenPolicy, cfg.Seen.Store, cfg.Seen.FilePath)
	}
	if !cfg.RunOnStart {
		t.Fatalf("expected RUN_ON_START to default to true")
	}
	if cfg.Health.Addr != "" {
		t.Fatalf("expected health server disabled, got %q", cfg.Health.Addr)
	}
}

func TestLoadEnvBareSecondsAndPort(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "3600")
	t.Setenv("CLEANUP_INTERVAL", "1d")
	t.Setenv("HEALTH_ADDR", "")
	t.Setenv("PORT", "8080")
	cfg := LoadEnv()
	if cfg.PollInterval != time.Hour {
		t.Fatalf("expected bare seconds to parse as 1h, got %s", cfg.PollInterval)
	}
	if cfg.CleanupInterval != 24*time.Hour {
		t.Fatalf("expected 24h, got %s", cfg.CleanupInterval)
	}
	if cfg.Health.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Health.Addr)
	}
}

func TestValidateMissingDiscordCredentials(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	err := LoadEnv().Validate()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(cfgErr.Problems) != 2 {
		t.Fatalf("expected two problems, got %v", cfgErr.Problems)
	}
	if !strings.Contains(err.Error(), "DISCORD_TOKEN") || !strings.Contains(err.Error(), "DISCORD_CHANNEL_ID") {
		t.Fatalf("error should name both variables: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := validEnv()
	cfg.SeenPolicy = "eager"
	cfg.Seen.Store = "redis"
	cfg.Discord.ChannelID = "general"
	cfg.Snapshot.Mode = "restore"
	err := cfg.Validate()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(cfgErr.Problems) != 4 {
		t.Fatalf("expected four problems, got %d: %v", len(cfgErr.Problems), cfgErr.Problems)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validEnv().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func validEnv() EnvConfig {
	return EnvConfig{
		PollInterval:    time.Hour,
		CleanupInterval: 12 * time.Hour,
		SeenPolicy:      "strict",
		Discord:         DiscordEnvConfig{Token: "tok", ChannelID: "123456789012345678"},
		Seen:            SeenEnvConfig{Store: "file", FilePath: "seen_sales.txt"},
		HTTP:            HTTPEnvConfig{MaxConcurrency: 4, FetchTimeout: 20 * time.Second},
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("x-api-key=abc, bad, tenant = blue ,=skip")
	if len(got) != 2 || got["x-api-key"] != "abc" || got["tenant"] != "blue" {
		t.Fatalf("unexpected headers: %v", got)
	}
}
