package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	WatchlistPath   string
	PollInterval    time.Duration
	CleanupInterval time.Duration
	SeenPolicy      string
	RunOnce         bool
	RunOnStart      bool
	LogLevel        string
	LogFormat       string
	Discord         DiscordEnvConfig
	Seen            SeenEnvConfig
	HTTP            HTTPEnvConfig
	Health          HealthEnvConfig
	Snapshot        SnapshotEnvConfig
	OTel            OTelEnvConfig
}

type DiscordEnvConfig struct {
	Token     string
	ChannelID string
	BaseURL   string
	Timeout   time.Duration
}

type SeenEnvConfig struct {
	Store          string // "file", "sqlite" or "badger"
	FilePath       string
	SQLiteDSN      string
	BadgerDir      string
	PersistRetries int
}

type HTTPEnvConfig struct {
	Timeout        time.Duration
	FetchTimeout   time.Duration
	UserAgent      string
	AcceptLanguage string
	SteamCountry   string
	MaxConcurrency int
	RatePerSecond  float64
	RateBurst      int
	RespectRobots  bool
}

type HealthEnvConfig struct {
	Addr string
}

type SnapshotEnvConfig struct {
	Path string
	Mode string // "save" or "restore"
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	healthAddr := envString("HEALTH_ADDR", "")
	if healthAddr == "" {
		if port := envString("PORT", ""); port != "" {
			healthAddr = ":" + port
		}
	}

	return EnvConfig{
		WatchlistPath:   envString("WATCHLIST", "salewatch.yaml"),
		PollInterval:    envDuration("POLL_INTERVAL", time.Hour),
		CleanupInterval: envDuration("CLEANUP_INTERVAL", 12*time.Hour),
		SeenPolicy:      strings.ToLower(envString("SEEN_POLICY", "strict")),
		RunOnce:         envBool("RUN_ONCE", false),
		RunOnStart:      envBool("RUN_ON_START", true),
		LogLevel:        strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envString("LOG_FORMAT", "text")),
		Discord: DiscordEnvConfig{
			Token:     envString("DISCORD_TOKEN", ""),
			ChannelID: envString("DISCORD_CHANNEL_ID", ""),
			BaseURL:   envString("DISCORD_API_BASE", "https://discord.com/api/v10"),
			Timeout:   envDuration("DISCORD_HTTP_TIMEOUT", 15*time.Second),
		},
		Seen: SeenEnvConfig{
			Store:          strings.ToLower(envString("SEEN_STORE", "file")),
			FilePath:       envString("SEEN_FILE", "seen_sales.txt"),
			SQLiteDSN:      envString("SEEN_DSN", "data/seen.db"),
			BadgerDir:      envString("SEEN_DIR", "data/seen"),
			PersistRetries: envInt("PERSIST_RETRIES", 3),
		},
		HTTP: HTTPEnvConfig{
			Timeout:        envDuration("HTTP_TIMEOUT", 30*time.Second),
			FetchTimeout:   envDuration("FETCH_TIMEOUT", 20*time.Second),
			UserAgent:      envString("USER_AGENT", defaultUserAgent),
			AcceptLanguage: envString("ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			SteamCountry:   strings.ToLower(envString("STEAM_COUNTRY", "us")),
			MaxConcurrency: envInt("MAX_CONCURRENCY", 4),
			RatePerSecond:  envFloat("RATE_PER_SECOND", 2),
			RateBurst:      envInt("RATE_BURST", 2),
			RespectRobots:  envBool("RESPECT_ROBOTS", false),
		},
		Health: HealthEnvConfig{
			Addr: healthAddr,
		},
		Snapshot: SnapshotEnvConfig{
			Path: envString("SNAPSHOT_PATH", ""),
			Mode: strings.ToLower(envString("SNAPSHOT_MODE", "")),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "salewatch")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

// Validate reports every missing or invalid setting at once.
func (c EnvConfig) Validate() error {
	problems := &ConfigError{}
	if strings.TrimSpace(c.Discord.Token) == "" {
		problems.add("DISCORD_TOKEN is required")
	}
	if strings.TrimSpace(c.Discord.ChannelID) == "" {
		problems.add("DISCORD_CHANNEL_ID is required")
	} else if _, err := strconv.ParseUint(c.Discord.ChannelID, 10, 64); err != nil {
		problems.add("DISCORD_CHANNEL_ID must be a numeric snowflake, got %q", c.Discord.ChannelID)
	}
	if c.PollInterval <= 0 {
		problems.add("POLL_INTERVAL must be positive")
	}
	switch c.SeenPolicy {
	case "strict":
	case "incremental":
		if c.CleanupInterval <= 0 {
			problems.add("CLEANUP_INTERVAL must be positive for the incremental policy")
		}
	default:
		problems.add("SEEN_POLICY must be strict or incremental, got %q", c.SeenPolicy)
	}
	switch c.Seen.Store {
	case "file":
		if strings.TrimSpace(c.Seen.FilePath) == "" {
			problems.add("SEEN_FILE is required for the file store")
		}
	case "sqlite":
		if strings.TrimSpace(c.Seen.SQLiteDSN) == "" {
			problems.add("SEEN_DSN is required for the sqlite store")
		}
	case "badger":
		if strings.TrimSpace(c.Seen.BadgerDir) == "" {
			problems.add("SEEN_DIR is required for the badger store")
		}
	default:
		problems.add("SEEN_STORE must be file, sqlite or badger, got %q", c.Seen.Store)
	}
	if c.HTTP.MaxConcurrency <= 0 {
		problems.add("MAX_CONCURRENCY must be at least 1")
	}
	if c.HTTP.FetchTimeout <= 0 {
		problems.add("FETCH_TIMEOUT must be positive")
	}
	switch c.Snapshot.Mode {
	case "":
	case "save", "restore":
		if c.Snapshot.Path == "" {
			problems.add("SNAPSHOT_PATH is required when SNAPSHOT_MODE is set")
		}
	default:
		problems.add("SNAPSHOT_MODE must be save or restore, got %q", c.Snapshot.Mode)
	}
	return problems.orNil()
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := parseDurationExtended(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
