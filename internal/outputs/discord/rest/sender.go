package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/salewatch/internal/observability/otelx"
	"github.com/bakkerme/salewatch/internal/outputs/discord"
	"github.com/bakkerme/salewatch/internal/retry"
)

const DefaultBaseURL = "https://discord.com/api/v10"

// Sender posts messages through the Discord REST API as a bot user.
type Sender struct {
	client *resty.Client
	retry  retry.Config
	logger *slog.Logger
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   retry.Config
	// Transport replaces the HTTP transport; used in tests.
	Transport http.RoundTripper
}

func NewSender(cfg Config, logger *slog.Logger) *Sender {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Authorization", "Bot "+cfg.Token)
	client.SetHeader("User-Agent", "DiscordBot (https://github.com/bakkerme/salewatch, 1.0)")
	client.SetHeader("Content-Type", "application/json")
	if cfg.Transport != nil {
		client.SetTransport(cfg.Transport)
	}

	return &Sender{client: client, retry: cfg.Retry, logger: logger}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Sender) Send(ctx context.Context, channelID string, message discord.Message) error {
	if strings.TrimSpace(channelID) == "" {
		return fmt.Errorf("discord channel id is required")
	}

	ctx, span := otelx.Tracer("discord").Start(ctx, "discord.send")
	span.SetAttributes(attribute.String("discord.channel_id", channelID))
	if len(message.Embeds) > 0 {
		span.SetAttributes(attribute.String("discord.embed.title", message.Embeds[0].Title))
	}

	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error) {
		s.logger.Warn("discord send failed; retrying", "attempt", attempt, "channel_id", channelID, "error", err)
	}

	err := retry.Do(ctx, cfg, func() error {
		res, err := s.client.R().
			SetContext(ctx).
			SetPathParam("channel", channelID).
			SetBody(message).
			SetError(&apiError{}).
			Post("/channels/{channel}/messages")
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		if res.IsSuccess() {
			span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
			return nil
		}

		statusErr := &discord.StatusError{StatusCode: res.StatusCode()}
		if apiErr, ok := res.Error().(*apiError); ok && apiErr != nil {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		if statusErr.Temporary() {
			return statusErr
		}
		return retry.Permanent(statusErr)
	})
	otelx.End(span, err)
	if err != nil {
		var statusErr *discord.StatusError
		if errors.As(err, &statusErr) {
			return err
		}
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
