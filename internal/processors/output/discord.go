package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/outputs/discord"
)

// SaleColor is the embed accent used for every sale notification.
const SaleColor = 0x2ECC71

const footerLayout = "2006-01-02 15:04"

// DispatchError reports one notification that could not be delivered.
type DispatchError struct {
	RecordID string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.RecordID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

type DiscordProcessor struct {
	name      string
	channelID string
	sender    discord.Sender
	logger    *slog.Logger
	now       func() time.Time
}

func NewDiscordProcessor(channelID string, sender discord.Sender, logger *slog.Logger) (*DiscordProcessor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &DiscordProcessor{
		name:      "discord",
		channelID: channelID,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DiscordProcessor) Name() string {
	return p.name
}

func (p *DiscordProcessor) Validate() error {
	if p.sender == nil {
		return fmt.Errorf("discord sender is required")
	}
	if p.channelID == "" {
		return fmt.Errorf("discord channel id is required")
	}
	return nil
}

// Deliver sends one message per record, in order. Failures are logged and
// collected; they never stop the remaining messages.
func (p *DiscordProcessor) Deliver(ctx context.Context, records []core.DiscountRecord) (core.DeliveryReport, error) {
	logger := core.LoggerFromContext(ctx, p.logger)
	var (
		report core.DeliveryReport
		errs   []error
	)
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			report.Failed += len(records) - report.Sent - report.Failed
			errs = append(errs, err)
			break
		}
		if err := p.sender.Send(ctx, p.channelID, FormatSale(record, p.now())); err != nil {
			dispatchErr := &DispatchError{RecordID: record.ID, Err: err}
			logger.Error("discord notification failed", "id", record.ID, "platform", record.Platform, "error", err)
			report.Failed++
			errs = append(errs, dispatchErr)
			continue
		}
		logger.Info("discord notification sent", "id", record.ID, "platform", record.Platform, "label", record.DiscountLabel)
		report.Sent++
	}
	return report, errors.Join(errs...)
}

// FormatSale renders record as a single-embed message stamped with now.
func FormatSale(record core.DiscountRecord, now time.Time) discord.Message {
	embed := discord.Embed{
		Title:       fmt.Sprintf("🔥 %s is on Sale!", record.Title),
		Description: fmt.Sprintf("[View it here](%s)", record.URL),
		Color:       SaleColor,
		Fields: []discord.EmbedField{
			{Name: "Platform", Value: record.Platform.Label(), Inline: true},
		},
		Footer: &discord.EmbedFooter{Text: now.Format(footerLayout)},
	}

	label := record.DiscountLabel
	if label == "" {
		label = "On Sale"
	}
	if record.HasPrices() {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Price",
			Value: fmt.Sprintf("~~%s~~ → **%s** (%s)", record.OriginalPrice, record.CurrentPrice, label),
		})
	} else {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Status", Value: label})
	}
	if record.ImageURL != "" {
		embed.Image = &discord.EmbedImage{URL: record.ImageURL}
	}
	return discord.Message{Embeds: []discord.Embed{embed}}
}
