package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/outputs/discord"
	"github.com/bakkerme/salewatch/internal/outputs/discord/mock"
)

var stamp = time.Date(2024, 11, 29, 18, 5, 0, 0, time.Local)

func TestFormatSaleWithPrices(t *testing.T) {
	record := core.DiscountRecord{
		ID:            "steam_Black Ops 3",
		Title:         "Black Ops 3",
		Platform:      core.PlatformSteam,
		URL:           "https://store.steampowered.com/app/311210/",
		OriginalPrice: "$59.99",
		CurrentPrice:  "$19.79",
		DiscountLabel: "-67%",
		ImageURL:      "https://cdn.example.com/bo3.jpg",
	}
	want := discord.Message{Embeds: []discord.Embed{{
		Title:       "🔥 Black Ops 3 is on Sale!",
		Description: "[View it here](https://store.steampowered.com/app/311210/)",
		Color:       0x2ECC71,
		Fields: []discord.EmbedField{
			{Name: "Platform", Value: "Steam", Inline: true},
			{Name: "Price", Value: "~~$59.99~~ → **$19.79** (-67%)"},
		},
		Footer: &discord.EmbedFooter{Text: "2024-11-29 18:05"},
		Image:  &discord.EmbedImage{URL: "https://cdn.example.com/bo3.jpg"},
	}}}
	if diff := cmp.Diff(want, FormatSale(record, stamp)); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatSaleWithoutPricesUsesStatus(t *testing.T) {
	msg := FormatSale(core.DiscountRecord{Title: "Black Ops 4", Platform: core.PlatformBattleNet, URL: "https://bnet"}, stamp)
	fields := msg.Embeds[0].Fields
	if len(fields) != 2 || fields[0].Value != "Battle.net" {
		t.Fatalf("unexpected fields %+v", fields)
	}
	if fields[1] != (discord.EmbedField{Name: "Status", Value: "On Sale"}) {
		t.Fatalf("expected generic status field, got %+v", fields[1])
	}
	if msg.Embeds[0].Image != nil {
		t.Fatalf("no image expected")
	}
}

func TestDeliverContinuesAfterFailure(t *testing.T) {
	sender := &mock.Sender{FailTitles: map[string]error{"🔥 B is on Sale!": errors.New("503 from discord")}}
	processor, err := NewDiscordProcessor("42", sender, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := []core.DiscountRecord{
		{ID: "steam_A", Title: "A", Platform: core.PlatformSteam},
		{ID: "xbox_B", Title: "B", Platform: core.PlatformXbox},
		{ID: "ps_C", Title: "C", Platform: core.PlatformPlayStation},
	}
	report, err := processor.Deliver(context.Background(), records)
	if report != (core.DeliveryReport{Sent: 2, Failed: 1}) {
		t.Fatalf("unexpected report %+v", report)
	}
	var dispatchErr *DispatchError
	if !errors.As(err, &dispatchErr) || dispatchErr.RecordID != "xbox_B" {
		t.Fatalf("expected DispatchError for xbox_B, got %v", err)
	}

	var titles []string
	for _, sent := range sender.Messages() {
		if sent.ChannelID != "42" {
			t.Fatalf("unexpected channel %q", sent.ChannelID)
		}
		titles = append(titles, sent.Message.Embeds[0].Title)
	}
	if diff := cmp.Diff([]string{"🔥 A is on Sale!", "🔥 C is on Sale!"}, titles); diff != "" {
		t.Fatalf("sent order mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliverNothing(t *testing.T) {
	processor, _ := NewDiscordProcessor("42", &mock.Sender{}, nil)
	report, err := processor.Deliver(context.Background(), nil)
	if err != nil || report != (core.DeliveryReport{}) {
		t.Fatalf("expected empty report, got %+v, %v", report, err)
	}
}

func TestNewDiscordProcessorValidates(t *testing.T) {
	if _, err := NewDiscordProcessor("", &mock.Sender{}, nil); err == nil {
		t.Fatalf("expected error for missing channel")
	}
	if _, err := NewDiscordProcessor("1", nil, nil); err == nil {
		t.Fatalf("expected error for missing sender")
	}
}
