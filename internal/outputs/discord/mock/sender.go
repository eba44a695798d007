package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/salewatch/internal/outputs/discord"
)

type Sent struct {
	ChannelID string
	Message   discord.Message
}

type Sender struct {
	// Err fails every send. FailTitles fails only messages whose first
	// embed has one of the given titles.
	Err        error
	FailTitles map[string]error

	mu   sync.Mutex
	sent []Sent
}

func (s *Sender) Send(ctx context.Context, channelID string, message discord.Message) error {
	_ = ctx
	if s.Err != nil {
		return s.Err
	}
	if len(message.Embeds) > 0 {
		if err, ok := s.FailTitles[message.Embeds[0].Title]; ok {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{ChannelID: channelID, Message: message})
	return nil
}

func (s *Sender) Messages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}
