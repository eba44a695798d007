package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/bakkerme/salewatch/internal/core"
)

// ManualProcessor fires a poll cycle on request, e.g. from the HTTP API.
// At most one request is queued.
type ManualProcessor struct {
	mu      sync.Mutex
	events  chan core.TriggerEvent
	stopped bool
}

func NewManualProcessor() *ManualProcessor {
	return &ManualProcessor{events: make(chan core.TriggerEvent, 1)}
}

func (m *ManualProcessor) Name() string {
	return "manual"
}

func (m *ManualProcessor) Validate() error {
	return nil
}

func (m *ManualProcessor) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	go func() {
		<-ctx.Done()
		_ = m.Stop()
	}()
	return m.events, nil
}

// Fire queues a poll cycle. It reports false when one is already queued or
// the trigger has stopped.
func (m *ManualProcessor) Fire(source string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	select {
	case m.events <- core.TriggerEvent{Kind: core.CyclePoll, Source: source, Timestamp: time.Now().UTC()}:
		return true
	default:
		return false
	}
}

func (m *ManualProcessor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.events)
	}
	return nil
}
