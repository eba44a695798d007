package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bakkerme/salewatch/internal/core"
)

// CronProcessor fires cycles of one kind on a cron schedule. A tick that
// arrives while the previous event is still unconsumed is dropped.
type CronProcessor struct {
	name     string
	kind     core.CycleKind
	schedule string
	timezone string

	mu       sync.Mutex
	cron     *cron.Cron
	events   chan core.TriggerEvent
	stopOnce sync.Once
}

func NewCronProcessor(kind core.CycleKind, schedule, timezone string) *CronProcessor {
	return &CronProcessor{
		name:     string(kind) + "_cron",
		kind:     kind,
		schedule: schedule,
		timezone: timezone,
	}
}

// NewIntervalProcessor fires every interval, starting one interval after Start.
func NewIntervalProcessor(kind core.CycleKind, interval time.Duration) *CronProcessor {
	return NewCronProcessor(kind, "@every "+interval.String(), "")
}

func (c *CronProcessor) Name() string {
	return c.name
}

func (c *CronProcessor) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if c.kind != core.CyclePoll && c.kind != core.CycleCleanup {
		return fmt.Errorf("unknown cycle kind %q", c.kind)
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)
	}
	return nil
}

func (c *CronProcessor) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.mu.Lock()
	c.events = make(chan core.TriggerEvent, 1)
	c.cron = cron.New(cron.WithLocation(location))
	events := c.events
	_, err := c.cron.AddFunc(c.schedule, func() {
		select {
		case events <- core.TriggerEvent{Kind: c.kind, Source: c.name, Timestamp: time.Now().UTC()}:
		default:
		}
	})
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return events, nil
}

// Stop waits for a firing job to finish and closes the event channel.
func (c *CronProcessor) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cron != nil {
			<-c.cron.Stop().Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}
