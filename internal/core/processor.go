package core

import (
	"context"
	"time"
)

// Processor is the base interface that all processors must implement
type Processor interface {
	// Name returns the processor name
	Name() string
	// Validate checks if the processor configuration is valid
	Validate() error
}

// TriggerEvent represents a trigger firing
type TriggerEvent struct {
	Kind      CycleKind
	Source    string
	Timestamp time.Time
}

// TriggerProcessor defines when cycles run
type TriggerProcessor interface {
	Processor
	// Start begins the trigger and returns a channel of trigger events.
	// Events are dropped rather than queued while the consumer is busy.
	Start(ctx context.Context) (<-chan TriggerEvent, error)
	// Stop gracefully shuts down the trigger
	Stop() error
}

// SourceProcessor fetches the current state of every watched target.
type SourceProcessor interface {
	Processor
	// Sweep returns one result per target in target order. It never fails
	// as a whole; per-target failures are carried in the results.
	Sweep(ctx context.Context, targets []Target) Sweep
}

// QualityProcessor decides which detected discounts qualify for notification.
type QualityProcessor interface {
	Processor
	// Evaluate returns the records that pass, preserving order.
	Evaluate(ctx context.Context, records []DiscountRecord) ([]DiscountRecord, error)
}

// DeliveryReport summarizes one notify stage pass.
type DeliveryReport struct {
	Sent   int
	Failed int
}

// OutputProcessor delivers notifications for new discounts
type OutputProcessor interface {
	Processor
	// Deliver dispatches one notification per record in order. A failed
	// dispatch does not stop the remaining ones; the joined error is returned.
	Deliver(ctx context.Context, records []DiscountRecord) (DeliveryReport, error)
}
