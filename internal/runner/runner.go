package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/observability/otelx"
	"github.com/bakkerme/salewatch/internal/reconcile"
)

// Pipeline is everything one process needs to run poll and cleanup cycles.
type Pipeline struct {
	Targets    []core.Target
	Source     core.SourceProcessor
	Quality    []core.QualityProcessor
	Reconciler *reconcile.Reconciler
	Outputs    []core.OutputProcessor
	Triggers   []core.TriggerProcessor
}

func (p *Pipeline) Validate() error {
	if len(p.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	if p.Source == nil {
		return fmt.Errorf("source processor is required")
	}
	if p.Reconciler == nil {
		return fmt.Errorf("reconciler is required")
	}
	for _, proc := range p.Quality {
		if err := proc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", proc.Name(), err)
		}
	}
	for _, out := range p.Outputs {
		if err := out.Validate(); err != nil {
			return fmt.Errorf("%s: %w", out.Name(), err)
		}
	}
	return p.Source.Validate()
}

type Config struct {
	// RunOnStart runs one poll cycle before waiting for triggers.
	RunOnStart bool
}

// Runner executes cycles one at a time. All triggers feed a single listener,
// so the reconciler never sees concurrent writers.
type Runner struct {
	logger   *slog.Logger
	pipeline *Pipeline
	config   Config

	mu      sync.RWMutex
	lastRun *core.Run
	running *core.Run

	done chan struct{}
}

func New(logger *slog.Logger, pipeline *Pipeline) *Runner {
	return NewWithConfig(logger, pipeline, Config{})
}

func NewWithConfig(logger *slog.Logger, pipeline *Pipeline, cfg Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, pipeline: pipeline, config: cfg, done: make(chan struct{})}
}

// Start starts every trigger and a single listener goroutine. Done is closed
// once the listener has exited and no cycle is in flight.
func (r *Runner) Start(ctx context.Context) error {
	if r.pipeline == nil {
		return fmt.Errorf("pipeline is required")
	}
	if err := r.pipeline.Validate(); err != nil {
		return err
	}

	channels := make([]<-chan core.TriggerEvent, 0, len(r.pipeline.Triggers))
	for _, trigger := range r.pipeline.Triggers {
		if trigger == nil {
			continue
		}
		events, err := trigger.Start(ctx)
		if err != nil {
			return fmt.Errorf("start trigger %s: %w", trigger.Name(), err)
		}
		r.logger.Info("trigger started", "trigger", trigger.Name())
		channels = append(channels, events)
	}

	go r.listen(ctx, channels)
	return nil
}

// Done is closed when the listener started by Start has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) listen(ctx context.Context, channels []<-chan core.TriggerEvent) {
	defer close(r.done)

	if r.config.RunOnStart {
		r.handle(ctx, core.TriggerEvent{Kind: core.CyclePoll, Source: "startup", Timestamp: time.Now().UTC()})
	}

	cases := make([]reflect.SelectCase, 0, len(channels)+1)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})
	for _, ch := range channels {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
	}

	for len(cases) > 1 {
		chosen, value, ok := reflect.Select(cases)
		if chosen == 0 {
			return
		}
		if !ok {
			cases = append(cases[:chosen], cases[chosen+1:]...)
			continue
		}
		r.handle(ctx, value.Interface().(core.TriggerEvent))
	}
	<-ctx.Done()
}

func (r *Runner) handle(ctx context.Context, event core.TriggerEvent) {
	if ctx.Err() != nil {
		return
	}
	r.logger.Info("trigger event", "kind", event.Kind, "source", event.Source, "time", event.Timestamp)
	if _, err := r.RunCycle(ctx, event.Kind, event.Source); err != nil {
		r.logger.Error("cycle failed", "kind", event.Kind, "error", err)
	}
}

// RunOnce runs a single poll cycle.
func (r *Runner) RunOnce(ctx context.Context) (*core.Run, error) {
	return r.RunCycle(ctx, core.CyclePoll, "once")
}

// RunCycle sweeps every target, applies quality rules and reconciles. Poll
// cycles then notify new discounts; cleanup cycles only prune. The returned
// error is a *reconcile.PersistError or a context error; notification
// failures are recorded on the run only.
func (r *Runner) RunCycle(ctx context.Context, kind core.CycleKind, triggerType string) (*core.Run, error) {
	if r.pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	p := r.pipeline

	run := &core.Run{
		ID:          fmt.Sprintf("run-%d", time.Now().UnixNano()),
		Kind:        kind,
		TriggerType: triggerType,
		StartedAt:   time.Now().UTC(),
		Status:      core.RunStatusRunning,
		Targets:     len(p.Targets),
	}
	r.setRunning(run)
	defer r.finish(run)

	logger := r.logger.With("run_id", run.ID, "cycle", kind)
	ctx = core.WithLogger(core.WithCycle(core.WithRunID(ctx, run.ID), kind), logger)

	ctx, span := otelx.Tracer("runner").Start(ctx, "salewatch.cycle")
	span.SetAttributes(
		attribute.String("salewatch.run_id", run.ID),
		attribute.String("salewatch.cycle", string(kind)),
		attribute.String("salewatch.trigger", triggerType),
	)
	var spanErr error
	defer func() { otelx.End(span, spanErr) }()

	sweep := p.Source.Sweep(ctx, p.Targets)
	run.SourceFails = sweep.Failures()
	for _, result := range sweep.Results {
		if result.Failed() {
			run.AddError("fetch", fmt.Errorf("%s: %s", result.Target.ID(), result.Error))
		}
	}
	if err := ctx.Err(); err != nil {
		run.Complete(core.RunStatusCancelled)
		spanErr = err
		return run, err
	}

	records := sweep.Records()
	for _, proc := range p.Quality {
		next, err := proc.Evaluate(ctx, records)
		if err != nil {
			logger.Warn("quality processor failed; keeping its input", "processor", proc.Name(), "error", err)
			run.AddError("quality", err)
			continue
		}
		records = next
	}
	sweep = sweep.Filter(records)
	run.Discounts = len(sweep.Records())

	var (
		result reconcile.Result
		err    error
	)
	switch kind {
	case core.CycleCleanup:
		result, err = p.Reconciler.Cleanup(ctx, sweep)
	default:
		result, err = p.Reconciler.Reconcile(ctx, sweep)
	}
	run.Added = result.Added
	run.Removed = result.Removed
	run.SeenCount = p.Reconciler.Len()

	var persistErr *reconcile.PersistError
	if err != nil {
		if !errors.As(err, &persistErr) {
			run.AddError("reconcile", err)
			run.Complete(core.RunStatusFailed)
			spanErr = err
			return run, err
		}
		logger.Error("failed to persist seen set; will retry next cycle", "error", err)
		run.AddError("persist", err)
	}

	if kind == core.CyclePoll && len(result.ToNotify) > 0 {
		for _, out := range p.Outputs {
			report, deliverErr := out.Deliver(ctx, result.ToNotify)
			run.Notified += report.Sent
			run.NotifyFails += report.Failed
			if deliverErr != nil {
				run.AddError("notify", deliverErr)
			}
		}
	}

	status := core.RunStatusCompleted
	if len(run.Errors) > 0 {
		status = core.RunStatusDegraded
	}
	run.Complete(status)
	span.SetAttributes(
		attribute.Int("salewatch.discounts", run.Discounts),
		attribute.Int("salewatch.notified", run.Notified),
		attribute.Int("salewatch.source_failures", run.SourceFails),
	)
	logger.Info("cycle finished",
		"status", run.Status,
		"targets", run.Targets,
		"discounts", run.Discounts,
		"source_failures", run.SourceFails,
		"notified", run.Notified,
		"notify_failures", run.NotifyFails,
		"added", len(run.Added),
		"removed", len(run.Removed),
		"seen", run.SeenCount,
	)

	if persistErr != nil {
		spanErr = persistErr
		return run, persistErr
	}
	return run, nil
}

func (r *Runner) setRunning(run *core.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = run
}

func (r *Runner) finish(run *core.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.CompletedAt == nil {
		run.Complete(core.RunStatusFailed)
	}
	r.running = nil
	r.lastRun = run
}

// Status is a point-in-time view for the health endpoint.
type Status struct {
	Running   bool      `json:"running"`
	LastRun   *core.Run `json:"last_run,omitempty"`
	SeenCount int       `json:"seen_count"`
	Policy    string    `json:"policy"`
	Targets   int       `json:"targets"`
}

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := Status{Running: r.running != nil}
	if r.lastRun != nil {
		copied := *r.lastRun
		status.LastRun = &copied
	}
	if r.pipeline != nil {
		status.Targets = len(r.pipeline.Targets)
		if r.pipeline.Reconciler != nil {
			status.SeenCount = r.pipeline.Reconciler.Len()
			status.Policy = string(r.pipeline.Reconciler.Policy())
		}
	}
	return status
}
