package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/retry"
	"github.com/bakkerme/salewatch/internal/seen"
)

// PersistError reports that the updated seen set could not be written.
// The in-memory set is already updated; the next cycle retries the write.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist seen set: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type Config struct {
	Policy Policy
	// Retry controls attempts at writing the seen set.
	Retry retry.Config
}

// Reconciler owns the seen set. All mutation goes through Reconcile and
// Cleanup, which are serialized; the store has no other writer.
type Reconciler struct {
	mu     sync.Mutex
	store  seen.Store
	config Config
	logger *slog.Logger
	seen   mapset.Set[string]
	dirty  bool
}

// New loads the seen set from store.
func New(ctx context.Context, store seen.Store, cfg Config, logger *slog.Logger) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("seen store is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen set: %w", err)
	}
	return &Reconciler{
		store:  store,
		config: cfg,
		logger: logger,
		seen:   cloneSet(loaded),
	}, nil
}

func (r *Reconciler) Policy() Policy {
	return r.config.Policy
}

// Reconcile applies a poll sweep. The returned Result is valid even when a
// *PersistError is returned, so callers can still notify.
func (r *Reconciler) Reconcile(ctx context.Context, sweep core.Sweep) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := Plan(r.config.Policy, r.seen, sweep)
	return result, r.commit(ctx, result)
}

// Cleanup prunes ids that are no longer discounted. Under the strict policy
// polls already prune, so Cleanup leaves the set untouched.
func (r *Reconciler) Cleanup(ctx context.Context, sweep core.Sweep) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Policy != PolicyIncremental {
		return Result{Seen: cloneSet(r.seen)}, nil
	}
	result := Prune(r.seen, sweep)
	return result, r.commit(ctx, result)
}

// Snapshot returns the seen ids in lexical order.
func (r *Reconciler) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.seen.ToSlice()
	sort.Strings(out)
	return out
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen.Cardinality()
}

func (r *Reconciler) commit(ctx context.Context, result Result) error {
	logger := core.LoggerFromContext(ctx, r.logger)
	r.seen = cloneSet(result.Seen)
	if result.Changed() {
		r.dirty = true
		logger.Info("seen set changed", "added", len(result.Added), "removed", len(result.Removed), "size", r.seen.Cardinality())
	}
	if !r.dirty {
		return nil
	}

	retryCfg := r.config.Retry
	retryCfg.OnRetry = func(attempt int, err error) {
		logger.Warn("retrying seen set write", "attempt", attempt, "error", err)
	}
	snapshot := cloneSet(r.seen)
	err := retry.Do(ctx, retryCfg, func() error {
		return r.store.Save(ctx, snapshot)
	})
	if err != nil {
		return &PersistError{Err: err}
	}
	r.dirty = false
	return nil
}
