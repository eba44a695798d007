package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/salewatch/internal/core"
)

// Fetcher returns canned results keyed by target id.
type Fetcher struct {
	RecordsByID map[string]*core.DiscountRecord
	ErrByID     map[string]error
	// ErrByPlatform fails every target on a platform.
	ErrByPlatform map[core.Platform]error

	mu    sync.Mutex
	calls []string
}

func (f *Fetcher) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target.ID())
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.ErrByPlatform[target.Platform]; ok {
		return nil, err
	}
	if err, ok := f.ErrByID[target.ID()]; ok {
		return nil, err
	}
	record, ok := f.RecordsByID[target.ID()]
	if !ok || record == nil {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Calls returns the ids fetched so far, in call order.
func (f *Fetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Discount builds a record for target with a label.
func Discount(target core.Target, label string) *core.DiscountRecord {
	record := core.NewRecord(target)
	record.DiscountLabel = label
	return record
}
