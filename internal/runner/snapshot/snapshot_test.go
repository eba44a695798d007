package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/salewatch/internal/core"
)

type countingSource struct {
	sweep core.Sweep
	calls int
}

func (c *countingSource) Name() string    { return "counting" }
func (c *countingSource) Validate() error { return nil }
func (c *countingSource) Sweep(ctx context.Context, targets []core.Target) core.Sweep {
	c.calls++
	return c.sweep
}

func sampleSweep() core.Sweep {
	steam := core.Target{Platform: core.PlatformSteam, Title: "Black Ops 3", URL: "https://store.steampowered.com/app/311210/"}
	xbox := core.Target{Platform: core.PlatformXbox, Title: "Black Ops 3", URL: "https://www.xbox.com/x"}
	record := core.NewRecord(steam)
	record.DiscountLabel = "-67%"
	return core.Sweep{Results: []core.SourceResult{
		{Target: steam, Record: record},
		{Target: xbox, Err: errors.New("status 503")},
	}}
}

func TestSaveThenRestoreReplaysSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sweep.json")
	live := &countingSource{sweep: sampleSweep()}

	saver, err := WrapSource(live, path, ModeSave, nil)
	if err != nil {
		t.Fatalf("wrap save: %v", err)
	}
	saved := saver.Sweep(context.Background(), nil)

	restorer, err := WrapSource(live, path, ModeRestore, nil)
	if err != nil {
		t.Fatalf("wrap restore: %v", err)
	}
	restored := restorer.Sweep(context.Background(), nil)

	if live.calls != 1 {
		t.Fatalf("restore must not fetch live, got %d calls", live.calls)
	}
	if diff := cmp.Diff(saved.Records(), restored.Records()); diff != "" {
		t.Fatalf("records mismatch (-saved +restored):\n%s", diff)
	}
	if diff := cmp.Diff(saved.UnknownIDs(), restored.UnknownIDs()); diff != "" {
		t.Fatalf("unknown ids mismatch (-saved +restored):\n%s", diff)
	}
	if restored.Results[1].Err == nil || restored.Results[1].Err.Error() != "status 503" {
		t.Fatalf("expected restored error, got %v", restored.Results[1].Err)
	}
}

func TestRestoreFallsBackToLiveWhenMissing(t *testing.T) {
	live := &countingSource{sweep: sampleSweep()}
	restorer, err := WrapSource(live, filepath.Join(t.TempDir(), "missing.json"), ModeRestore, nil)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	restorer.Sweep(context.Background(), nil)
	if live.calls != 1 {
		t.Fatalf("expected live fetch, got %d calls", live.calls)
	}
}

func TestWrapSourceValidation(t *testing.T) {
	live := &countingSource{}
	if p, err := WrapSource(live, "", "", nil); err != nil || p != live {
		t.Fatalf("empty mode should return the processor unchanged")
	}
	if _, err := WrapSource(live, "", ModeSave, nil); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if _, err := WrapSource(live, "x.json", "replay", nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
