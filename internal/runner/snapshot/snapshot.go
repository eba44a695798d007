package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/bakkerme/salewatch/internal/core"
)

type Payload struct {
	SavedAt time.Time  `json:"saved_at"`
	Sweep   core.Sweep `json:"sweep"`
}

// Save writes sweep to path, replacing any previous snapshot atomically.
func Save(path string, sweep core.Sweep) error {
	if path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	results := make([]core.SourceResult, len(sweep.Results))
	for i, result := range sweep.Results {
		if result.Err != nil && result.Error == "" {
			result.Error = result.Err.Error()
		}
		results[i] = result
	}
	payload := Payload{SavedAt: time.Now().UTC(), Sweep: core.Sweep{Results: results}}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads a sweep written by Save. Failed results get their error back
// as an opaque error value.
func Load(path string) (core.Sweep, error) {
	if path == "" {
		return core.Sweep{}, fmt.Errorf("snapshot path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Sweep{}, fmt.Errorf("read snapshot: %w", err)
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.Sweep{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	for i := range payload.Sweep.Results {
		if msg := payload.Sweep.Results[i].Error; msg != "" {
			payload.Sweep.Results[i].Err = errors.New(msg)
		}
	}
	return payload.Sweep, nil
}
