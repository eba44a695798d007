package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bakkerme/salewatch/internal/core"
)

type Mode string

const (
	ModeSave    Mode = "save"
	ModeRestore Mode = "restore"
)

// Source wraps a SourceProcessor so sweeps can be recorded to, or replayed
// from, a JSON file.
type Source struct {
	core.SourceProcessor
	path   string
	mode   Mode
	logger *slog.Logger
}

// WrapSource returns processor unchanged when mode is empty.
func WrapSource(processor core.SourceProcessor, path string, mode Mode, logger *slog.Logger) (core.SourceProcessor, error) {
	if processor == nil {
		return nil, nil
	}
	switch mode {
	case "":
		return processor, nil
	case ModeSave, ModeRestore:
	default:
		return nil, fmt.Errorf("unknown snapshot mode %q", mode)
	}
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required for mode %q", mode)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{SourceProcessor: processor, path: path, mode: mode, logger: logger}, nil
}

func (s *Source) Sweep(ctx context.Context, targets []core.Target) core.Sweep {
	logger := core.LoggerFromContext(ctx, s.logger)
	if s.mode == ModeRestore {
		sweep, err := Load(s.path)
		if err == nil {
			logger.Info("sweep restored from snapshot", "path", s.path, "results", len(sweep.Results))
			return sweep
		}
		logger.Warn("snapshot restore failed; fetching live", "path", s.path, "error", err)
	}

	sweep := s.SourceProcessor.Sweep(ctx, targets)
	if s.mode == ModeSave {
		if err := Save(s.path, sweep); err != nil {
			logger.Warn("snapshot save failed", "path", s.path, "error", err)
		}
	}
	return sweep
}
