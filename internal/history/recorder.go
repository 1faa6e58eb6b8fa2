package history

import (
	"context"

	"vigil/internal/config"
)

// Recorder is the journal surface the supervisor writes through.
type Recorder interface {
	RecordRun(ctx context.Context, rec Record) error
	Prune(ctx context.Context, keepRuns int) (int64, error)
	Close() error
}

// NewRecorder returns the SQLite journal when history is enabled and a
// noop recorder otherwise.
func NewRecorder(cfg *config.Config) (Recorder, error) {
	if cfg == nil || !cfg.History.Enabled {
		return noopRecorder{}, nil
	}
	return Open(cfg)
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(context.Context, Record) error   { return nil }
func (noopRecorder) Prune(context.Context, int) (int64, error) { return 0, nil }
func (noopRecorder) Close() error                              { return nil }
