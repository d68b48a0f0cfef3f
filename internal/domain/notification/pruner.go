package notification

import (
	"context"
	"log/slog"
	"time"
)

// PrunerConfig holds configuration for the retention sweeper.
type PrunerConfig struct {
	// Interval is how often a sweep runs.
	Interval time.Duration

	// Retention is how long a notification lives before it is
	// permanently deleted, regardless of per-recipient read state.
	Retention time.Duration
}

// Pruner periodically sweeps the global index and destroys
// notifications older than the retention window. It runs in the worker
// process on a timer, independent of request traffic.
type Pruner struct {
	store  *Store
	config PrunerConfig
}

// NewPruner creates a new retention sweeper.
func NewPruner(store *Store, cfg PrunerConfig) *Pruner {
	// Sensible defaults
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &Pruner{store: store, config: cfg}
}

// Run starts the sweep loop. It blocks until the context is cancelled.
// Should be called in a goroutine.
func (p *Pruner) Run(ctx context.Context) {
	slog.Info("pruner started",
		"interval", p.config.Interval,
		"retention", p.config.Retention,
	)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pruner stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep performs one retention cycle.
func (p *Pruner) sweep(ctx context.Context) {
	start := time.Now()

	removed, err := p.store.Prune(ctx, p.config.Retention)
	if err != nil {
		slog.Error("pruner: sweep failed", "removed", removed, "error", err)
		return
	}

	if removed > 0 {
		slog.Info("pruner: sweep complete",
			"removed", removed,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}
}
