package notification

import (
	"context"
	"log/slog"
)

// Worker processes fan-out tasks from the queue: it re-fetches the
// record, resolves direct recipients plus group unions, and hands the
// result to the engine.
type Worker struct {
	store  *Store
	engine *Engine
}

// NewWorker creates a new fan-out worker.
func NewWorker(store *Store, engine *Engine) *Worker {
	return &Worker{store: store, engine: engine}
}

// ProcessFanout handles one fan-out task. A notification that no longer
// exists by processing time (pruned, or superseded under a different
// nid during the debounce window) is a logged no-op, not an error: a
// single stale trigger must not fail the queue.
func (w *Worker) ProcessFanout(ctx context.Context, p *FanoutPayload) error {
	if p == nil || p.NID == "" {
		return nil
	}

	record, err := w.store.Get(ctx, p.NID)
	if err != nil {
		return err
	}
	if record == nil {
		slog.Info("fanout skipped, notification gone", "nid", p.NID)
		return nil
	}

	if len(p.UIDs) > 0 {
		if err := w.engine.Push(ctx, record, p.UIDs); err != nil {
			return err
		}
	}
	if len(p.Groups) > 0 {
		if err := w.engine.PushGroups(ctx, record, p.Groups); err != nil {
			return err
		}
	}
	return nil
}
