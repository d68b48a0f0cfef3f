package notification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"notibell/internal/common"
	"notibell/internal/infra/store"
)

// pruneBatchSize bounds how many index entries a prune cycle loads at once.
const pruneBatchSize = 500

// Store owns notification record content and the global existence
// index. All record mutation goes through it; recipient-facing indexes
// belong to the Tracker and the fan-out Engine.
type Store struct {
	db store.Store
}

// NewStore creates a new notification store over the given adapter.
func NewStore(db store.Store) *Store {
	return &Store{db: db}
}

// Create persists a notification record and registers it in the global
// index. When the payload carries a subject id (PID), the importance
// rule applies against any live notification for the same subject:
// lower-or-equal importance is suppressed and returns (nil, nil);
// strictly higher importance destroys the previous record and replaces
// it. The stored record's Datetime is stamped here.
func (s *Store) Create(ctx context.Context, n *Notification) (*Notification, error) {
	if n == nil || n.NID == "" {
		return nil, common.NewMissingIdentifierError("nid")
	}

	if n.PID != 0 {
		suppressed, err := s.applyDedup(ctx, n)
		if err != nil {
			return nil, err
		}
		if suppressed {
			return nil, nil
		}
	}

	record := *n
	record.Datetime = time.Now().UnixMilli()

	// Record first, index second: the index is authoritative for
	// existence, so a crash in between leaves an orphan record the
	// system already treats as deleted.
	if err := s.db.SetObject(ctx, recordKey(record.NID), record.toFields()); err != nil {
		return nil, fmt.Errorf("persisting notification %s: %w", record.NID, err)
	}
	if err := s.db.SortedSetAdd(ctx, globalIndexKey, float64(record.Datetime), record.NID); err != nil {
		return nil, fmt.Errorf("indexing notification %s: %w", record.NID, err)
	}
	if record.PID != 0 {
		if err := s.db.Set(ctx, subjectKey(record.PID), record.NID); err != nil {
			return nil, fmt.Errorf("recording subject pointer for %s: %w", record.NID, err)
		}
	}

	return &record, nil
}

// applyDedup evaluates the importance rule for a subject that may
// already have a live notification. Returns true when the creation must
// be suppressed. On overwrite it destroys the superseded record so the
// subject pointer, record, and index never disagree.
func (s *Store) applyDedup(ctx context.Context, n *Notification) (bool, error) {
	existingNID, err := s.db.Get(ctx, subjectKey(n.PID))
	if err != nil {
		return false, fmt.Errorf("looking up subject %d: %w", n.PID, err)
	}
	if existingNID == "" {
		return false, nil
	}

	live, err := s.db.SortedSetIsMember(ctx, globalIndexKey, existingNID)
	if err != nil {
		return false, fmt.Errorf("checking notification %s: %w", existingNID, err)
	}
	if !live {
		// The previous notification for this subject was pruned or
		// deleted; the pointer is stale and the new creation proceeds.
		return false, nil
	}

	existing, err := s.Get(ctx, existingNID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if n.Importance <= existing.Importance {
		return true, nil
	}

	if existingNID != n.NID {
		if err := s.db.SortedSetRemove(ctx, []string{globalIndexKey}, existingNID); err != nil {
			return false, fmt.Errorf("unindexing superseded notification %s: %w", existingNID, err)
		}
		if err := s.db.Delete(ctx, recordKey(existingNID)); err != nil {
			return false, fmt.Errorf("deleting superseded notification %s: %w", existingNID, err)
		}
	}
	return false, nil
}

// Get returns the record for nid, or nil when it no longer exists in
// the global index. A missing notification is never an error here.
func (s *Store) Get(ctx context.Context, nid string) (*Notification, error) {
	if nid == "" {
		return nil, nil
	}
	records, err := s.GetMultiple(ctx, []string{nid})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// GetMultiple returns the records for the ids that still exist in the
// global index. Unknown ids are silently omitted; an empty or nil input
// yields an empty result.
func (s *Store) GetMultiple(ctx context.Context, nids []string) ([]*Notification, error) {
	if len(nids) == 0 {
		return []*Notification{}, nil
	}

	live, err := s.db.SortedSetIsMembers(ctx, globalIndexKey, nids)
	if err != nil {
		return nil, fmt.Errorf("checking notifications: %w", err)
	}

	var keys []string
	for i, nid := range nids {
		if live[i] {
			keys = append(keys, recordKey(nid))
		}
	}
	if len(keys) == 0 {
		return []*Notification{}, nil
	}

	objects, err := s.db.GetObjects(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	records := make([]*Notification, 0, len(objects))
	for _, fields := range objects {
		if n := fromFields(fields); n != nil {
			records = append(records, n)
		}
	}
	return records, nil
}

// Exists reports whether nid is live, i.e. present in the global index.
func (s *Store) Exists(ctx context.Context, nid string) (bool, error) {
	if nid == "" {
		return false, nil
	}
	return s.db.SortedSetIsMember(ctx, globalIndexKey, nid)
}

// Prune permanently deletes notifications whose creation time is older
// than maxAge, regardless of per-recipient read state. It walks the
// global index in bounded batches and returns the number of
// notifications removed. Safe to run concurrently with creation and
// delivery: only entries strictly older than the cutoff at call time
// are touched.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	// Scores are millisecond timestamps; shaving one keeps an entry aged
	// exactly maxAge out of the strictly-older range.
	return s.pruneBefore(ctx, float64(time.Now().Add(-maxAge).UnixMilli()-1))
}

// pruneBefore deletes every indexed notification scored at or below cutoff.
func (s *Store) pruneBefore(ctx context.Context, cutoff float64) (int, error) {
	removed := 0

	for {
		nids, err := s.db.SortedSetRangeByScore(ctx, globalIndexKey, math.Inf(-1), cutoff, 0, pruneBatchSize)
		if err != nil {
			return removed, fmt.Errorf("scanning global index: %w", err)
		}
		if len(nids) == 0 {
			return removed, nil
		}

		if err := s.deleteBatch(ctx, nids); err != nil {
			return removed, err
		}
		removed += len(nids)

		if len(nids) < pruneBatchSize {
			return removed, nil
		}
	}
}

// deleteBatch removes a batch of notifications: index entries first
// (existence is decided by the index), then subject pointers that still
// reference them, then the records themselves.
func (s *Store) deleteBatch(ctx context.Context, nids []string) error {
	keys := make([]string, len(nids))
	for i, nid := range nids {
		keys[i] = recordKey(nid)
	}

	objects, err := s.db.GetObjects(ctx, keys)
	if err != nil {
		return fmt.Errorf("fetching expired notifications: %w", err)
	}

	if err := s.db.SortedSetRemoveMulti(ctx, globalIndexKey, nids); err != nil {
		return fmt.Errorf("unindexing expired notifications: %w", err)
	}

	for _, fields := range objects {
		n := fromFields(fields)
		if n == nil || n.PID == 0 {
			continue
		}
		pointer, err := s.db.Get(ctx, subjectKey(n.PID))
		if err != nil {
			return fmt.Errorf("checking subject pointer for %s: %w", n.NID, err)
		}
		if pointer == n.NID {
			if err := s.db.Delete(ctx, subjectKey(n.PID)); err != nil {
				return fmt.Errorf("deleting subject pointer for %s: %w", n.NID, err)
			}
		}
	}

	if err := s.db.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("deleting expired notifications: %w", err)
	}

	slog.Debug("pruned notification batch", "count", len(nids))
	return nil
}
