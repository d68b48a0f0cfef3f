package notification

import (
	"context"
	"fmt"
	"time"

	"notibell/internal/infra/store"
)

// DefaultIntervals is the stock registry of recognized interval names
// for unread digest queries.
var DefaultIntervals = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

// Digest answers time-bounded unread queries and type-filtered listings
// over a recipient's indexes.
type Digest struct {
	db        store.Store
	store     *Store
	intervals map[string]time.Duration
}

// NewDigest creates a digest query component. A nil intervals map
// selects DefaultIntervals.
func NewDigest(db store.Store, notifStore *Store, intervals map[string]time.Duration) *Digest {
	if intervals == nil {
		intervals = DefaultIntervals
	}
	return &Digest{db: db, store: notifStore, intervals: intervals}
}

// GetUnreadInterval returns the recipient's unread notifications whose
// creation time falls within the named interval ending now. An
// unrecognized interval name or anonymous uid yields an empty result,
// not an error.
func (d *Digest) GetUnreadInterval(ctx context.Context, uid UserID, interval string) ([]*Notification, error) {
	window, ok := d.intervals[interval]
	if !ok || uid.IsAnonymous() {
		return []*Notification{}, nil
	}

	nids, err := d.db.SortedSetRevRange(ctx, unreadKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing unread for uid %d: %w", uid, err)
	}

	records, err := d.store.GetMultiple(ctx, nids)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-window).UnixMilli()
	recent := make([]*Notification, 0, len(records))
	for _, n := range records {
		if n.Datetime >= cutoff {
			recent = append(recent, n)
		}
	}
	return recent, nil
}

// GetDailyUnread is shorthand for the "day" interval.
func (d *Digest) GetDailyUnread(ctx context.Context, uid UserID) ([]*Notification, error) {
	return d.GetUnreadInterval(ctx, uid, "day")
}

// GetAll returns the ids of all of the recipient's notifications,
// unread and read, optionally restricted to records whose type equals
// typeFilter. An empty filter means no restriction.
func (d *Digest) GetAll(ctx context.Context, uid UserID, typeFilter string) ([]string, error) {
	if uid.IsAnonymous() {
		return []string{}, nil
	}

	unread, err := d.db.SortedSetRevRange(ctx, unreadKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing unread for uid %d: %w", uid, err)
	}
	read, err := d.db.SortedSetRevRange(ctx, readKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing read for uid %d: %w", uid, err)
	}

	// Fetching the records both applies the existence rules and exposes
	// the type field for filtering.
	records, err := d.store.GetMultiple(ctx, append(unread, read...))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, n := range records {
		if typeFilter != "" && n.Type != typeFilter {
			continue
		}
		out = append(out, n.NID)
	}
	return out, nil
}
