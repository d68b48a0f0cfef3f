package notification

import (
	"context"
	"fmt"
	"time"

	"notibell/internal/common"
	"notibell/internal/infra/store"
)

// Tracker owns per-recipient unread/read indexes and the transitions
// between them. At any instant a (recipient, nid) pair lives in at most
// one of the two indexes.
type Tracker struct {
	db    store.Store
	store *Store
}

// NewTracker creates a new read-state tracker.
func NewTracker(db store.Store, notifStore *Store) *Tracker {
	return &Tracker{db: db, store: notifStore}
}

// MarkRead moves a notification from the recipient's unread index to
// the read index, scored by the transition time. An anonymous uid or
// empty nid is a silent no-op; a nid absent from the global index fails
// with a not-found error.
func (t *Tracker) MarkRead(ctx context.Context, uid UserID, nid string) error {
	return t.transition(ctx, uid, nid, unreadKey(uid), readKey(uid))
}

// MarkUnread is the inverse transition: read back to unread.
func (t *Tracker) MarkUnread(ctx context.Context, uid UserID, nid string) error {
	return t.transition(ctx, uid, nid, readKey(uid), unreadKey(uid))
}

func (t *Tracker) transition(ctx context.Context, uid UserID, nid, fromKey, toKey string) error {
	if uid.IsAnonymous() || nid == "" {
		return nil
	}

	exists, err := t.store.Exists(ctx, nid)
	if err != nil {
		return err
	}
	if !exists {
		return common.NewNotFoundError("notification", nid)
	}

	now := float64(time.Now().UnixMilli())
	if err := t.db.SortedSetMove(ctx, fromKey, toKey, nid, now); err != nil {
		return fmt.Errorf("transitioning %s for uid %d: %w", nid, uid, err)
	}
	return nil
}

// MarkAllRead moves everything currently unread for the recipient into
// the read index, optionally restricted to the supplied nids. A
// recipient with nothing unread is a silent no-op.
func (t *Tracker) MarkAllRead(ctx context.Context, uid UserID, nids []string) error {
	if uid.IsAnonymous() {
		return nil
	}

	unread, err := t.db.SortedSetRevRange(ctx, unreadKey(uid), 0, -1)
	if err != nil {
		return fmt.Errorf("listing unread for uid %d: %w", uid, err)
	}
	if len(nids) > 0 {
		wanted := make(map[string]bool, len(nids))
		for _, nid := range nids {
			wanted[nid] = true
		}
		filtered := unread[:0]
		for _, nid := range unread {
			if wanted[nid] {
				filtered = append(filtered, nid)
			}
		}
		unread = filtered
	}
	if len(unread) == 0 {
		return nil
	}

	// One atomic batch move: a nid must never be observable in both
	// indexes, and a failure must move nothing.
	now := float64(time.Now().UnixMilli())
	entries := make([]store.Entry, len(unread))
	for i, nid := range unread {
		entries[i] = store.Entry{Member: nid, Score: now}
	}
	if err := t.db.SortedSetMoveMulti(ctx, unreadKey(uid), readKey(uid), entries); err != nil {
		return fmt.Errorf("marking read for uid %d: %w", uid, err)
	}
	return nil
}

// GetCount returns the recipient's unread count. An anonymous uid
// yields 0, never an error.
func (t *Tracker) GetCount(ctx context.Context, uid UserID) (int64, error) {
	if uid.IsAnonymous() {
		return 0, nil
	}
	count, err := t.db.SortedSetCard(ctx, unreadKey(uid))
	if err != nil {
		return 0, fmt.Errorf("counting unread for uid %d: %w", uid, err)
	}
	return count, nil
}

// GetByNIDs returns the records for the given ids, with the same
// existence rules as the notification store: dead ids are omitted.
func (t *Tracker) GetByNIDs(ctx context.Context, uid UserID, nids []string) ([]*Notification, error) {
	if uid.IsAnonymous() {
		return []*Notification{}, nil
	}
	return t.store.GetMultiple(ctx, nids)
}

// Get returns the recipient's inbox: unread and read records, each
// ordered by newest state transition first. An anonymous uid yields an
// empty inbox.
func (t *Tracker) Get(ctx context.Context, uid UserID) (*Inbox, error) {
	inbox := &Inbox{Unread: []*Notification{}, Read: []*Notification{}}
	if uid.IsAnonymous() {
		return inbox, nil
	}

	unreadNIDs, err := t.db.SortedSetRevRange(ctx, unreadKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing unread for uid %d: %w", uid, err)
	}
	readNIDs, err := t.db.SortedSetRevRange(ctx, readKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("listing read for uid %d: %w", uid, err)
	}

	if inbox.Unread, err = t.orderedRecords(ctx, unreadNIDs); err != nil {
		return nil, err
	}
	if inbox.Read, err = t.orderedRecords(ctx, readNIDs); err != nil {
		return nil, err
	}
	return inbox, nil
}

// orderedRecords fetches records preserving the order of nids; ids with
// no live record are dropped.
func (t *Tracker) orderedRecords(ctx context.Context, nids []string) ([]*Notification, error) {
	records, err := t.store.GetMultiple(ctx, nids)
	if err != nil {
		return nil, err
	}
	byNID := make(map[string]*Notification, len(records))
	for _, n := range records {
		byNID[n.NID] = n
	}
	ordered := make([]*Notification, 0, len(records))
	for _, nid := range nids {
		if n, ok := byNID[nid]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}

// DeleteAll is the user-facing destructive action: it clears both of
// the recipient's indexes. The anonymous identity is rejected with a
// privilege error. Other recipients' indexes and the global records are
// untouched.
func (t *Tracker) DeleteAll(ctx context.Context, uid UserID) error {
	if uid.IsAnonymous() {
		return common.NewNoPrivilegesError("anonymous users cannot delete notifications")
	}
	return t.clear(ctx, uid)
}

// Clear is the maintenance entry point with no-identity no-op
// semantics: clearing notifications for the anonymous identity does
// nothing rather than failing.
func (t *Tracker) Clear(ctx context.Context, uid UserID) error {
	if uid.IsAnonymous() {
		return nil
	}
	return t.clear(ctx, uid)
}

func (t *Tracker) clear(ctx context.Context, uid UserID) error {
	if err := t.db.Delete(ctx, unreadKey(uid), readKey(uid)); err != nil {
		return fmt.Errorf("clearing notifications for uid %d: %w", uid, err)
	}
	return nil
}
