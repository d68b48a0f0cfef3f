package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notibell/internal/infra/store"
)

// fanoutChunkSize bounds how many recipients a single fan-out pass
// touches before yielding.
const fanoutChunkSize = 64

// GroupResolver resolves membership of named recipient groups. Group
// management itself is an external collaborator; implementations live
// in infra/groups/.
type GroupResolver interface {
	// ResolveMembers returns the current member ids of a group. An
	// unknown group resolves to an empty set, not an error.
	ResolveMembers(ctx context.Context, group string) ([]UserID, error)

	// IsMember reports whether uid belongs to the group.
	IsMember(ctx context.Context, uid UserID, group string) (bool, error)
}

// Engine delivers notifications into recipients' unread indexes. It is
// the only component besides the Tracker allowed to write a recipient's
// unread index, and it never writes the read index.
type Engine struct {
	db     store.Store
	groups GroupResolver
}

// NewEngine creates a new fan-out engine.
func NewEngine(db store.Store, groups GroupResolver) *Engine {
	return &Engine{db: db, groups: groups}
}

// Push delivers a notification to each recipient. A nil record, an
// empty nid, or an empty recipient list is a silent no-op. Delivery is
// idempotent per (recipient, nid) pair, and a notification the
// recipient has already read is never moved back to unread.
func (e *Engine) Push(ctx context.Context, n *Notification, uids []UserID) error {
	if n == nil || n.NID == "" || len(uids) == 0 {
		return nil
	}

	start := time.Now()
	now := float64(start.UnixMilli())

	delivered := 0
	for offset := 0; offset < len(uids); offset += fanoutChunkSize {
		end := offset + fanoutChunkSize
		if end > len(uids) {
			end = len(uids)
		}
		for _, uid := range uids[offset:end] {
			if uid.IsAnonymous() {
				continue
			}
			read, err := e.db.SortedSetIsMember(ctx, readKey(uid), n.NID)
			if err != nil {
				return fmt.Errorf("checking read state for uid %d: %w", uid, err)
			}
			if read {
				continue
			}
			// Re-delivery of an already-unread notification keeps its
			// original delivery time.
			unread, err := e.db.SortedSetIsMember(ctx, unreadKey(uid), n.NID)
			if err != nil {
				return fmt.Errorf("checking unread state for uid %d: %w", uid, err)
			}
			if unread {
				continue
			}
			if err := e.db.SortedSetAdd(ctx, unreadKey(uid), now, n.NID); err != nil {
				return fmt.Errorf("delivering %s to uid %d: %w", n.NID, uid, err)
			}
			delivered++
		}
	}

	slog.Info("notification delivered",
		"nid", n.NID,
		"recipients", len(uids),
		"delivered", delivered,
		"duration", time.Since(start),
	)
	return nil
}

// PushGroup delivers a notification to every current member of a group.
func (e *Engine) PushGroup(ctx context.Context, n *Notification, group string) error {
	if n == nil || n.NID == "" || group == "" {
		return nil
	}
	return e.PushGroups(ctx, n, []string{group})
}

// PushGroups delivers a notification once to the union of members
// across the named groups. A recipient belonging to several of the
// groups receives exactly one delivery.
func (e *Engine) PushGroups(ctx context.Context, n *Notification, groups []string) error {
	if n == nil || n.NID == "" || len(groups) == 0 {
		return nil
	}

	seen := make(map[UserID]struct{})
	var uids []UserID
	for _, group := range groups {
		members, err := e.groups.ResolveMembers(ctx, group)
		if err != nil {
			return fmt.Errorf("resolving group %s: %w", group, err)
		}
		for _, uid := range members {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			uids = append(uids, uid)
		}
	}

	return e.Push(ctx, n, uids)
}
