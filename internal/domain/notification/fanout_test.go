package notification

import (
	"context"
	"testing"

	"notibell/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver is a map-backed GroupResolver for tests.
type fakeResolver struct {
	members map[string][]UserID
}

func (f *fakeResolver) ResolveMembers(ctx context.Context, group string) ([]UserID, error) {
	return f.members[group], nil
}

func (f *fakeResolver) IsMember(ctx context.Context, uid UserID, group string) (bool, error) {
	for _, member := range f.members[group] {
		if member == uid {
			return true, nil
		}
	}
	return false, nil
}

func newTestEngine(resolver *fakeResolver) (*Engine, store.Store) {
	db := store.NewMemoryStore()
	if resolver == nil {
		resolver = &fakeResolver{}
	}
	return NewEngine(db, resolver), db
}

func TestEngine_PushNoOps(t *testing.T) {
	ctx := context.Background()
	engine, db := newTestEngine(nil)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.Push(ctx, nil, []UserID{1}))
	require.NoError(t, engine.Push(ctx, &Notification{}, []UserID{1}))
	require.NoError(t, engine.Push(ctx, n, nil))
	require.NoError(t, engine.Push(ctx, n, []UserID{}))

	// No index was touched
	card, err := db.SortedSetCard(ctx, unreadKey(1))
	require.NoError(t, err)
	assert.Zero(t, card)
}

func TestEngine_Push(t *testing.T) {
	ctx := context.Background()
	engine, db := newTestEngine(nil)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.Push(ctx, n, []UserID{1, 2}))

	for _, uid := range []UserID{1, 2} {
		isUnread, err := db.SortedSetIsMember(ctx, unreadKey(uid), "n1")
		require.NoError(t, err)
		assert.True(t, isUnread, "uid %d should have n1 unread", uid)

		isRead, err := db.SortedSetIsMember(ctx, readKey(uid), "n1")
		require.NoError(t, err)
		assert.False(t, isRead)
	}
}

func TestEngine_PushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, db := newTestEngine(nil)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.Push(ctx, n, []UserID{1}))
	require.NoError(t, engine.Push(ctx, n, []UserID{1}))

	card, err := db.SortedSetCard(ctx, unreadKey(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)
}

func TestEngine_PushSkipsReadNotifications(t *testing.T) {
	ctx := context.Background()
	engine, db := newTestEngine(nil)
	n := &Notification{NID: "n1", BodyShort: "body"}

	// uid 1 already read this notification
	require.NoError(t, db.SortedSetAdd(ctx, readKey(1), 100, "n1"))

	require.NoError(t, engine.Push(ctx, n, []UserID{1}))

	isUnread, err := db.SortedSetIsMember(ctx, unreadKey(1), "n1")
	require.NoError(t, err)
	assert.False(t, isUnread, "a read notification must not return to unread")

	isRead, err := db.SortedSetIsMember(ctx, readKey(1), "n1")
	require.NoError(t, err)
	assert.True(t, isRead)
}

func TestEngine_PushSkipsAnonymous(t *testing.T) {
	ctx := context.Background()
	engine, db := newTestEngine(nil)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.Push(ctx, n, []UserID{0, 3}))

	isUnread, err := db.SortedSetIsMember(ctx, unreadKey(0), "n1")
	require.NoError(t, err)
	assert.False(t, isUnread)

	isUnread, err = db.SortedSetIsMember(ctx, unreadKey(3), "n1")
	require.NoError(t, err)
	assert.True(t, isUnread)
}

func TestEngine_PushGroup(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{members: map[string][]UserID{
		"registered-users": {1, 2, 3},
	}}
	engine, db := newTestEngine(resolver)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.PushGroup(ctx, n, "registered-users"))

	for _, uid := range []UserID{1, 2, 3} {
		isUnread, err := db.SortedSetIsMember(ctx, unreadKey(uid), "n1")
		require.NoError(t, err)
		assert.True(t, isUnread, "uid %d should have n1 unread", uid)
	}

	// Unknown group is a silent no-op
	require.NoError(t, engine.PushGroup(ctx, n, "does-not-exist"))
	require.NoError(t, engine.PushGroup(ctx, n, ""))
}

func TestEngine_PushGroupsDeduplicatesUnion(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{members: map[string][]UserID{
		"A": {1, 2},
		"B": {2, 3},
	}}
	engine, db := newTestEngine(resolver)
	n := &Notification{NID: "n1", BodyShort: "body"}

	require.NoError(t, engine.PushGroups(ctx, n, []string{"A", "B"}))

	// uid 2 belongs to both groups but receives exactly one delivery
	card, err := db.SortedSetCard(ctx, unreadKey(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)

	for _, uid := range []UserID{1, 3} {
		isUnread, err := db.SortedSetIsMember(ctx, unreadKey(uid), "n1")
		require.NoError(t, err)
		assert.True(t, isUnread)
	}
}
