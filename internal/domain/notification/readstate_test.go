package notification

import (
	"context"
	"errors"
	"testing"

	"notibell/internal/common"
	"notibell/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *Store, *Engine, store.Store) {
	t.Helper()
	db := store.NewMemoryStore()
	notifStore := NewStore(db)
	tracker := NewTracker(db, notifStore)
	engine := NewEngine(db, &fakeResolver{})
	return tracker, notifStore, engine, db
}

func TestTracker_MarkReadUnreadRoundTrip(t *testing.T) {
	ctx := context.Background()
	tracker, notifStore, engine, db := newTestTracker(t)

	n, err := notifStore.Create(ctx, &Notification{NID: "n1", BodyShort: "body"})
	require.NoError(t, err)
	require.NoError(t, engine.Push(ctx, n, []UserID{1}))

	require.NoError(t, tracker.MarkRead(ctx, 1, "n1"))

	isUnread, err := db.SortedSetIsMember(ctx, unreadKey(1), "n1")
	require.NoError(t, err)
	assert.False(t, isUnread)
	isRead, err := db.SortedSetIsMember(ctx, readKey(1), "n1")
	require.NoError(t, err)
	assert.True(t, isRead)

	require.NoError(t, tracker.MarkUnread(ctx, 1, "n1"))

	isUnread, err = db.SortedSetIsMember(ctx, unreadKey(1), "n1")
	require.NoError(t, err)
	assert.True(t, isUnread)
	isRead, err = db.SortedSetIsMember(ctx, readKey(1), "n1")
	require.NoError(t, err)
	assert.False(t, isRead)

	count, err := tracker.GetCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTracker_MarkFalsyInputsAreNoOps(t *testing.T) {
	ctx := context.Background()
	tracker, _, _, _ := newTestTracker(t)

	require.NoError(t, tracker.MarkRead(ctx, 0, "anything"))
	require.NoError(t, tracker.MarkRead(ctx, 1, ""))
	require.NoError(t, tracker.MarkUnread(ctx, 0, "anything"))
	require.NoError(t, tracker.MarkUnread(ctx, 1, ""))
}

func TestTracker_MarkUnknownNotificationFails(t *testing.T) {
	ctx := context.Background()
	tracker, _, _, _ := newTestTracker(t)

	var notFound *common.NotFoundError

	err := tracker.MarkRead(ctx, 1, "123123")
	require.ErrorAs(t, err, &notFound)

	err = tracker.MarkUnread(ctx, 1, "123123")
	require.ErrorAs(t, err, &notFound)
}

func TestTracker_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	tracker, notifStore, engine, db := newTestTracker(t)

	for _, nid := range []string{"a", "b", "c"} {
		n, err := notifStore.Create(ctx, &Notification{NID: nid, BodyShort: nid})
		require.NoError(t, err)
		require.NoError(t, engine.Push(ctx, n, []UserID{1}))
	}

	t.Run("restricted to supplied ids", func(t *testing.T) {
		require.NoError(t, tracker.MarkAllRead(ctx, 1, []string{"a"}))

		count, err := tracker.GetCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		isRead, err := db.SortedSetIsMember(ctx, readKey(1), "a")
		require.NoError(t, err)
		assert.True(t, isRead)
	})

	t.Run("everything unread", func(t *testing.T) {
		require.NoError(t, tracker.MarkAllRead(ctx, 1, nil))

		count, err := tracker.GetCount(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, count)

		readCard, err := db.SortedSetCard(ctx, readKey(1))
		require.NoError(t, err)
		assert.Equal(t, int64(3), readCard)
	})

	t.Run("nothing unread is a silent no-op", func(t *testing.T) {
		require.NoError(t, tracker.MarkAllRead(ctx, 1000, nil))
	})
}

// brokenMoveStore fails batch index moves without applying them.
type brokenMoveStore struct {
	store.Store
}

func (b *brokenMoveStore) SortedSetMoveMulti(ctx context.Context, fromKey, toKey string, entries []store.Entry) error {
	return errors.New("connection reset")
}

func TestTracker_MarkAllReadFailureLeavesIndexesDisjoint(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	notifStore := NewStore(db)
	engine := NewEngine(db, &fakeResolver{})
	tracker := NewTracker(&brokenMoveStore{Store: db}, notifStore)

	n, err := notifStore.Create(ctx, &Notification{NID: "n1", BodyShort: "body"})
	require.NoError(t, err)
	require.NoError(t, engine.Push(ctx, n, []UserID{1}))

	require.Error(t, tracker.MarkAllRead(ctx, 1, nil))

	// A failed transition must move nothing: still unread, never read.
	isUnread, err := db.SortedSetIsMember(ctx, unreadKey(1), "n1")
	require.NoError(t, err)
	assert.True(t, isUnread)
	isRead, err := db.SortedSetIsMember(ctx, readKey(1), "n1")
	require.NoError(t, err)
	assert.False(t, isRead)
}

func TestTracker_GetCountAnonymous(t *testing.T) {
	ctx := context.Background()
	tracker, _, _, _ := newTestTracker(t)

	count, err := tracker.GetCount(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTracker_Get(t *testing.T) {
	ctx := context.Background()
	tracker, notifStore, engine, db := newTestTracker(t)

	for _, nid := range []string{"first", "second"} {
		n, err := notifStore.Create(ctx, &Notification{NID: nid, BodyShort: nid, Path: "/" + nid})
		require.NoError(t, err)
		require.NoError(t, engine.Push(ctx, n, []UserID{1}))
	}
	// Force distinct delivery times so ordering is deterministic
	require.NoError(t, db.SortedSetAdd(ctx, unreadKey(1), 100, "first"))
	require.NoError(t, db.SortedSetAdd(ctx, unreadKey(1), 200, "second"))

	require.NoError(t, tracker.MarkRead(ctx, 1, "first"))

	inbox, err := tracker.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, inbox.Unread, 1)
	require.Len(t, inbox.Read, 1)
	assert.Equal(t, "second", inbox.Unread[0].NID)
	assert.Equal(t, "first", inbox.Read[0].NID)

	t.Run("newest transition first", func(t *testing.T) {
		require.NoError(t, tracker.MarkRead(ctx, 1, "second"))

		inbox, err := tracker.Get(ctx, 1)
		require.NoError(t, err)
		require.Len(t, inbox.Read, 2)
		assert.Equal(t, "second", inbox.Read[0].NID)
		assert.Equal(t, "first", inbox.Read[1].NID)
	})

	t.Run("explicit nids", func(t *testing.T) {
		records, err := tracker.GetByNIDs(ctx, 1, []string{"first"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "first", records[0].BodyShort)
		assert.Equal(t, "/first", records[0].Path)
	})

	t.Run("anonymous uid yields empty inbox", func(t *testing.T) {
		inbox, err := tracker.Get(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, inbox.Unread)
		assert.Empty(t, inbox.Read)
	})
}

func TestTracker_DeleteAll(t *testing.T) {
	ctx := context.Background()
	tracker, notifStore, engine, _ := newTestTracker(t)

	n, err := notifStore.Create(ctx, &Notification{NID: "n1", BodyShort: "body"})
	require.NoError(t, err)
	require.NoError(t, engine.Push(ctx, n, []UserID{1, 2}))
	require.NoError(t, tracker.MarkRead(ctx, 2, "n1"))

	t.Run("anonymous identity is rejected", func(t *testing.T) {
		var noPrivileges *common.NoPrivilegesError
		err := tracker.DeleteAll(ctx, 0)
		require.ErrorAs(t, err, &noPrivileges)
	})

	t.Run("clears only the target recipient", func(t *testing.T) {
		require.NoError(t, tracker.DeleteAll(ctx, 1))

		inbox, err := tracker.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, inbox.Unread)
		assert.Empty(t, inbox.Read)

		// Recipient 2 and the global record are untouched
		inbox, err = tracker.Get(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, inbox.Read, 1)

		record, err := notifStore.Get(ctx, "n1")
		require.NoError(t, err)
		assert.NotNil(t, record)
	})

	t.Run("maintenance clear no-ops on the anonymous identity", func(t *testing.T) {
		require.NoError(t, tracker.Clear(ctx, 0))
	})
}
