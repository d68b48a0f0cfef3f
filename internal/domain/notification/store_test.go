package notification

import (
	"context"
	"testing"
	"time"

	"notibell/internal/common"
	"notibell/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, store.Store) {
	t.Helper()
	db := store.NewMemoryStore()
	return NewStore(db), db
}

func TestStore_CreateRequiresNID(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	var missingID *common.MissingIdentifierError

	_, err := s.Create(ctx, &Notification{BodyShort: "body"})
	require.ErrorAs(t, err, &missingID)

	_, err = s.Create(ctx, nil)
	require.ErrorAs(t, err, &missingID)

	// Nothing was persisted
	card, err := db.SortedSetCard(ctx, globalIndexKey)
	require.NoError(t, err)
	assert.Zero(t, card)
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	record, err := s.Create(ctx, &Notification{
		NID:       "notification_id",
		BodyShort: "bodyShort",
		Path:      "/notification/path",
		PID:       1,
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotZero(t, record.Datetime)

	exists, err := db.Exists(ctx, recordKey("notification_id"))
	require.NoError(t, err)
	assert.True(t, exists)

	isMember, err := db.SortedSetIsMember(ctx, globalIndexKey, "notification_id")
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestStore_CreateDedup(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	original, err := s.Create(ctx, &Notification{
		NID:        "n1",
		BodyShort:  "first",
		PID:        1,
		Importance: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, original)

	t.Run("lower importance is suppressed", func(t *testing.T) {
		record, err := s.Create(ctx, &Notification{
			NID:        "n1",
			BodyShort:  "second",
			PID:        1,
			Importance: 1,
		})
		require.NoError(t, err)
		assert.Nil(t, record)

		stored, err := s.Get(ctx, "n1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "first", stored.BodyShort)
	})

	t.Run("equal importance is suppressed", func(t *testing.T) {
		record, err := s.Create(ctx, &Notification{
			NID:        "n1",
			BodyShort:  "second",
			PID:        1,
			Importance: 5,
		})
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("higher importance overwrites", func(t *testing.T) {
		record, err := s.Create(ctx, &Notification{
			NID:        "n1",
			BodyShort:  "urgent",
			PID:        1,
			Importance: 9,
		})
		require.NoError(t, err)
		require.NotNil(t, record)

		stored, err := s.Get(ctx, "n1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "urgent", stored.BodyShort)
		assert.Equal(t, 9, stored.Importance)
	})

	t.Run("higher importance under a new nid destroys the old record", func(t *testing.T) {
		record, err := s.Create(ctx, &Notification{
			NID:        "n2",
			BodyShort:  "replacement",
			PID:        1,
			Importance: 20,
		})
		require.NoError(t, err)
		require.NotNil(t, record)

		old, err := s.Get(ctx, "n1")
		require.NoError(t, err)
		assert.Nil(t, old)
	})

	t.Run("no subject id means no dedup", func(t *testing.T) {
		record, err := s.Create(ctx, &Notification{
			NID:        "plain",
			BodyShort:  "no subject",
			Importance: 0,
		})
		require.NoError(t, err)
		assert.NotNil(t, record)
	})
}

func TestStore_GetMultiple(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Create(ctx, &Notification{NID: "a", BodyShort: "a"})
	require.NoError(t, err)

	t.Run("nil and empty inputs yield empty results", func(t *testing.T) {
		records, err := s.GetMultiple(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, records)

		records, err = s.GetMultiple(ctx, []string{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unknown ids are silently omitted", func(t *testing.T) {
		records, err := s.GetMultiple(ctx, []string{"doesnotexistnid1", "doesnotexistnid2"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("known ids come back", func(t *testing.T) {
		records, err := s.GetMultiple(ctx, []string{"a", "missing"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a", records[0].NID)
	})
}

func TestStore_RecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Create(ctx, &Notification{
		NID:        "full",
		BodyShort:  "body",
		Path:       "/p",
		PID:        42,
		Type:       "post",
		Importance: 3,
		Extra:      map[string]string{"topicTitle": "Hello"},
	})
	require.NoError(t, err)

	stored, err := s.Get(ctx, "full")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "body", stored.BodyShort)
	assert.Equal(t, "/p", stored.Path)
	assert.Equal(t, int64(42), stored.PID)
	assert.Equal(t, "post", stored.Type)
	assert.Equal(t, 3, stored.Importance)
	assert.Equal(t, "Hello", stored.Extra["topicTitle"])
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	_, err := s.Create(ctx, &Notification{NID: "fresh", BodyShort: "fresh"})
	require.NoError(t, err)
	_, err = s.Create(ctx, &Notification{NID: "tobedeleted", BodyShort: "old", PID: 7})
	require.NoError(t, err)

	retention := 30 * 24 * time.Hour

	// Nothing is old enough yet
	removed, err := s.Prune(ctx, retention)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Backdate one entry past the retention window
	stale := time.Now().Add(-2 * retention).UnixMilli()
	require.NoError(t, db.SortedSetAdd(ctx, globalIndexKey, float64(stale), "tobedeleted"))

	removed, err = s.Prune(ctx, retention)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	record, err := s.Get(ctx, "tobedeleted")
	require.NoError(t, err)
	assert.Nil(t, record)

	// The subject pointer is cleaned up with the record
	pointer, err := db.Get(ctx, subjectKey(7))
	require.NoError(t, err)
	assert.Equal(t, "", pointer)

	// Fresh records survive
	record, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestStore_PruneKeepsEntryAgedExactlyRetention(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	_, err := s.Create(ctx, &Notification{NID: "boundary", BodyShort: "boundary"})
	require.NoError(t, err)

	// Pin the creation score, then sweep with a cutoff one millisecond
	// below it, the cutoff Prune derives for an entry aged exactly the
	// retention window. Only strictly older entries may go.
	created := float64(time.Now().UnixMilli())
	require.NoError(t, db.SortedSetAdd(ctx, globalIndexKey, created, "boundary"))

	removed, err := s.pruneBefore(ctx, created-1)
	require.NoError(t, err)
	assert.Zero(t, removed)

	record, err := s.Get(ctx, "boundary")
	require.NoError(t, err)
	assert.NotNil(t, record)

	// One millisecond older and it qualifies
	removed, err = s.pruneBefore(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
