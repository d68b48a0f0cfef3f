package store

import "context"

// Entry is a sorted-set member with its score. Scores are unix
// millisecond timestamps throughout the system.
type Entry struct {
	Member string
	Score  float64
}

// Store is the persistence contract the notification domain is built on:
// scalar keys, flat field-mapping records, and score-ordered sets.
// Implementations live in this package (Redis for production, an
// in-memory store for development and tests).
type Store interface {
	// Get retrieves a scalar value. Returns "" and no error when the key
	// does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a scalar value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetObject retrieves a field-mapping record. Returns nil and no
	// error when the key does not exist.
	GetObject(ctx context.Context, key string) (map[string]string, error)

	// GetObjects retrieves multiple field-mapping records. The result is
	// positionally aligned with keys; missing records are nil entries.
	GetObjects(ctx context.Context, keys []string) ([]map[string]string, error)

	// SetObject stores a field-mapping record, replacing any existing fields.
	SetObject(ctx context.Context, key string, fields map[string]string) error

	// SortedSetAdd inserts or updates a single member.
	SortedSetAdd(ctx context.Context, key string, score float64, member string) error

	// SortedSetAddMulti inserts or updates several members in one operation.
	SortedSetAddMulti(ctx context.Context, key string, entries []Entry) error

	// SortedSetRemove removes a member from each of the given set keys.
	SortedSetRemove(ctx context.Context, keys []string, member string) error

	// SortedSetRemoveMulti removes several members from one set.
	SortedSetRemoveMulti(ctx context.Context, key string, members []string) error

	// SortedSetIsMember reports membership of a single member.
	SortedSetIsMember(ctx context.Context, key, member string) (bool, error)

	// SortedSetIsMembers reports membership for each member, positionally
	// aligned with the input.
	SortedSetIsMembers(ctx context.Context, key string, members []string) ([]bool, error)

	// SortedSetCard returns the number of members in a set.
	SortedSetCard(ctx context.Context, key string) (int64, error)

	// SortedSetRangeByScore returns up to count members with min <= score <= max
	// in ascending score order, skipping offset members. count < 0 means all.
	SortedSetRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error)

	// SortedSetRevRange returns members by descending score, from rank
	// start to stop inclusive (0 is the highest-scored member, -1 the lowest).
	SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SortedSetMove removes member from the set at fromKey and inserts it
	// into the set at toKey with the given score, as one atomic step from
	// the caller's perspective.
	SortedSetMove(ctx context.Context, fromKey, toKey, member string, score float64) error

	// SortedSetMoveMulti moves several members from the set at fromKey to
	// the set at toKey in one atomic step. No member is ever observable in
	// both sets, and a failure moves none of them.
	SortedSetMoveMulti(ctx context.Context, fromKey, toKey string, entries []Entry) error
}
