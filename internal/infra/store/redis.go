package store

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on top of Redis: records as hashes,
// indexes as sorted sets scored by unix millisecond timestamps.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting key %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking key %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) GetObject(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (s *RedisStore) GetObjects(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("getting objects: %w", err)
	}

	objects := make([]map[string]string, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) > 0 {
			objects[i] = fields
		}
	}
	return objects, nil
}

func (s *RedisStore) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting object %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("adding to sorted set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SortedSetAddMulti(ctx context.Context, key string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: e.Score, Member: e.Member}
	}
	if err := s.client.ZAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("adding to sorted set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SortedSetRemove(ctx context.Context, keys []string, member string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.ZRem(ctx, key, member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing from sorted sets: %w", err)
	}
	return nil
}

func (s *RedisStore) SortedSetRemoveMulti(ctx context.Context, key string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.ZRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("removing from sorted set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SortedSetIsMember(ctx context.Context, key, member string) (bool, error) {
	_, err := s.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking sorted set %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) SortedSetIsMembers(ctx context.Context, key string, members []string) ([]bool, error) {
	if len(members) == 0 {
		return nil, nil
	}
	scores, err := s.client.ZMScore(ctx, key, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("checking sorted set %s: %w", key, err)
	}
	results := make([]bool, len(members))
	for i, score := range scores {
		if score != 0 {
			results[i] = true
			continue
		}
		// ZMSCORE reports absent members as 0, which a genuine zero
		// score would shadow. Scores here are unix millisecond
		// timestamps so zero should not occur; confirm with ZSCORE
		// rather than assume.
		ok, err := s.SortedSetIsMember(ctx, key, members[i])
		if err != nil {
			return nil, err
		}
		results[i] = ok
	}
	return results, nil
}

func (s *RedisStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("counting sorted set %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) SortedSetRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    formatScore(min),
		Max:    formatScore(max),
		Offset: offset,
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ranging sorted set %s: %w", key, err)
	}
	return members, nil
}

func (s *RedisStore) SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ranging sorted set %s: %w", key, err)
	}
	return members, nil
}

func (s *RedisStore) SortedSetMove(ctx context.Context, fromKey, toKey, member string, score float64) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, fromKey, member)
	pipe.ZAdd(ctx, toKey, redis.Z{Score: score, Member: member})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("moving %s from %s to %s: %w", member, fromKey, toKey, err)
	}
	return nil
}

func (s *RedisStore) SortedSetMoveMulti(ctx context.Context, fromKey, toKey string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]any, len(entries))
	added := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = e.Member
		added[i] = redis.Z{Score: e.Score, Member: e.Member}
	}
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, fromKey, members...)
	pipe.ZAdd(ctx, toKey, added...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("moving %d members from %s to %s: %w", len(entries), fromKey, toKey, err)
	}
	return nil
}

// formatScore renders a score bound for ZRANGEBYSCORE, mapping the
// infinities to Redis range syntax.
func formatScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
