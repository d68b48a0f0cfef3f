package groups

import (
	"context"
	"fmt"
	"strconv"

	"notibell/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

var _ notification.GroupResolver = (*RedisResolver)(nil)

// RedisResolver resolves group membership from the Redis sets the
// platform's group-management service maintains. This subsystem only
// reads membership; joining and leaving groups happens elsewhere.
type RedisResolver struct {
	client *redis.Client
}

// NewRedisResolver creates a Redis-backed group membership resolver.
func NewRedisResolver(addr, password string, db int) *RedisResolver {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisResolver{client: client}
}

// ResolveMembers returns the current member ids of a group. An unknown
// group resolves to an empty set.
func (r *RedisResolver) ResolveMembers(ctx context.Context, group string) ([]notification.UserID, error) {
	members, err := r.client.SMembers(ctx, memberKey(group)).Result()
	if err != nil {
		return nil, fmt.Errorf("resolving members of group %s: %w", group, err)
	}

	uids := make([]notification.UserID, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			// Skip malformed entries rather than failing the fan-out.
			continue
		}
		uids = append(uids, notification.UserID(id))
	}
	return uids, nil
}

// IsMember reports whether uid belongs to the group.
func (r *RedisResolver) IsMember(ctx context.Context, uid notification.UserID, group string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, memberKey(group), uid.String()).Result()
	if err != nil {
		return false, fmt.Errorf("checking membership of group %s: %w", group, err)
	}
	return ok, nil
}

// Close closes the Redis connection.
func (r *RedisResolver) Close() error {
	return r.client.Close()
}

func memberKey(group string) string {
	return fmt.Sprintf("group:%s:members", group)
}
