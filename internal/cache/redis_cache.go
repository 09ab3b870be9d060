package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func inviteKey(attendeeID int64) string {
	return fmt.Sprintf("invite:%d", attendeeID)
}

func (c *RedisCache) StoreSent(ctx context.Context, attendeeID int64, remoteMessageID string, sentAt time.Time) error {
	b, err := json.Marshal(Receipt{
		RemoteMessageID: remoteMessageID,
		SentAt:          sentAt.UTC(),
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, inviteKey(attendeeID), b, c.ttl).Err()
}

// LastSent returns nil without error when no receipt is cached.
func (c *RedisCache) LastSent(ctx context.Context, attendeeID int64) (*Receipt, error) {
	raw, err := c.rdb.Get(ctx, inviteKey(attendeeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %d: %w", attendeeID, err)
	}
	return &r, nil
}
