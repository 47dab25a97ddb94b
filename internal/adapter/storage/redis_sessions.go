package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daho-labs/payflow/internal/port"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// RedisSessions resolves bearer tokens to buyer ids. Sessions are written
// by the auth service; this adapter only reads them, plus a Put used by
// tests and local tooling.
type RedisSessions struct {
	client *redis.Client
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

func (r *RedisSessions) BuyerID(ctx context.Context, token string) (string, error) {
	buyerID, err := r.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", port.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	return buyerID, nil
}

func (r *RedisSessions) Put(ctx context.Context, token, buyerID string) error {
	return r.client.Set(ctx, sessionKeyPrefix+token, buyerID, sessionTTL).Err()
}
