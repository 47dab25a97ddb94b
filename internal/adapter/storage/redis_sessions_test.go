package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/daho-labs/payflow/internal/port"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestBuyerID_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	sessions := NewRedisSessions(client)
	token := uuid.NewString()

	if err := sessions.Put(ctx, token, "buyer-42"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	defer client.Del(ctx, sessionKeyPrefix+token)

	buyerID, err := sessions.BuyerID(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buyerID != "buyer-42" {
		t.Errorf("expected buyer-42, got %s", buyerID)
	}
}

func TestBuyerID_UnknownToken(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	sessions := NewRedisSessions(client)

	_, err := sessions.BuyerID(context.Background(), uuid.NewString())
	if !errors.Is(err, port.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
