package redisstore

import (
	"context"
	"fmt"
	"time"

	"fx-margin-guard/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.SlotGuard = (*SlotGuard)(nil)

// SlotGuard reserves scheduler slots with SET NX; the key expires after TTL.
type SlotGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *SlotGuard {
	return &SlotGuard{Client: client, TTL: ttl}
}

func (g *SlotGuard) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.Client.SetNX(ctx, key, "1", g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}

func (g *SlotGuard) Ping(ctx context.Context) error { return g.Client.Ping(ctx).Err() }
