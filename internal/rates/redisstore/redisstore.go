// Package redisstore keeps the last-known-good rate snapshot in Redis so that
// several processes can share it.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"walletflow/internal/log"
	"walletflow/internal/rates"
)

const DefaultKey = "walletflow:rates:snapshot"

// NewClient configures a Redis client and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Store implements ports.SnapshotStore on a single Redis key.
type Store struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *log.Logger
}

// New returns a store using key (DefaultKey when empty). A zero ttl keeps the
// snapshot forever.
func New(client *redis.Client, key string, ttl time.Duration, logger *log.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentRedis),
	}
}

func (s *Store) SaveSnapshot(ctx context.Context, snap rates.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	s.logger.DebugContext(ctx, "Rates snapshot stored",
		log.FieldOperation, log.OpSave,
		log.FieldCount, len(snap.Rates))
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context) (rates.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return rates.Snapshot{}, rates.ErrNoSnapshot
	}
	if err != nil {
		return rates.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap rates.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return rates.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
