package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps the engine snapshot as a single Redis hash:
//
//	HSET {namespace}:snapshot phase question timerRemaining 12 ...
//
// Each save replaces the hash wholesale so keys dropped from the record
// (e.g. a cleared selectedIndex) do not linger.
type SnapshotStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewSnapshotStore builds a store; ttl <= 0 keeps the snapshot until overwritten.
func NewSnapshotStore(client *redis.Client, namespace string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *SnapshotStore) LoadRecord(ctx context.Context) (map[string]string, error) {
	rec, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return rec, nil
}

func (s *SnapshotStore) SaveRecord(ctx context.Context, record map[string]string) error {
	values := make(map[string]interface{}, len(record))
	for k, v := range record {
		values[k] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key())
		if len(values) > 0 {
			pipe.HSet(ctx, s.key(), values)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key(), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) key() string {
	return s.namespace + ":snapshot"
}
