package redisclient

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Slot is a durable value kept as a Redis string. It has no expiry.
type Slot struct {
	rdb *redis.Client
	key string
}

// Read returns the stored value
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %s: %w", s.key, err)
	}
	return val, true, nil
}

// Write replaces the stored value
func (s *Slot) Write(ctx context.Context, value []byte) error {
	if err := s.rdb.Set(ctx, s.key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", s.key, err)
	}
	return nil
}
