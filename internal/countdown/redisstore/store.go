package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps countdown deadlines in Redis, one key per order, value = the
// deadline as unix milliseconds. Entries carry a TTL comfortably past the
// deadline so abandoned keys eventually clean themselves up.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func key(orderID int64) string {
	return fmt.Sprintf("countdown:%d", orderID)
}

func (s *Store) Get(ctx context.Context, orderID int64) (time.Time, bool, error) {
	val, err := s.rdb.Get(ctx, key(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse deadline for order %d: %w", orderID, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *Store) Set(ctx context.Context, orderID int64, deadline time.Time) error {
	ttl := time.Until(deadline) + time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return s.rdb.Set(ctx, key(orderID), strconv.FormatInt(deadline.UnixMilli(), 10), ttl).Err()
}

func (s *Store) Delete(ctx context.Context, orderID int64) error {
	return s.rdb.Del(ctx, key(orderID)).Err()
}
