package signon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "sgn:otp"

// RedisCodeStore implements [CodeStore] on a Redis client. Keys carry a fixed
// prefix so the store can share a database with other tenants of the client;
// expiry is delegated entirely to Redis TTLs.
type RedisCodeStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisCodeStore wraps client as a CodeStore.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{
		redis:  client,
		prefix: codeKeyPrefix,
	}
}

func (s *RedisCodeStore) key(id string) string {
	return s.prefix + ":" + id
}

// Set stores value under key with the given TTL, unconditionally overwriting
// any prior value and its remaining TTL.
func (s *RedisCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: otp set: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the live value for key, or ErrCodeNotFound once the TTL has
// elapsed or the key was never written.
func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCodeNotFound
		}
		return "", fmt.Errorf("%w: otp get: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: otp delete: %v", ErrUnavailable, err)
	}
	return nil
}
