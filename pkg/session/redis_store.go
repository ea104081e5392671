package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/redis"
)

// RedisStore persists session values in Redis with a sliding TTL.
type RedisStore struct {
	client  *redis.Client
	actorID string
	ttl     time.Duration
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.GetRefresh(ctx, s.client.POSSessionKey(s.actorID, key), s.ttl)
	if redis.IsNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode session key %q: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session key %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.client.POSSessionKey(s.actorID, key), string(raw), s.ttl); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.client.POSSessionKey(s.actorID, key))
	}
	if err := s.client.Del(ctx, full...); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// RedisFactory binds RedisStores to actors over a shared client.
type RedisFactory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFactory(client *redis.Client, ttl time.Duration) *RedisFactory {
	return &RedisFactory{client: client, ttl: ttl}
}

func (f *RedisFactory) ForActor(actorID string) Store {
	return &RedisStore{client: f.client, actorID: actorID, ttl: f.ttl}
}
