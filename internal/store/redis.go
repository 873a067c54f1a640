package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "rentaldesk:update:"

// RedisStore persists JSON payloads in redis and fans out change
// notifications over pub/sub, so views in other processes stay consistent.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore returns a redis-backed store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Get decodes the stored payload into dest. Missing keys and corrupt
// payloads degrade to the caller's default.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("store read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("corrupt store payload, falling back to default",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set writes the value and publishes a change notification for the key.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return err
	}
	if err := s.client.Publish(ctx, channelPrefix+key, "1").Err(); err != nil {
		s.logger.Warn("store change notification failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Subscribe invokes fn whenever the key is written from any context sharing
// this redis instance. The subscription ends when ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context, key string, fn func()) {
	sub := s.client.Subscribe(ctx, channelPrefix+key)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()
}
