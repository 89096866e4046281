package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cngflow/config"

	"github.com/redis/go-redis/v9"
)

const (
	QueueUpdatesChannel = "cngflow:queue-updates"
	ProfilesChannel     = "cngflow:profiles"

	SnapshotCacheKey = "stations:snapshot"
)

// ErrCacheMiss is returned by Get when the key does not exist or the cache
// is disabled.
var ErrCacheMiss = errors.New("cache miss")

type CacheService struct {
	client *redis.Client
}

func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	// Retry covers sidecar / compose startup ordering.
	var lastErr error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		log.Printf("Redis ping attempt %d/%d failed: %v", i+1, attempts, lastErr)
		if i < attempts-1 {
			time.Sleep(2 * time.Second)
		}
	}

	_ = client.Close()
	return &CacheService{client: nil}, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

// DisabledCache returns a cache whose operations are no-ops.
func DisabledCache() *CacheService {
	return &CacheService{}
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Available() {
		return ErrCacheMiss
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, key string) error {
	if !s.Available() {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

// Subscribe returns nil when the cache is disabled.
func (s *CacheService) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channels...)
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
