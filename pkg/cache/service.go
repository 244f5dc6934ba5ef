package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seatline/pkg/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// GetOrSet reads key into dest, calling fetcher on a miss. Concurrent
	// misses for the same key share one fetch.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error

	Ping(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

type service struct {
	client *redis.Client
	group  singleflight.Group
	log    *logger.Logger
}

func NewService(client *redis.Client) Service {
	return &service{client: client, log: logger.GetDefault()}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (s *service) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	err := s.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log.WarnContext(ctx, "cache read failed, falling back to source", "key", key, "error", err)
	}

	raw, err, _ := s.group.Do(key, func() (interface{}, error) {
		data, err := fetcher()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal fetched data error: %w", err)
		}
		if setErr := s.client.Set(ctx, key, encoded, ttl).Err(); setErr != nil {
			s.log.WarnContext(ctx, "cache write failed", "key", key, "error", setErr)
		}
		return encoded, nil
	})
	if err != nil {
		return fmt.Errorf("fetcher error: %w", err)
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (s *service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Noop returns a Service that never stores anything. It is used when Redis
// is disabled; GetOrSet always calls the fetcher.
func Noop() Service { return noop{} }

type noop struct{}

func (noop) Get(context.Context, string, interface{}) error { return ErrCacheMiss }

func (noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (noop) Delete(context.Context, ...string) error { return nil }

func (noop) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	data, err := fetcher()
	if err != nil {
		return fmt.Errorf("fetcher error: %w", err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}

func (noop) Ping(context.Context) error { return nil }
