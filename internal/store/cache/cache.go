package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultFactsTTL is the default TTL for cached product facts (1 hour)
	DefaultFactsTTL = time.Hour
)

// Store handles Redis operations for scraped product facts.
// It is a best-effort layer: callers treat every failure as a cache miss.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed facts cache
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SetFacts stores serialized product facts for a URL with the given TTL
func (s *Store) SetFacts(ctx context.Context, url string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultFactsTTL
	}
	if err := s.client.Set(ctx, FactsKey(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache facts: %w", err)
	}
	return nil
}

// GetFacts retrieves cached facts for a URL. A cache miss returns (nil, nil).
func (s *Store) GetFacts(ctx context.Context, url string) ([]byte, error) {
	data, err := s.client.Get(ctx, FactsKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached facts: %w", err)
	}
	return data, nil
}

// InvalidateFacts removes cached facts for a URL
func (s *Store) InvalidateFacts(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, FactsKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached facts: %w", err)
	}
	return nil
}

// Flush removes all cached facts
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixFacts+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete facts key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush facts cache: %w", err)
	}
	return nil
}

// Ping reports whether the cache backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
