package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "dedup:candidates:"

// KeyCache keeps per-category candidate lists in Redis so repeated duplicate
// searches do not rescan the catalog. A cache failure falls back to the
// source; stale entries are bounded by the TTL and invalidated on writes.
type KeyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKeyCache constructs a KeyCache.
func NewKeyCache(client *redis.Client, ttl time.Duration) *KeyCache {
	return &KeyCache{client: client, ttl: ttl}
}

// Candidates returns the cached candidate list for category, loading and
// storing it on a miss.
func (c *KeyCache) Candidates(ctx context.Context, category string, source CandidateSource) ([]Candidate, error) {
	key := cacheKeyPrefix + category
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []Candidate
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return source.MatchCandidates(ctx, category)
	}

	candidates, err := source.MatchCandidates(ctx, category)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(candidates); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return candidates, nil
}

// Invalidate drops every cached candidate list. Called after any product
// create, rename, activation change or reindex.
func (c *KeyCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
