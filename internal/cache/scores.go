package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/soundmate/soundmate/internal/scoring"
)

// ScoreCache memoizes compatibility breakdowns per unordered
// profile-version pair. The profile versions are baked into the key, so
// a resync of either profile makes all old entries unreachable; the TTL
// (plus Redis LRU eviction under memory pressure) bounds what they can
// accumulate to. A stale entry is therefore never served, only forgotten.
//
// Cache trouble degrades to a direct compute, never to a caller error:
// the scorer is pure and cheap, Redis is an optimization.
type ScoreCache struct {
	redis *RedisCache
	ttl   time.Duration
	group singleflight.Group
}

func NewScoreCache(redis *RedisCache, ttl time.Duration) *ScoreCache {
	return &ScoreCache{redis: redis, ttl: ttl}
}

// Key returns the cache key for an unordered profile-version pair.
// Each version travels with its own user id, so the key is identical
// whichever way the arguments arrive.
func (s *ScoreCache) Key(a, b scoring.Profile) string {
	lo, hi := a, b
	if lo.UserID > hi.UserID {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("score:v1:%d:%d:%d:%d", lo.UserID, lo.Version, hi.UserID, hi.Version)
}

// GetOrCompute returns the memoized breakdown for the pair, computing
// and storing it on a miss. Concurrent misses for the same key collapse
// into a single compute; unrelated keys never wait on each other.
func (s *ScoreCache) GetOrCompute(ctx context.Context, a, b scoring.Profile) scoring.Breakdown {
	key := s.Key(a, b)

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		if cached, err := s.redis.Get(ctx, key); err == nil && cached != "" {
			var bd scoring.Breakdown
			if err := json.Unmarshal([]byte(cached), &bd); err == nil {
				return bd, nil
			}
			// corrupt entry: drop it and recompute
			_ = s.redis.Del(ctx, key)
		}

		bd := scoring.Score(a, b)
		if raw, err := json.Marshal(bd); err == nil {
			_ = s.redis.Set(ctx, key, string(raw), s.ttl)
		}
		return bd, nil
	})

	return v.(scoring.Breakdown)
}
