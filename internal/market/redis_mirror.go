package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
)

const quoteKeyPrefix = "tradingagent:quote:"

// RedisQuoteMirror decorates a Cache with a best-effort Redis mirror: every
// write fans out asynchronously to Redis so a freshly started agent (or a
// second instance watching the same pairs) can hydrate from the last known
// quotes instead of starting cold. Redis is never on the read critical path:
// Quote/Price reads always hit the in-memory Cache directly.
type RedisQuoteMirror struct {
	*Cache
	redis *redis.Client
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisQuoteMirror wraps cache with an optional Redis mirror. A nil
// client disables mirroring entirely; callers can construct this
// unconditionally and it degrades to a plain Cache.
func NewRedisQuoteMirror(cache *Cache, client *redis.Client, ttl time.Duration) *RedisQuoteMirror {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisQuoteMirror{Cache: cache, redis: client, ttl: ttl}
}

func quoteKey(pair agentcore.PairKey) string {
	return fmt.Sprintf("%s%s:%s", quoteKeyPrefix, pair.Input, pair.Output)
}

// SetQuote stores the quote in memory and mirrors it to Redis in the
// background; a slow or unavailable Redis never blocks the fetcher tick.
func (m *RedisQuoteMirror) SetQuote(q agentcore.Quote) {
	m.Cache.SetQuote(q)

	if m.redis == nil {
		return
	}

	data, err := json.Marshal(q)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal quote for redis mirror")
		return
	}

	pair := agentcore.PairKey{Input: q.InputMint, Output: q.OutputMint}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.redis.Set(ctx, quoteKey(pair), data, m.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("pair", quoteKey(pair)).Msg("failed to mirror quote to redis")
			return
		}
		metrics.RecordRedisOperation("set_quote")
	}()
}

// Hydrate attempts to load a pair's last-known quote from Redis into the
// in-memory cache; cmd/agent does not call it. Returns false if the client is nil, Redis is unreachable, or
// there is no entry.
func (m *RedisQuoteMirror) Hydrate(ctx context.Context, pair agentcore.PairKey) bool {
	if m.redis == nil {
		return false
	}

	cached, err := m.redis.Get(ctx, quoteKey(pair)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("redis error during quote hydration")
		}
		m.misses.Add(1)
		m.refreshHitRate()
		return false
	}

	var q agentcore.Quote
	if err := json.Unmarshal([]byte(cached), &q); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal mirrored quote")
		m.misses.Add(1)
		m.refreshHitRate()
		return false
	}

	m.Cache.SetQuote(q)
	m.hits.Add(1)
	m.refreshHitRate()
	metrics.RecordRedisOperation("hydrate_quote")
	return true
}

func (m *RedisQuoteMirror) refreshHitRate() {
	hits, misses := m.hits.Load(), m.misses.Load()
	total := hits + misses
	if total == 0 {
		return
	}
	metrics.RedisCacheHitRate.Set(float64(hits) / float64(total))
}
