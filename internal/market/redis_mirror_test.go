package market

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisQuoteMirror_NilClientDegradesToPlainCache(t *testing.T) {
	m := NewRedisQuoteMirror(NewCache(), nil, time.Minute)
	q := agentcore.Quote{InputMint: agentcore.TokenID{1}, OutputMint: agentcore.TokenID{2}, OutAmount: 500}
	m.SetQuote(q)

	got, ok := m.Quote(agentcore.PairKey{Input: q.InputMint, Output: q.OutputMint})
	assert.True(t, ok)
	assert.Equal(t, uint64(500), got.OutAmount)

	assert.False(t, m.Hydrate(context.Background(), agentcore.PairKey{Input: q.InputMint, Output: q.OutputMint}))
}

func TestRedisQuoteMirror_HydratesFromMirroredWrite(t *testing.T) {
	client := newTestRedis(t)
	writer := NewRedisQuoteMirror(NewCache(), client, time.Minute)
	pair := agentcore.PairKey{Input: agentcore.TokenID{1}, Output: agentcore.TokenID{2}}
	q := agentcore.Quote{InputMint: pair.Input, OutputMint: pair.Output, OutAmount: 777, Timestamp: time.Now()}
	writer.SetQuote(q)

	require.Eventually(t, func() bool {
		reader := NewRedisQuoteMirror(NewCache(), client, time.Minute)
		return reader.Hydrate(context.Background(), pair)
	}, time.Second, 10*time.Millisecond, "mirrored write should become visible to a fresh reader")
}

func TestRedisQuoteMirror_HydrateMissReturnsFalse(t *testing.T) {
	client := newTestRedis(t)
	m := NewRedisQuoteMirror(NewCache(), client, time.Minute)
	ok := m.Hydrate(context.Background(), agentcore.PairKey{Input: agentcore.TokenID{9}, Output: agentcore.TokenID{10}})
	assert.False(t, ok)
}
