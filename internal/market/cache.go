// Package market holds the fetcher's in-memory quote/price cache and its
// optional Redis mirror.
package market

import (
	"sync"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// Cache is an in-memory, no-eviction store of the latest Quote per directed
// pair and the latest USD price per token. Freshness is judged at read time
// via Quote.IsFresh, not by proactively expiring entries.
type Cache struct {
	mu     sync.RWMutex
	quotes map[agentcore.PairKey]agentcore.Quote
	prices map[agentcore.TokenID]float64
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		quotes: make(map[agentcore.PairKey]agentcore.Quote),
		prices: make(map[agentcore.TokenID]float64),
	}
}

// SetQuote stores the latest Quote for a pair, overwriting any prior entry.
func (c *Cache) SetQuote(q agentcore.Quote) {
	key := agentcore.PairKey{Input: q.InputMint, Output: q.OutputMint}
	c.mu.Lock()
	c.quotes[key] = q
	c.mu.Unlock()
}

// Quote returns the latest Quote for a pair, if any.
func (c *Cache) Quote(pair agentcore.PairKey) (agentcore.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[pair]
	return q, ok
}

// SetPrice stores the latest observed USD price for a token.
func (c *Cache) SetPrice(token agentcore.TokenID, price float64) {
	c.mu.Lock()
	c.prices[token] = price
	c.mu.Unlock()
}

// Price returns the latest observed USD price for a token, if any.
func (c *Cache) Price(token agentcore.TokenID) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[token]
	return p, ok
}

// Snapshot returns a copy of every fresh Quote as of now, per fetchInterval's
// freshness window.
func (c *Cache) Snapshot(now time.Time, fetchInterval time.Duration) []agentcore.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fresh := make([]agentcore.Quote, 0, len(c.quotes))
	for _, q := range c.quotes {
		if q.IsFresh(now, fetchInterval) {
			fresh = append(fresh, q)
		}
	}
	return fresh
}

// Len reports the number of distinct pairs currently cached, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
