package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/market"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
)

// QuoteCache is the subset of market.Cache (or market.RedisQuoteMirror) the
// fetcher needs to populate.
type QuoteCache interface {
	SetQuote(q agentcore.Quote)
	SetPrice(token agentcore.TokenID, price float64)
}

var _ QuoteCache = (*market.Cache)(nil)
var _ QuoteCache = (*market.RedisQuoteMirror)(nil)

// Fetcher implements agentcore.FetcherStage: on every tick it fans out one
// quote request per configured pair concurrently, writes each result to the
// cache, and publishes it on the quote channel; independently it fetches
// prices once per tick for the union of mints across all pairs.
type Fetcher struct {
	quoteClient QuoteClient
	priceClient PriceClient
	cache       QuoteCache
	pairs       []agentcore.PairKey
	interval    time.Duration
	log         zerolog.Logger
}

// New builds a Fetcher over a fixed pair list.
func New(quoteClient QuoteClient, priceClient PriceClient, cache QuoteCache, pairs []agentcore.PairKey, interval time.Duration, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		quoteClient: quoteClient,
		priceClient: priceClient,
		cache:       cache,
		pairs:       pairs,
		interval:    interval,
		log:         log.With().Str("component", "fetcher").Logger(),
	}
}

// Run implements agentcore.FetcherStage. It ticks forever until ctx is
// cancelled; each tick's per-pair fetch failures are independent of one
// another (one failing pair never prevents the others from publishing).
func (f *Fetcher) Run(ctx context.Context, quotes chan<- agentcore.Quote) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.log.Info().Msg("fetcher stopped")
			return
		case <-ticker.C:
			f.tick(ctx, quotes)
		}
	}
}

func (f *Fetcher) tick(ctx context.Context, quotes chan<- agentcore.Quote) {
	start := time.Now()

	var g errgroup.Group
	for _, pair := range f.pairs {
		pair := pair
		g.Go(func() error {
			f.fetchPair(ctx, pair, quotes)
			return nil
		})
	}
	_ = g.Wait()

	if err := f.updatePrices(ctx); err != nil {
		f.log.Warn().Err(err).Msg("failed to update token prices")
	}

	f.log.Debug().Dur("tick_duration", time.Since(start)).Int("pairs", len(f.pairs)).Msg("fetch tick complete")
}

func (f *Fetcher) fetchPair(ctx context.Context, pair agentcore.PairKey, quotes chan<- agentcore.Quote) {
	quote, err := f.quoteClient.GetQuote(ctx, pair.Input, pair.Output)
	if err != nil {
		metrics.RecordError("upstream", "fetcher")
		f.log.Warn().Err(err).Str("input", pair.Input.String()).Str("output", pair.Output.String()).Msg("quote fetch failed")
		return
	}
	quote.Timestamp = time.Now()

	f.cache.SetQuote(quote)

	select {
	case quotes <- quote:
	case <-ctx.Done():
		f.log.Warn().Str("input", pair.Input.String()).Str("output", pair.Output.String()).Msg("dropped quote: context cancelled before send")
	}
}

func (f *Fetcher) updatePrices(ctx context.Context) error {
	mints := f.uniqueMints()
	if len(mints) == 0 {
		return nil
	}

	prices, err := f.priceClient.GetPrices(ctx, mints)
	if err != nil {
		metrics.RecordError("upstream", "fetcher")
		return err
	}
	for mint, price := range prices {
		f.cache.SetPrice(mint, price)
	}
	return nil
}

func (f *Fetcher) uniqueMints() []agentcore.TokenID {
	seen := make(map[agentcore.TokenID]struct{})
	mints := make([]agentcore.TokenID, 0, len(f.pairs)*2)
	for _, pair := range f.pairs {
		for _, m := range [2]agentcore.TokenID{pair.Input, pair.Output} {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			mints = append(mints, m)
		}
	}
	return mints
}
