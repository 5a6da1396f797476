// Package agentcore defines the core data model shared by every pipeline
// stage: token identifiers, quotes, market conditions, positions, strategy
// configuration, plans, execution results, and learning feedback.
package agentcore

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// TokenID is an opaque 32-byte on-chain address.
type TokenID [32]byte

// String returns the base58 encoding of the token id, matching the
// Solana-style addresses the quote/price APIs speak.
func (t TokenID) String() string {
	return base58.Encode(t[:])
}

// ParseTokenID decodes a base58-encoded on-chain address into a TokenID.
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID
	decoded, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("parse token id %q: %w", s, err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("parse token id %q: expected %d bytes, got %d", s, len(id), len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// PairKey identifies a directed (input, output) swap pair; cache keys are
// always structural TokenID pairs, never raw strings.
type PairKey struct {
	Input  TokenID
	Output TokenID
}

// Trend classifies a pair's recent price direction.
type Trend string

const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

// Quote is a snapshot of a proposed swap along one directed pair.
type Quote struct {
	InputMint            TokenID
	OutputMint           TokenID
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	SlippageBps          uint16
	PlatformFeeBps       uint16
	PriceImpactPct       float64
	RoutePlan            []byte
	Timestamp            time.Time
}

// Price returns out/in, the implied price of this quote.
func (q Quote) Price() float64 {
	if q.InAmount == 0 {
		return 0
	}
	return float64(q.OutAmount) / float64(q.InAmount)
}

// IsFresh reports whether the quote is still usable relative to now, per the
// "now - timestamp < 3 * fetch_interval" freshness rule.
func (q Quote) IsFresh(now time.Time, fetchInterval time.Duration) bool {
	return now.Sub(q.Timestamp) < 3*fetchInterval
}

// MarketConditions is a derived, never-persisted snapshot of recent pair
// behavior.
type MarketConditions struct {
	Volatility     float64
	Volume24h      float64
	Trend          Trend
	LiquidityScore float64
}

// Position is a token held by a bucket.
type Position struct {
	Mint          TokenID
	Amount        uint64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	OpenedAt      time.Time
}

// PositionSnapshot is a copy-on-read view of the observer's positions map,
// handed to the planner on every strategy evaluation.
type PositionSnapshot struct {
	Positions map[TokenID]Position
}

// TotalValueUSD sums amount*current_price across all positions. Amounts are
// smallest-unit integers; callers needing decimal-adjusted USD values must
// scale upstream — this module treats price*amount as a comparable USD proxy
// consistently with how the strategies apply it.
func (s PositionSnapshot) TotalValueUSD() float64 {
	var total float64
	for _, p := range s.Positions {
		total += float64(p.Amount) * p.CurrentPrice
	}
	return total
}

// StrategyTag names a strategy variant.
type StrategyTag string

const (
	TagArbitrage      StrategyTag = "arbitrage"
	TagDCA            StrategyTag = "dca"
	TagGridTrading    StrategyTag = "grid_trading"
	TagMeanReversion  StrategyTag = "mean_reversion"
	TagTrendFollowing StrategyTag = "trend_following"
)

// StrategyParams carries the tunable inputs common to strategy evaluation,
// plus an open map of custom scalars for strategy-specific knobs.
type StrategyParams struct {
	MinSpreadBps          int
	MaxSlippageBps         int
	PositionSizeUSD       float64
	RebalanceThresholdPct float64
	LookbackPeriods       int
	Custom                map[string]float64
}

// RiskLimits caps position size, loss, and drawdown behavior.
type RiskLimits struct {
	MaxPositionSizeUSD float64
	DailyLossPct       float64
	DrawdownPct        float64
	StopLossPct        float64
	TakeProfitPct      float64
}

// ExecutionSettings carries per-plan execution tuning.
type ExecutionSettings struct {
	PriorityFeePercentile float64
	MaxPriorityFeeLamports uint64
	TimeoutMs             int
	RetryAttempts         int
	TipLamports           uint64
}

// StrategyConfig is the tuple of (tag, parameters, risk limits, execution
// settings) that configures one strategy instance.
type StrategyConfig struct {
	Tag        StrategyTag
	Params     StrategyParams
	Risk       RiskLimits
	Execution  ExecutionSettings
}
