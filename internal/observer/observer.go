// Package observer consumes execution results, turns them into learning
// feedback for the planner, and maintains the position/performance state
// the rest of the agent reads back.
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
)

// TokenMintsSource resolves the full set of token mints worth monitoring,
// independent of which ones currently have an open position. Satisfied by
// the persistence layer; a nil source simply disables the periodic refresh.
type TokenMintsSource interface {
	FetchTokenMints(ctx context.Context) ([]agentcore.TokenID, error)
}

// PriceSource resolves the latest observed USD price for a token. Satisfied
// by market.Cache.
type PriceSource interface {
	Price(token agentcore.TokenID) (float64, bool)
}

// Stats is a point-in-time snapshot of the observer's running performance
// metrics, exposed to the API layer.
type Stats struct {
	TotalExecutions      int64
	SuccessfulExecutions int64
	WinRate              float64
	MeanExecutionTimeMs  float64
	MeanSlippageBps      float64
	ActivePositions      int
	HistorySize          int
	LastUpdated          time.Time
}

type statsState struct {
	totalExecutions      int64
	successfulExecutions int64
	meanExecutionTimeMs  float64
	meanSlippageBps      float64
	slippageCount        int64
	lastUpdated          time.Time
}

// Observer implements agentcore.ObserverStage.
type Observer struct {
	positions       *agentcore.PositionStore
	historyCap      int
	historyDrain    int
	monitorInterval time.Duration
	positionMaxAge  time.Duration

	prices     PriceSource
	tokenMints TokenMintsSource

	mu      sync.Mutex
	history []agentcore.ExecutionResult
	stats   statsState

	log zerolog.Logger
}

// New builds an Observer. prices and tokenMints may both be nil: price
// refresh and the monitored-token fetch are then simply skipped each tick.
func New(
	positions *agentcore.PositionStore,
	historyCap, historyDrain int,
	monitorInterval, positionMaxAge time.Duration,
	prices PriceSource,
	tokenMints TokenMintsSource,
	log zerolog.Logger,
) *Observer {
	if historyCap <= 0 {
		historyCap = 10000
	}
	if historyDrain <= 0 {
		historyDrain = 1000
	}
	return &Observer{
		positions:       positions,
		historyCap:      historyCap,
		historyDrain:    historyDrain,
		monitorInterval: monitorInterval,
		positionMaxAge:  positionMaxAge,
		prices:          prices,
		tokenMints:      tokenMints,
		log:             log.With().Str("component", "observer").Logger(),
	}
}

// Stats returns a copy of the current running metrics.
func (o *Observer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	var winRate float64
	if o.stats.totalExecutions > 0 {
		winRate = float64(o.stats.successfulExecutions) / float64(o.stats.totalExecutions)
	}
	return Stats{
		TotalExecutions:      o.stats.totalExecutions,
		SuccessfulExecutions: o.stats.successfulExecutions,
		WinRate:              winRate,
		MeanExecutionTimeMs:  o.stats.meanExecutionTimeMs,
		MeanSlippageBps:      o.stats.meanSlippageBps,
		ActivePositions:      len(o.positions.Load().Positions),
		HistorySize:          len(o.history),
		LastUpdated:          o.stats.lastUpdated,
	}
}

// Run implements agentcore.ObserverStage: one arm turns every ExecutionResult
// into LearningFeedback as it arrives, the other refreshes position prices
// and monitored tokens on a fixed interval.
func (o *Observer) Run(ctx context.Context, results <-chan agentcore.ExecutionResult, feedback chan<- agentcore.LearningFeedback) {
	ticker := time.NewTicker(o.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("observer stopped")
			return

		case result, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			fb := o.processResult(result)
			select {
			case feedback <- fb:
			case <-ctx.Done():
				o.log.Warn().Str("plan_id", result.PlanID.String()).Msg("dropped feedback: context cancelled before send")
				return
			}

		case <-ticker.C:
			o.performPeriodicMonitoring(ctx)
		}
	}
}

// processResult folds one ExecutionResult into the running history and
// performance metrics, updates position tracking, and builds the
// LearningFeedback the planner will apply.
func (o *Observer) processResult(result agentcore.ExecutionResult) agentcore.LearningFeedback {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.appendHistoryLocked(result)

	var oldWinRate float64
	if o.stats.totalExecutions > 0 {
		oldWinRate = float64(o.stats.successfulExecutions) / float64(o.stats.totalExecutions)
	}

	o.stats.totalExecutions++
	if result.Success {
		o.stats.successfulExecutions++
	}
	n := float64(o.stats.totalExecutions)
	o.stats.meanExecutionTimeMs += (float64(result.ExecutionTimeMs) - o.stats.meanExecutionTimeMs) / n
	if result.ActualSlippageBps != nil {
		o.stats.slippageCount++
		sn := float64(o.stats.slippageCount)
		o.stats.meanSlippageBps += (float64(*result.ActualSlippageBps) - o.stats.meanSlippageBps) / sn
	}
	o.stats.lastUpdated = result.Timestamp

	newWinRate := float64(o.stats.successfulExecutions) / float64(o.stats.totalExecutions)

	bucket := agentcore.QualityBucketFor(result.ExecutionTimeMs, result.ActualSlippageBps)
	adjustments := agentcore.AdjustmentsFor(bucket)
	metrics.RecordQualityBucket(string(bucket))
	for _, adj := range adjustments {
		metrics.RecordLearningAdjustment(adj.Name)
	}

	pnlImpact := -10.0
	riskDelta := 0.05
	if result.Success {
		pnlImpact = 100.0
		riskDelta = -0.01
	}
	metrics.RecordTrade(pnlImpact)

	o.updatePosition(result)

	return agentcore.LearningFeedback{
		StrategyTag: result.StrategyTag,
		Result:      result,
		Impact: agentcore.PerformanceImpact{
			PnLDelta:     pnlImpact,
			WinRateDelta: newWinRate - oldWinRate,
			RiskDelta:    riskDelta,
			Quality:      bucket,
		},
		Adjustments: adjustments,
	}
}

// appendHistoryLocked bounds the in-memory history at historyCap, dropping
// the oldest historyDrain entries once it overflows rather than trimming one
// at a time.
func (o *Observer) appendHistoryLocked(result agentcore.ExecutionResult) {
	o.history = append(o.history, result)
	if len(o.history) <= o.historyCap {
		return
	}
	drain := o.historyDrain
	if drain > len(o.history) {
		drain = len(o.history)
	}
	trimmed := make([]agentcore.ExecutionResult, len(o.history)-drain)
	copy(trimmed, o.history[drain:])
	o.history = trimmed
}

// updatePosition folds a successful execution's traded amount into the
// shared position snapshot, opening a new position or averaging into an
// existing one. Failed executions and zero-amount fills never touch
// position state.
func (o *Observer) updatePosition(result agentcore.ExecutionResult) {
	if !result.Success || result.ExecutedOutputAmount == 0 {
		return
	}

	snapshot := o.positions.Load()
	positions := make(map[agentcore.TokenID]agentcore.Position, len(snapshot.Positions)+1)
	for mint, pos := range snapshot.Positions {
		positions[mint] = pos
	}

	price := 0.0
	if o.prices != nil {
		if p, ok := o.prices.Price(result.OutputMint); ok {
			price = p
		}
	}

	existing, held := positions[result.OutputMint]
	if !held {
		positions[result.OutputMint] = agentcore.Position{
			Mint:          result.OutputMint,
			Amount:        result.ExecutedOutputAmount,
			EntryPrice:    price,
			CurrentPrice:  price,
			UnrealizedPnL: 0,
			OpenedAt:      result.Timestamp,
		}
	} else {
		totalAmount := existing.Amount + result.ExecutedOutputAmount
		weightedEntry := existing.EntryPrice
		if totalAmount > 0 {
			weightedEntry = (existing.EntryPrice*float64(existing.Amount) + price*float64(result.ExecutedOutputAmount)) / float64(totalAmount)
		}
		existing.Amount = totalAmount
		existing.EntryPrice = weightedEntry
		existing.CurrentPrice = price
		existing.UnrealizedPnL = float64(totalAmount) * (price - weightedEntry)
		positions[result.OutputMint] = existing
	}

	o.positions.Store(agentcore.PositionSnapshot{Positions: positions})
}

// performPeriodicMonitoring refreshes current prices on every open position,
// evicts positions that have aged past positionMaxAge, and optionally polls
// the configured set of monitored token mints.
func (o *Observer) performPeriodicMonitoring(ctx context.Context) {
	if o.tokenMints != nil {
		mints, err := o.tokenMints.FetchTokenMints(ctx)
		if err != nil {
			metrics.RecordError("upstream", "observer")
			o.log.Warn().Err(err).Msg("failed to fetch monitored token mints")
		} else {
			o.log.Debug().Int("count", len(mints)).Msg("refreshed monitored token list")
		}
	}

	o.refreshPositionPrices()
	o.evictStalePositions(time.Now())

	snapshot := o.positions.Load()
	stats := o.Stats()
	o.log.Info().
		Int("active_positions", len(snapshot.Positions)).
		Int64("total_executions", stats.TotalExecutions).
		Float64("win_rate", stats.WinRate).
		Msg("periodic monitoring report")
}

func (o *Observer) refreshPositionPrices() {
	if o.prices == nil {
		return
	}
	snapshot := o.positions.Load()
	if len(snapshot.Positions) == 0 {
		return
	}
	updated := make(map[agentcore.TokenID]agentcore.Position, len(snapshot.Positions))
	for mint, pos := range snapshot.Positions {
		if price, ok := o.prices.Price(mint); ok {
			pos.CurrentPrice = price
			pos.UnrealizedPnL = float64(pos.Amount) * (price - pos.EntryPrice)
		}
		updated[mint] = pos
	}
	o.positions.Store(agentcore.PositionSnapshot{Positions: updated})
}

func (o *Observer) evictStalePositions(now time.Time) {
	if o.positionMaxAge <= 0 {
		return
	}
	snapshot := o.positions.Load()
	kept := make(map[agentcore.TokenID]agentcore.Position, len(snapshot.Positions))
	evicted := false
	for mint, pos := range snapshot.Positions {
		if now.Sub(pos.OpenedAt) > o.positionMaxAge {
			evicted = true
			continue
		}
		kept[mint] = pos
	}
	if evicted {
		o.positions.Store(agentcore.PositionSnapshot{Positions: kept})
	}
}
