// Package planner derives market conditions from a rolling window of
// quotes, evaluates the configured strategy set in priority order, and
// emits the plans each one produces.
package planner

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradingagent/internal/advisor"
	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
	"github.com/ajitpratap0/tradingagent/internal/strategy"
)

// StrategyEntry pairs one constructed Strategy with its base (pre-learning)
// configuration.
type StrategyEntry struct {
	Strategy     strategy.Strategy
	BaseConfig   agentcore.StrategyConfig
}

// Planner implements agentcore.PlannerStage.
type Planner struct {
	entries  map[agentcore.StrategyTag]StrategyEntry
	order    []agentcore.StrategyTag // priority-base descending, stable on ties
	window   []agentcore.Quote
	windowSize int

	positions *agentcore.PositionStore
	learning  *agentcore.LearningStore
	bounds    agentcore.LearningBounds

	evalInterval time.Duration
	advisorClient advisor.Client

	log zerolog.Logger
}

// New builds a Planner over a fixed strategy set. positions is shared with
// the observer (which writes to it); learning is also read by the API
// server, and the planner itself applies feedback to it as feedback
// arrives on its own channel arm.
func New(
	entries map[agentcore.StrategyTag]StrategyEntry,
	windowSize int,
	evalInterval time.Duration,
	positions *agentcore.PositionStore,
	learning *agentcore.LearningStore,
	bounds agentcore.LearningBounds,
	advisorClient advisor.Client,
	log zerolog.Logger,
) *Planner {
	if windowSize <= 0 {
		windowSize = 100
	}

	order := make([]agentcore.StrategyTag, 0, len(entries))
	for tag := range entries {
		order = append(order, tag)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return strategy.PriorityBase(order[i]) > strategy.PriorityBase(order[j])
	})

	return &Planner{
		entries:       entries,
		order:         order,
		windowSize:    windowSize,
		positions:     positions,
		learning:      learning,
		bounds:        bounds,
		evalInterval:  evalInterval,
		advisorClient: advisorClient,
		log:           log.With().Str("component", "planner").Logger(),
	}
}

// Run implements agentcore.PlannerStage: a single consumer task reading two
// sources — incoming quotes (appended to the rolling window, triggering an
// immediate time-sensitive evaluation) and a periodic tick (triggering a
// full priority-ordered evaluation pass) — plus learning feedback applied
// as it arrives.
func (p *Planner) Run(ctx context.Context, quotes <-chan agentcore.Quote, plans chan<- agentcore.Plan, feedback <-chan agentcore.LearningFeedback) {
	ticker := time.NewTicker(p.evalInterval)
	defer ticker.Stop()

	conditions := agentcore.MarketConditions{Trend: agentcore.TrendSideways, LiquidityScore: 0.5}

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("planner stopped")
			return

		case fb, ok := <-feedback:
			if !ok {
				feedback = nil
				continue
			}
			next := p.learning.ApplyFeedback(fb.Adjustments, p.bounds)
			p.log.Debug().Str("strategy", string(fb.StrategyTag)).Interface("learning", next).Msg("applied learning feedback")

		case q, ok := <-quotes:
			if !ok {
				quotes = nil
				continue
			}
			p.window = appendBounded(p.window, q, p.windowSize)
			conditions = deriveMarketConditions(p.window)

			if entry, ok := p.entries[agentcore.TagArbitrage]; ok {
				p.evaluateOne(ctx, entry, q, conditions, plans, nil)
			}

		case <-ticker.C:
			if len(p.window) == 0 {
				continue
			}
			p.tick(ctx, conditions, plans)
		}
	}
}

func (p *Planner) tick(ctx context.Context, conditions agentcore.MarketConditions, plans chan<- agentcore.Plan) {
	var guidance *advisor.Guidance
	if p.advisorClient != nil {
		req := advisor.Request{
			Question:     "Analyze current market conditions and suggest optimal trading strategies",
			QuoteSummary: summarizeQuotes(p.window),
		}
		g, err := p.advisorClient.Advise(ctx, req)
		if err != nil {
			metrics.RecordError("upstream", "planner")
			p.log.Warn().Err(err).Msg("advisor call failed, proceeding with standard evaluation")
		} else {
			guidance = &g
		}
	}

	order := p.order
	if guidance != nil {
		order = p.priorityOrderWithGuidance(*guidance)
	}

	lookback := 3
	if guidance != nil {
		lookback = 5
	}
	recent := lastN(p.window, lookback)

	for _, tag := range order {
		entry, ok := p.entries[tag]
		if !ok {
			continue
		}
		for i := len(recent) - 1; i >= 0; i-- {
			plan, err := p.evaluateOne(ctx, entry, recent[i], conditions, plans, guidance)
			if err != nil {
				break
			}
			if plan {
				break
			}
		}
	}
}

// evaluateOne evaluates one strategy against one quote, applying learning
// adjustments to its config first and advisor adjustments to the resulting
// plan (if any), and sends the plan if produced. It returns whether a plan
// was produced and any strategy error (a strategy error is logged and does
// not propagate — other strategies proceed per spec.md's failure
// semantics).
func (p *Planner) evaluateOne(ctx context.Context, entry StrategyEntry, quote agentcore.Quote, conditions agentcore.MarketConditions, plans chan<- agentcore.Plan, guidance *advisor.Guidance) (bool, error) {
	cfg := p.applyLearning(entry.BaseConfig)
	positions := p.positions.Load()

	plan, err := entry.Strategy.Evaluate(quote, conditions, positions, cfg)
	if err != nil {
		metrics.RecordError("strategy", string(entry.Strategy.Tag()))
		p.log.Warn().Err(err).Str("strategy", string(entry.Strategy.Tag())).Msg("strategy evaluation failed")
		return false, err
	}
	if plan == nil {
		return false, nil
	}

	if guidance != nil {
		plan.Confidence *= guidance.Confidence
		plan.Context.Risk.AdvisorReasoning = guidance.Reasoning
	}

	select {
	case plans <- *plan:
		return true, nil
	case <-ctx.Done():
		p.log.Warn().Str("strategy", string(entry.Strategy.Tag())).Msg("dropped plan: context cancelled before send")
		return true, nil
	}
}

// applyLearning derives a strategy config from the base config plus the
// current learning-parameter snapshot: priority fee percentile and max
// slippage are replaced outright, position size is scaled multiplicatively.
func (p *Planner) applyLearning(base agentcore.StrategyConfig) agentcore.StrategyConfig {
	learning := p.learning.Load()
	cfg := base
	cfg.Execution.PriorityFeePercentile = learning.PriorityFeePercentile
	cfg.Params.MaxSlippageBps = int(learning.MaxSlippageBps)
	cfg.Params.PositionSizeUSD = base.Params.PositionSizeUSD * learning.PositionSizeMultiplier
	return cfg
}

// priorityOrderWithGuidance re-sorts the configured strategy tags by
// base_score * confidence * (1 - risk_score), descending, stable on ties.
func (p *Planner) priorityOrderWithGuidance(guidance advisor.Guidance) []agentcore.StrategyTag {
	adjustment := guidance.Confidence * (1.0 - guidance.Risk.RiskScore)
	order := make([]agentcore.StrategyTag, len(p.order))
	copy(order, p.order)
	sort.SliceStable(order, func(i, j int) bool {
		return strategy.PriorityBase(order[i])*adjustment > strategy.PriorityBase(order[j])*adjustment
	})
	return order
}

func appendBounded(window []agentcore.Quote, q agentcore.Quote, max int) []agentcore.Quote {
	window = append(window, q)
	if len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}

func lastN(window []agentcore.Quote, n int) []agentcore.Quote {
	if len(window) <= n {
		return window
	}
	return window[len(window)-n:]
}

// deriveMarketConditions computes the four market-conditions fields from
// the window's implied per-tick prices.
func deriveMarketConditions(window []agentcore.Quote) agentcore.MarketConditions {
	if len(window) == 0 {
		return agentcore.MarketConditions{Trend: agentcore.TrendSideways}
	}

	prices := make([]float64, len(window))
	for i, q := range window {
		prices[i] = q.Price()
	}

	var mean float64
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))

	var variance float64
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices))
	volatility := math.Sqrt(variance)

	var volume24h float64
	var impactSum float64
	for _, q := range window {
		volume24h += float64(q.InAmount)
		impactSum += q.PriceImpactPct
	}
	liquidity := clamp01(1.0 - impactSum/float64(len(window)))

	trend := agentcore.TrendSideways
	if len(prices) >= 2 && prices[0] != 0 {
		changePct := (prices[len(prices)-1] - prices[0]) / prices[0]
		switch {
		case changePct > 0.02:
			trend = agentcore.TrendBullish
		case changePct < -0.02:
			trend = agentcore.TrendBearish
		}
	}

	return agentcore.MarketConditions{
		Volatility:     volatility,
		Volume24h:      volume24h,
		Trend:          trend,
		LiquidityScore: liquidity,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func summarizeQuotes(window []agentcore.Quote) string {
	if len(window) == 0 {
		return "no recent quotes"
	}
	last := window[len(window)-1]
	return last.InputMint.String() + "->" + last.OutputMint.String()
}
