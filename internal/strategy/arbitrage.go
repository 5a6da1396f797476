package strategy

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

const arbitrageTTL = 30 * time.Second

// Arbitrage looks for a spread between a quote's implied price and parity
// wide enough to clear slippage, platform fees, and price impact.
type Arbitrage struct{}

func (Arbitrage) Tag() agentcore.StrategyTag { return agentcore.TagArbitrage }

func (Arbitrage) Validate(params agentcore.StrategyParams) error {
	if params.MinSpreadBps < 10 {
		return agentcore.NewConfigError("Arbitrage.Validate", fmt.Errorf("min_spread_bps %d below floor of 10", params.MinSpreadBps))
	}
	if params.MaxSlippageBps > 500 {
		return agentcore.NewConfigError("Arbitrage.Validate", fmt.Errorf("max_slippage_bps %d exceeds ceiling of 500", params.MaxSlippageBps))
	}
	return nil
}

func effectiveSpreadBps(q agentcore.Quote) int {
	rawSpread := int((q.Price() - 1.0) * 10000)
	priceImpactBps := int(q.PriceImpactPct * 10000)
	return rawSpread - (int(q.SlippageBps) + int(q.PlatformFeeBps) + priceImpactBps)
}

func arbitrageConfidence(spreadBps, minSpreadBps int) float64 {
	spreadRatio := float64(spreadBps) / float64(minSpreadBps)
	confidence := 0.5 + (spreadRatio-1.0)*0.2
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}

func priorityFeeWithJitter(settings agentcore.ExecutionSettings) uint64 {
	base := settings.MaxPriorityFeeLamports
	if base == 0 {
		return 0
	}
	jitter := uint64(float64(base) * 0.1)
	if jitter == 0 {
		return base
	}
	return base + uint64(rand.Int63n(int64(jitter)))
}

func (Arbitrage) Evaluate(quote agentcore.Quote, conditions agentcore.MarketConditions, positions agentcore.PositionSnapshot, cfg agentcore.StrategyConfig) (*agentcore.Plan, error) {
	if cfg.Params.MinSpreadBps <= 0 {
		return nil, agentcore.NewStrategyError("Arbitrage.Evaluate", fmt.Errorf("min_spread_bps must be positive"))
	}

	spreadBps := effectiveSpreadBps(quote)
	if spreadBps < cfg.Params.MinSpreadBps {
		return nil, nil
	}
	if conditions.Volatility > 0.15 {
		return nil, nil
	}
	if conditions.LiquidityScore < 0.3 {
		return nil, nil
	}
	if positions.TotalValueUSD() > cfg.Risk.MaxPositionSizeUSD {
		return nil, nil
	}

	routePlan, err := agentcore.EncodeRoutePlan(quote.RoutePlan)
	if err != nil {
		return nil, agentcore.NewStrategyError("Arbitrage.Evaluate", err)
	}

	plan := agentcore.NewPlan(agentcore.TagArbitrage, quote.OutputMint.String(), quote.InputMint, quote.OutputMint, arbitrageTTL)
	plan.InputAmount = quote.InAmount
	plan.MinOutputAmount = quote.OutAmount
	plan.ExpectedOutputAmount = quote.OutAmount
	plan.MaxSlippageBps = uint16(cfg.Params.MaxSlippageBps)
	plan.PriorityFeeLamports = priorityFeeWithJitter(cfg.Execution)
	plan.RoutePlan = routePlan
	plan.Confidence = arbitrageConfidence(spreadBps, cfg.Params.MinSpreadBps)
	plan.Context = agentcore.ExecutionContext{
		MarketConditions: conditions,
		Risk: agentcore.RiskAssessment{
			RiskScore:       0.3,
			MaxLossEstimate: float64(spreadBps) * cfg.Params.PositionSizeUSD / 10000,
			PositionRiskPct: 5.0,
			Factors:         []string{"slippage", "timing"},
			AdvisorReasoning: fmt.Sprintf("arbitrage opportunity with %d bps effective spread", spreadBps),
		},
	}
	return &plan, nil
}
