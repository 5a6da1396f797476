package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

const gridTradingTTL = 5 * time.Minute

// GridTrading rebalances a tracked position back toward its entry price once
// the market is Sideways and the price has wandered far enough to matter.
// Unlike the stub it is grounded on, it actually emits a Plan rather than
// always declining.
type GridTrading struct{}

func (GridTrading) Tag() agentcore.StrategyTag { return agentcore.TagGridTrading }

func (GridTrading) Validate(params agentcore.StrategyParams) error {
	if params.RebalanceThresholdPct < 0.01 || params.RebalanceThresholdPct > 0.10 {
		return agentcore.NewConfigError("GridTrading.Validate", fmt.Errorf("rebalance_threshold_pct %.4f outside [0.01, 0.10]", params.RebalanceThresholdPct))
	}
	return nil
}

func (GridTrading) Evaluate(quote agentcore.Quote, conditions agentcore.MarketConditions, positions agentcore.PositionSnapshot, cfg agentcore.StrategyConfig) (*agentcore.Plan, error) {
	if conditions.Trend != agentcore.TrendSideways {
		return nil, nil
	}

	pos, tracked := positions.Positions[quote.OutputMint]
	if !tracked || pos.EntryPrice == 0 {
		return nil, nil
	}

	deviation := math.Abs(pos.CurrentPrice/pos.EntryPrice - 1.0)
	if deviation < cfg.Params.RebalanceThresholdPct {
		return nil, nil
	}

	routePlan, err := agentcore.EncodeRoutePlan(quote.RoutePlan)
	if err != nil {
		return nil, agentcore.NewStrategyError("GridTrading.Evaluate", err)
	}

	confidence := 0.5 + (deviation/cfg.Params.RebalanceThresholdPct-1.0)*0.2
	if confidence > 0.9 {
		confidence = 0.9
	}
	if confidence < 0.1 {
		confidence = 0.1
	}

	plan := agentcore.NewPlan(agentcore.TagGridTrading, quote.OutputMint.String(), quote.InputMint, quote.OutputMint, gridTradingTTL)
	plan.InputAmount = quote.InAmount
	plan.MinOutputAmount = uint64(float64(quote.OutAmount) * 0.95)
	plan.ExpectedOutputAmount = quote.OutAmount
	plan.MaxSlippageBps = uint16(cfg.Params.MaxSlippageBps)
	plan.PriorityFeeLamports = cfg.Execution.MaxPriorityFeeLamports
	plan.RoutePlan = routePlan
	plan.Confidence = confidence
	plan.Context = agentcore.ExecutionContext{
		MarketConditions: conditions,
		Risk: agentcore.RiskAssessment{
			RiskScore:       0.25,
			MaxLossEstimate: cfg.Params.PositionSizeUSD * 0.05,
			PositionRiskPct: 3.0,
			Factors:         []string{"mean_reversion", "grid_level"},
			AdvisorReasoning: fmt.Sprintf("grid rebalance triggered: %.2f%% deviation from entry", deviation*100),
		},
	}
	return &plan, nil
}
