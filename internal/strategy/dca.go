package strategy

import (
	"sync"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

const dcaTTL = time.Hour

// dcaConfidence is fixed: DCA trades on a schedule, not on signal strength.
const dcaConfidence = 0.8

// DCA buys on a fixed schedule per pair, independent of market conditions.
// It tracks the last execution time per (input, output) pair so that at
// most one plan is emitted per configured interval.
type DCA struct {
	mu            sync.Mutex
	lastExecution map[agentcore.PairKey]time.Time
}

// NewDCA returns a DCA strategy with empty per-pair execution history.
func NewDCA() *DCA {
	return &DCA{lastExecution: make(map[agentcore.PairKey]time.Time)}
}

func (*DCA) Tag() agentcore.StrategyTag { return agentcore.TagDCA }

func (*DCA) Validate(agentcore.StrategyParams) error {
	return nil
}

func (d *DCA) Evaluate(quote agentcore.Quote, conditions agentcore.MarketConditions, positions agentcore.PositionSnapshot, cfg agentcore.StrategyConfig) (*agentcore.Plan, error) {
	key := agentcore.PairKey{Input: quote.InputMint, Output: quote.OutputMint}
	intervalHours := 24
	if custom, ok := cfg.Params.Custom["interval_hours"]; ok && custom > 0 {
		intervalHours = int(custom)
	}
	interval := time.Duration(intervalHours) * time.Hour

	now := time.Now()

	d.mu.Lock()
	last, seen := d.lastExecution[key]
	if seen && now.Sub(last) < interval {
		d.mu.Unlock()
		return nil, nil
	}
	d.lastExecution[key] = now
	d.mu.Unlock()

	routePlan, err := agentcore.EncodeRoutePlan(quote.RoutePlan)
	if err != nil {
		return nil, agentcore.NewStrategyError("DCA.Evaluate", err)
	}

	plan := agentcore.NewPlan(agentcore.TagDCA, quote.OutputMint.String(), quote.InputMint, quote.OutputMint, dcaTTL)
	plan.InputAmount = quote.InAmount
	plan.MinOutputAmount = uint64(float64(quote.OutAmount) * 0.95)
	plan.ExpectedOutputAmount = quote.OutAmount
	plan.MaxSlippageBps = uint16(cfg.Params.MaxSlippageBps)
	plan.PriorityFeeLamports = cfg.Execution.MaxPriorityFeeLamports / 2
	plan.RoutePlan = routePlan
	plan.Confidence = dcaConfidence
	plan.Context = agentcore.ExecutionContext{
		MarketConditions: conditions,
		Risk: agentcore.RiskAssessment{
			RiskScore:        0.2,
			MaxLossEstimate:  cfg.Params.PositionSizeUSD * 0.1,
			PositionRiskPct:  2.0,
			Factors:          []string{"timing"},
			AdvisorReasoning: "regular DCA execution regardless of market conditions",
		},
	}
	return &plan, nil
}
