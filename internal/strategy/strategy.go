// Package strategy implements the pluggable strategy evaluators: Arbitrage,
// GridTrading, and DCA, plus a factory that refuses unknown tags.
package strategy

import (
	"fmt"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// Strategy is the capability set every strategy variant implements.
type Strategy interface {
	// Evaluate produces a Plan for the given quote/conditions/positions, or
	// nil if the strategy declines to act this cycle.
	Evaluate(quote agentcore.Quote, conditions agentcore.MarketConditions, positions agentcore.PositionSnapshot, cfg agentcore.StrategyConfig) (*agentcore.Plan, error)
	Tag() agentcore.StrategyTag
	Validate(params agentcore.StrategyParams) error
}

// PriorityBase returns the base priority score used to order strategies
// within one planning cycle before any AI-advisor adjustment.
func PriorityBase(tag agentcore.StrategyTag) float64 {
	switch tag {
	case agentcore.TagArbitrage:
		return 0.9
	case agentcore.TagTrendFollowing:
		return 0.8
	case agentcore.TagMeanReversion:
		return 0.7
	case agentcore.TagGridTrading:
		return 0.6
	case agentcore.TagDCA:
		return 0.5
	default:
		return 0.0
	}
}

// ErrUnknownStrategyTag is returned, wrapped in an agentcore ConfigError, for
// any tag the factory does not construct a real evaluator for. Unknown tags are always a
// configuration error — never silently mapped to another strategy's
// behavior.
type ErrUnknownStrategyTag struct {
	Tag agentcore.StrategyTag
}

func (e *ErrUnknownStrategyTag) Error() string {
	return fmt.Sprintf("unknown or unimplemented strategy tag: %s", e.Tag)
}

// Factory constructs a Strategy for a configured tag.
func Factory(tag agentcore.StrategyTag) (Strategy, error) {
	switch tag {
	case agentcore.TagArbitrage:
		return &Arbitrage{}, nil
	case agentcore.TagGridTrading:
		return &GridTrading{}, nil
	case agentcore.TagDCA:
		return NewDCA(), nil
	default:
		return nil, agentcore.NewConfigError("strategy.Factory", &ErrUnknownStrategyTag{Tag: tag})
	}
}
