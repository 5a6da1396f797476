package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

func baseConditions() agentcore.MarketConditions {
	return agentcore.MarketConditions{Volatility: 0.05, LiquidityScore: 0.8, Trend: agentcore.TrendSideways}
}

func TestArbitrage_Validate(t *testing.T) {
	a := Arbitrage{}
	assert.NoError(t, a.Validate(agentcore.StrategyParams{MinSpreadBps: 10, MaxSlippageBps: 500}))
	assert.Error(t, a.Validate(agentcore.StrategyParams{MinSpreadBps: 9, MaxSlippageBps: 500}))
	assert.Error(t, a.Validate(agentcore.StrategyParams{MinSpreadBps: 10, MaxSlippageBps: 501}))
}

func TestArbitrage_Evaluate_EmitsPlanWhenSpreadClearsFloor(t *testing.T) {
	a := Arbitrage{}
	quote := agentcore.Quote{
		InAmount:       1_000_000,
		OutAmount:      1_100_000,
		SlippageBps:    50,
		PlatformFeeBps: 0,
		PriceImpactPct: 0.0,
		RoutePlan:      []byte("route"),
		Timestamp:      time.Now(),
	}
	cfg := agentcore.StrategyConfig{
		Params: agentcore.StrategyParams{MinSpreadBps: 500, MaxSlippageBps: 500, PositionSizeUSD: 1000},
		Risk:   agentcore.RiskLimits{MaxPositionSizeUSD: 1_000_000},
	}

	plan, err := a.Evaluate(quote, baseConditions(), agentcore.PositionSnapshot{}, cfg)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.InDelta(t, 0.70, plan.Confidence, 0.05)
	assert.WithinDuration(t, plan.CreatedAt.Add(30*time.Second), plan.ExpiresAt, time.Millisecond)
}

func TestArbitrage_Evaluate_NoPlanWhenFloorTooHigh(t *testing.T) {
	a := Arbitrage{}
	quote := agentcore.Quote{
		InAmount:       1_000_000,
		OutAmount:      1_100_000,
		SlippageBps:    50,
		PlatformFeeBps: 0,
		PriceImpactPct: 0.0,
		RoutePlan:      []byte("route"),
		Timestamp:      time.Now(),
	}
	cfg := agentcore.StrategyConfig{
		Params: agentcore.StrategyParams{MinSpreadBps: 1000, MaxSlippageBps: 500, PositionSizeUSD: 1000},
		Risk:   agentcore.RiskLimits{MaxPositionSizeUSD: 1_000_000},
	}

	plan, err := a.Evaluate(quote, baseConditions(), agentcore.PositionSnapshot{}, cfg)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestArbitrage_Evaluate_BoundaryAtExactMinSpread(t *testing.T) {
	a := Arbitrage{}
	// raw spread 1000bps, fees 50bps -> effective 950bps.
	quote := agentcore.Quote{
		InAmount:       1_000_000,
		OutAmount:      1_100_000,
		SlippageBps:    50,
		PlatformFeeBps: 0,
		PriceImpactPct: 0.0,
		RoutePlan:      []byte("route"),
	}
	cfg := agentcore.StrategyConfig{
		Params: agentcore.StrategyParams{MinSpreadBps: 951, MaxSlippageBps: 500, PositionSizeUSD: 1000},
		Risk:   agentcore.RiskLimits{MaxPositionSizeUSD: 1_000_000},
	}
	plan, err := a.Evaluate(quote, baseConditions(), agentcore.PositionSnapshot{}, cfg)
	require.NoError(t, err)
	assert.Nil(t, plan, "effective spread one bps below the floor must not emit a plan")

	cfg.Params.MinSpreadBps = 950
	plan, err = a.Evaluate(quote, baseConditions(), agentcore.PositionSnapshot{}, cfg)
	require.NoError(t, err)
	assert.NotNil(t, plan, "effective spread at exactly the floor must emit a plan")
}

func TestArbitrage_Evaluate_RejectsOnHighVolatility(t *testing.T) {
	a := Arbitrage{}
	quote := agentcore.Quote{InAmount: 1_000_000, OutAmount: 1_100_000, RoutePlan: []byte("route")}
	cfg := agentcore.StrategyConfig{
		Params: agentcore.StrategyParams{MinSpreadBps: 500, MaxSlippageBps: 500, PositionSizeUSD: 1000},
		Risk:   agentcore.RiskLimits{MaxPositionSizeUSD: 1_000_000},
	}
	conditions := baseConditions()
	conditions.Volatility = 0.2

	plan, err := a.Evaluate(quote, conditions, agentcore.PositionSnapshot{}, cfg)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestArbitrage_Evaluate_RejectsWhenPositionsExceedLimit(t *testing.T) {
	a := Arbitrage{}
	quote := agentcore.Quote{InAmount: 1_000_000, OutAmount: 1_100_000, RoutePlan: []byte("route")}
	cfg := agentcore.StrategyConfig{
		Params: agentcore.StrategyParams{MinSpreadBps: 500, MaxSlippageBps: 500, PositionSizeUSD: 1000},
		Risk:   agentcore.RiskLimits{MaxPositionSizeUSD: 10},
	}
	positions := agentcore.PositionSnapshot{Positions: map[agentcore.TokenID]agentcore.Position{
		quote.OutputMint: {Amount: 1000, CurrentPrice: 1.0},
	}}

	plan, err := a.Evaluate(quote, baseConditions(), positions, cfg)
	require.NoError(t, err)
	assert.Nil(t, plan)
}
