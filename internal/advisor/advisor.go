// Package advisor talks to an optional AI chat-completions gateway that
// scores and re-ranks trading opportunities. It is purely advisory: every
// caller must tolerate a failed or disabled advisor and proceed with the
// standard, unadjusted path.
package advisor

import (
	"context"
)

// Action is one of the recognized AI recommendation tags.
type Action string

const (
	ActionBuy       Action = "Buy"
	ActionSell      Action = "Sell"
	ActionHold      Action = "Hold"
	ActionRebalance Action = "Rebalance"
	ActionStopLoss  Action = "StopLoss"
)

// RiskAssessment is the advisor's own judgment of a proposed trade's risk,
// carrying the same score fields as agentcore.RiskAssessment (which adds an
// AdvisorReasoning string) so a Guidance can be folded directly into a Plan's
// execution context.
type RiskAssessment struct {
	RiskScore       float64
	MaxLossEstimate float64
	PositionRiskPct float64
	Factors         []string
}

// Guidance is the parsed, validated result of one advisor call.
type Guidance struct {
	Action      Action
	Confidence  float64
	Reasoning   string
	Risk        RiskAssessment
	Suggestions map[string]float64
}

// Request bundles the context an advisor call reasons over. Fields mirror
// what a planner tick has on hand: the latest quote, current positions,
// the strategy under consideration, and a free-form question.
type Request struct {
	Question     string
	QuoteSummary string
	PositionsSummary string
	StrategySummary  string
}

// Client obtains AI guidance for a trading decision. Implementations must
// return promptly (the planner blocks its tick on this call) and must
// return a non-nil error on any failure rather than a zero-value Guidance —
// callers fall back to the standard path purely by checking the error.
type Client interface {
	Advise(ctx context.Context, req Request) (Guidance, error)
}
