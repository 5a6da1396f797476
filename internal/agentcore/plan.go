package agentcore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskAssessment carries the advisor's (or a strategy's own) risk judgment
// attached to a Plan's execution context.
type RiskAssessment struct {
	RiskScore         float64
	MaxLossEstimate   float64
	PositionRiskPct   float64
	Factors           []string
	AdvisorReasoning  string
}

// ExecutionContext carries the market conditions and risk assessment that
// justified a Plan at the moment it was produced.
type ExecutionContext struct {
	MarketConditions MarketConditions
	Risk             RiskAssessment
}

// Plan is an executable intent produced by a strategy.
type Plan struct {
	ID                  uuid.UUID
	StrategyTag         StrategyTag
	BucketID            string
	InputMint           TokenID
	OutputMint          TokenID
	InputAmount         uint64
	MinOutputAmount     uint64
	ExpectedOutputAmount uint64
	MaxSlippageBps      uint16
	PriorityFeeLamports uint64
	RoutePlan           []byte
	Confidence          float64
	CreatedAt           time.Time
	ExpiresAt           time.Time
	Context             ExecutionContext
}

// IsExpired reports whether the plan has expired as of now. Expiry at
// exactly now == expires_at counts as expired.
func (p Plan) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// NewPlan builds a Plan with a fresh UUIDv4 id and the given TTL.
func NewPlan(tag StrategyTag, bucketID string, input, output TokenID, ttl time.Duration) Plan {
	now := time.Now()
	return Plan{
		ID:          uuid.New(),
		StrategyTag: tag,
		BucketID:    bucketID,
		InputMint:   input,
		OutputMint:  output,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// routePlanEnvelope is the gob-encoded wrapper around a route plan's opaque
// bytes. The blob is carried as-is; this module never interprets it as a
// DEX-specific struct (see the opaque chain-client design note).
type routePlanEnvelope struct {
	Blob []byte
}

// EncodeRoutePlan gob-encodes raw route-plan bytes (typically the upstream
// quote API's raw routePlan JSON) into the opaque wire format a Plan carries.
func EncodeRoutePlan(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(routePlanEnvelope{Blob: raw}); err != nil {
		return nil, fmt.Errorf("encode route plan: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRoutePlan reverses EncodeRoutePlan, returning the original raw bytes
// unchanged.
func DecodeRoutePlan(encoded []byte) ([]byte, error) {
	var env routePlanEnvelope
	if err := gob.NewDecoder(bytes.NewReader(encoded)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode route plan: %w", err)
	}
	return env.Blob, nil
}
