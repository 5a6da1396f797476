package agentcore

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionResult is the outcome of one executor attempt at a Plan (which
// may itself have been internally retried — retries count as one logical
// execution).
type ExecutionResult struct {
	PlanID               uuid.UUID
	StrategyTag          StrategyTag
	Success              bool
	TransactionSignature *string
	ExecutionTimeMs      int64
	ActualSlippageBps    *uint16
	ErrorMessage         string
	GasUsed              *uint64
	RetryCount           int
	Timestamp            time.Time

	// OutputMint and ExecutedOutputAmount carry the traded leg of a
	// successful execution through to the observer, which has no other
	// channel-based path to a Plan's output mint or its actually-observed
	// fill. Both are zero on failure.
	OutputMint           TokenID
	ExecutedOutputAmount uint64
}
