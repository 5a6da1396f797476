package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCircuitBreakerReason(t *testing.T) {
	tests := []struct {
		reason   string
		expected string
	}{
		{"max_drawdown exceeded", ReasonMaxDrawdown},
		{"high volatility detected", ReasonHighVolatility},
		{"rate limit hit", ReasonRateLimit},
		{"manual halt requested", ReasonManualHalt},
		{"something else entirely", ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCircuitBreakerReason(tt.reason))
		})
	}
}

func TestNormalizeValidationReason(t *testing.T) {
	tests := []struct {
		reason   string
		expected string
	}{
		{"schema version mismatch", ValidationReasonSchemaInvalid},
		{"required field missing", ValidationReasonFieldMissing},
		{"value out of range", ValidationReasonValueOutOfRange},
		{"incompatible migration", ValidationReasonIncompatible},
		{"unknown failure", ValidationReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeValidationReason(tt.reason))
		})
	}
}

func TestNormalizeCallError(t *testing.T) {
	assert.Equal(t, "", NormalizeCallError(nil))

	tests := []struct {
		err      error
		expected string
	}{
		{errors.New("context deadline exceeded"), CallErrorTimeout},
		{errors.New("429 too many requests"), CallErrorRateLimit},
		{errors.New("401 unauthorized"), CallErrorAuth},
		{errors.New("connection refused: network unreachable"), CallErrorNetwork},
		{errors.New("400 invalid payload"), CallErrorInvalidReq},
		{errors.New("502 bad gateway"), CallErrorServerError},
		{errors.New("something weird"), CallErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCallError(tt.err))
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAPIRequest("GET", "/agent/p1/stats", "200", 12.5)
	})
}

func TestRecordError(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError("timeout", "executor")
	})
}

func TestRecordTrade(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordTrade(42.5)
		RecordTrade(-10.0)
	})
}

func TestUpdatePositionValue(t *testing.T) {
	assert.NotPanics(t, func() {
		UpdatePositionValue("SOL", 1234.5)
	})
}

func TestUpdateCircuitBreaker(t *testing.T) {
	assert.NotPanics(t, func() {
		UpdateCircuitBreaker("chain_client", true)
		UpdateCircuitBreaker("chain_client", false)
	})
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCircuitBreakerTrip("advisor", "rate limit hit")
	})
}

func TestRecordStrategyOperation(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordStrategyOperation("evaluate", true)
		RecordStrategyOperation("evaluate", false)
	})
}

func TestRecordVaultMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordVaultCacheMiss()
		RecordVaultRequest(5.0, nil)
		RecordVaultRequest(5.0, errors.New("boom"))
	})
}

func TestRecordChainClientCall(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordChainClientCall("swap_quote", 20.0, nil)
		RecordChainClientCall("swap_quote", 20.0, errors.New("timeout"))
	})
}

func TestRecordAdvisorRequest(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAdvisorRequest(100.0, nil)
		RecordAdvisorRequest(100.0, errors.New("rate limit"))
	})
}

func TestRecordExecutionResult(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordExecutionResult("filled", 150.0)
		RecordExecutionResult("failed", 150.0)
	})
}

func TestRecordQualityBucketAndLearningAdjustment(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordQualityBucket("excellent")
		RecordLearningAdjustment("priority_fee_percentile")
	})
}
