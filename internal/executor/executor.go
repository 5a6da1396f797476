package executor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Stats is a snapshot of the executor's running metrics: totals, a running
// mean of execution_time_ms (mean <- mean + (x-mean)/n), cumulative gas, and
// the timestamp of the last execution.
type Stats struct {
	Attempted          int64
	Succeeded          int64
	Failed             int64
	MeanExecutionTimeMs float64
	CumulativeGas      uint64
	LastExecutionAt    time.Time
}

type statsTracker struct {
	mu    sync.Mutex
	stats Stats
}

func (s *statsTracker) record(result agentcore.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Attempted++
	if result.Success {
		s.stats.Succeeded++
	} else {
		s.stats.Failed++
	}
	n := float64(s.stats.Attempted)
	s.stats.MeanExecutionTimeMs += (float64(result.ExecutionTimeMs) - s.stats.MeanExecutionTimeMs) / n
	if result.GasUsed != nil {
		s.stats.CumulativeGas += *result.GasUsed
	}
	s.stats.LastExecutionAt = result.Timestamp
}

func (s *statsTracker) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Executor consumes Plans from a channel and emits ExecutionResults, one
// goroutine per plan bounded by a semaphore of capacity
// max_concurrent_executions.
type Executor struct {
	chainClient agentcore.ChainClient
	breaker     *gobreaker.CircuitBreaker
	sem         *semaphore.Weighted
	retryCfg    RetryConfig
	txTimeout   time.Duration
	stats       statsTracker
	log         zerolog.Logger
}

// New builds an Executor. maxConcurrent bounds in-flight submissions;
// txTimeout bounds each individual submit attempt.
func New(chainClient agentcore.ChainClient, breaker *gobreaker.CircuitBreaker, maxConcurrent int64, txTimeout time.Duration, retryCfg RetryConfig, log zerolog.Logger) *Executor {
	return &Executor{
		chainClient: chainClient,
		breaker:     breaker,
		sem:         semaphore.NewWeighted(maxConcurrent),
		retryCfg:    retryCfg,
		txTimeout:   txTimeout,
		log:         log.With().Str("component", "executor").Logger(),
	}
}

// Stats returns a point-in-time snapshot of the running metrics.
func (e *Executor) Stats() Stats {
	return e.stats.snapshot()
}

// Run implements agentcore.ExecutorStage: it pulls Plans until plans is
// closed or ctx is cancelled, spawning one goroutine per plan.
func (e *Executor) Run(ctx context.Context, plans <-chan agentcore.Plan, results chan<- agentcore.ExecutionResult) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case plan, ok := <-plans:
			if !ok {
				return
			}
			if err := e.sem.Acquire(ctx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func(p agentcore.Plan) {
				defer wg.Done()
				defer e.sem.Release(1)
				result := e.execute(ctx, p)
				e.stats.record(result)
				select {
				case results <- result:
				case <-ctx.Done():
					e.log.Warn().Str("plan_id", p.ID.String()).Msg("dropped result: context cancelled before send")
				}
			}(plan)
		}
	}
}

// execute runs one plan to completion: expiry check, then submit-with-retry
// against the chain client, producing a terminal ExecutionResult.
func (e *Executor) execute(ctx context.Context, plan agentcore.Plan) agentcore.ExecutionResult {
	start := time.Now()
	now := start

	if plan.IsExpired(now) {
		metrics.RecordExecutionResult(outcomeFailure, 0)
		return agentcore.ExecutionResult{
			PlanID:          plan.ID,
			StrategyTag:     plan.StrategyTag,
			Success:         false,
			ExecutionTimeMs: 0,
			ErrorMessage:    "Plan expired",
			Timestamp:       now,
		}
	}

	var submitResult agentcore.ChainSubmitResult
	attempts, err := withRetry(ctx, e.retryCfg, func(ctx context.Context, attempt int) (bool, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.txTimeout)
		defer cancel()

		callStart := time.Now()
		res, cbErr := e.breaker.Execute(func() (interface{}, error) {
			return e.chainClient.Submit(attemptCtx, plan)
		})
		metrics.RecordChainClientCall("submit", float64(time.Since(callStart).Milliseconds()), cbErr)
		if cbErr != nil {
			return isRetryableChainError(cbErr), cbErr
		}
		submitResult = res.(agentcore.ChainSubmitResult)
		return false, nil
	})

	elapsed := time.Since(start)
	timestamp := time.Now()

	if err != nil {
		metrics.RecordExecutionResult(outcomeFailure, float64(elapsed.Milliseconds()))
		return agentcore.ExecutionResult{
			PlanID:          plan.ID,
			StrategyTag:     plan.StrategyTag,
			Success:         false,
			ExecutionTimeMs: elapsed.Milliseconds(),
			ErrorMessage:    err.Error(),
			RetryCount:      attempts - 1,
			Timestamp:       timestamp,
		}
	}

	var actualSlippageBps *uint16
	if plan.ExpectedOutputAmount > 0 && submitResult.ObservedOut < plan.ExpectedOutputAmount {
		shortfall := plan.ExpectedOutputAmount - submitResult.ObservedOut
		bps := uint16((shortfall * 10000) / plan.ExpectedOutputAmount)
		actualSlippageBps = &bps
	}

	sig := submitResult.Signature
	metrics.RecordExecutionResult(outcomeSuccess, float64(elapsed.Milliseconds()))
	return agentcore.ExecutionResult{
		PlanID:               plan.ID,
		StrategyTag:          plan.StrategyTag,
		Success:              true,
		TransactionSignature: &sig,
		ExecutionTimeMs:      elapsed.Milliseconds(),
		ActualSlippageBps:    actualSlippageBps,
		RetryCount:           attempts - 1,
		Timestamp:            timestamp,
		OutputMint:           plan.OutputMint,
		ExecutedOutputAmount: submitResult.ObservedOut,
	}
}

// isRetryableChainError classifies a chain-submit error: validation errors
// (malformed plan, insufficient balance, expired plan) never retry; timeout,
// network, and transient upstream errors do.
func isRetryableChainError(err error) bool {
	if agentcore.Is(err, agentcore.KindInvariant) || agentcore.Is(err, agentcore.KindConfig) {
		return false
	}
	return true
}
