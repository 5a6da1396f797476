package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
// These ensure metrics don't have unbounded label values which can cause memory issues.
const (
	// Circuit breaker reasons (bounded set)
	ReasonMaxDrawdown    = "max_drawdown"
	ReasonHighVolatility = "high_volatility"
	ReasonRateLimit      = "rate_limit"
	ReasonManualHalt     = "manual_halt"
	ReasonOther          = "other"

	// Strategy validation failure reasons (bounded set)
	ValidationReasonSchemaInvalid   = "schema_invalid"
	ValidationReasonFieldMissing    = "field_missing"
	ValidationReasonValueOutOfRange = "value_out_of_range"
	ValidationReasonIncompatible    = "incompatible"
	ValidationReasonOther           = "other"

	// Chain client / advisor error categories (bounded set)
	CallErrorTimeout     = "timeout"
	CallErrorRateLimit   = "rate_limit"
	CallErrorAuth        = "authentication"
	CallErrorNetwork     = "network"
	CallErrorInvalidReq  = "invalid_request"
	CallErrorServerError = "server_error"
	CallErrorOther       = "other"
)

// NormalizeCircuitBreakerReason maps arbitrary reasons to bounded set
func NormalizeCircuitBreakerReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "drawdown"):
		return ReasonMaxDrawdown
	case strings.Contains(lower, "volatility"):
		return ReasonHighVolatility
	case strings.Contains(lower, "rate") || strings.Contains(lower, "limit"):
		return ReasonRateLimit
	case strings.Contains(lower, "manual") || strings.Contains(lower, "halt"):
		return ReasonManualHalt
	default:
		return ReasonOther
	}
}

// NormalizeValidationReason maps arbitrary validation failures to bounded set
func NormalizeValidationReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "schema") || strings.Contains(lower, "version"):
		return ValidationReasonSchemaInvalid
	case strings.Contains(lower, "missing") || strings.Contains(lower, "required"):
		return ValidationReasonFieldMissing
	case strings.Contains(lower, "range") || strings.Contains(lower, "value") || strings.Contains(lower, "invalid"):
		return ValidationReasonValueOutOfRange
	case strings.Contains(lower, "compatible") || strings.Contains(lower, "migration"):
		return ValidationReasonIncompatible
	default:
		return ValidationReasonOther
	}
}

// NormalizeCallError maps arbitrary error messages to a bounded set, used for
// both chain-client and AI-advisor outbound call failures.
func NormalizeCallError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return CallErrorTimeout
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "429"):
		return CallErrorRateLimit
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return CallErrorAuth
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return CallErrorNetwork
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid"):
		return CallErrorInvalidReq
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503"):
		return CallErrorServerError
	default:
		return CallErrorOther
	}
}

// Trading Performance Metrics
var (
	TotalPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_total_pnl",
		Help: "Total profit and loss in USD across all positions",
	})

	WinRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_win_rate",
		Help: "Win rate as a ratio (0.0 to 1.0)",
	})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_open_positions",
		Help: "Number of currently open positions",
	})

	TotalTrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_total_trades",
		Help: "Total number of trades executed",
	})

	PositionValueByToken = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradingagent_position_value_by_token",
		Help: "Position value in USD by token",
	}, []string{"token"})
)

// System Health Metrics
var (
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_database_connections_idle",
		Help: "Number of idle database connections",
	})

	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_redis_operations_total",
		Help: "Total number of Redis operations by type",
	}, []string{"operation"})

	RedisCacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_redis_cache_hit_rate",
		Help: "Rolling cache hit rate for the Redis quote mirror",
	})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradingagent_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "path", "status_code"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status_code"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_errors_total",
		Help: "Total number of errors by type and component",
	}, []string{"type", "component"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradingagent_database_query_duration_ms",
		Help:    "Database query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"query_type"})

	NATSMessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_nats_messages_published_total",
		Help: "Total number of NATS control messages published",
	})

	NATSMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_nats_messages_received_total",
		Help: "Total number of NATS control messages received",
	})

	VaultCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_vault_cache_misses_total",
		Help: "Total number of Vault secret cache misses",
	})

	VaultRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingagent_vault_request_duration_ms",
		Help:    "Vault secret request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})

	VaultRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_vault_request_errors_total",
		Help: "Total number of failed Vault secret requests",
	})
)

// Agent Pipeline Metrics (fetcher / planner / executor / observer)
var (
	FetcherPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingagent_fetcher_poll_duration_ms",
		Help:    "Duration of one fetcher poll cycle across all quote/price sources",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	FetcherQuotesStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_fetcher_quotes_stale_total",
		Help: "Total number of quotes dropped for exceeding the staleness window",
	}, []string{"token"})

	PlannerPlansEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_planner_plans_emitted_total",
		Help: "Total number of plans emitted by strategy tag",
	}, []string{"strategy"})

	PlannerEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingagent_planner_evaluation_duration_ms",
		Help:    "Duration of one planning evaluation cycle",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
	})

	ExecutorExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingagent_executor_execution_duration_ms",
		Help:    "Plan execution duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	ExecutorResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_executor_results_total",
		Help: "Total execution results by outcome",
	}, []string{"outcome"})

	ExecutorRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingagent_executor_retries_total",
		Help: "Total number of execution retry attempts",
	})

	ExecutorInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_executor_in_flight",
		Help: "Number of executions currently in flight",
	})

	ObserverHistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingagent_observer_history_size",
		Help: "Current size of the observer's in-memory execution history",
	})

	ObserverQualityBucket = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_observer_quality_bucket_total",
		Help: "Total executions classified into each quality bucket",
	}, []string{"bucket"})

	LearningParameterAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_learning_parameter_adjustments_total",
		Help: "Total learning-parameter CAS adjustments by parameter",
	}, []string{"parameter"})

	AdvisorRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingagent_advisor_request_duration_ms",
		Help:    "AI advisor request duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000},
	})

	AdvisorRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_advisor_request_errors_total",
		Help: "Total AI advisor request errors by normalized category",
	}, []string{"category"})

	ChainClientLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradingagent_chain_client_latency_ms",
		Help:    "Chain client call latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	ChainClientErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_chain_client_errors_total",
		Help: "Total chain client errors by normalized category",
	}, []string{"operation", "category"})
)

// Circuit Breaker Metrics
var (
	CircuitBreakerStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradingagent_circuit_breaker_status",
		Help: "Circuit breaker status (1 = active/tripped, 0 = inactive)",
	}, []string{"breaker_type"})

	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips",
	}, []string{"breaker_type", "reason"})
)

// Strategy Metrics
var (
	StrategyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_strategy_operations_total",
		Help: "Total number of strategy operations by type and status",
	}, []string{"operation", "status"})

	StrategyValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingagent_strategy_validation_failures_total",
		Help: "Total number of strategy validation failures by reason",
	}, []string{"reason"})
)

// Helper functions to update metrics

// UpdateDatabaseConnections updates database connection metrics
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// RecordAPIRequest records an API request with duration
func RecordAPIRequest(method, path, statusCode string, durationMs float64) {
	APIRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	Errors.WithLabelValues(errorType, component).Inc()
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(queryType string, durationMs float64) {
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(durationMs)
}

// RecordTrade records a completed trade's realized P&L
func RecordTrade(profitLoss float64) {
	TotalTrades.Inc()
	TotalPnL.Add(profitLoss)
}

// UpdatePositionValue updates position value for a token
func UpdatePositionValue(token string, value float64) {
	PositionValueByToken.WithLabelValues(token).Set(value)
}

// RecordRedisOperation records a Redis operation
func RecordRedisOperation(operation string) {
	RedisOperations.WithLabelValues(operation).Inc()
}

// UpdateCircuitBreaker updates circuit breaker status
func UpdateCircuitBreaker(breakerType string, active bool) {
	status := 0.0
	if active {
		status = 1.0
	}
	CircuitBreakerStatus.WithLabelValues(breakerType).Set(status)
}

// RecordCircuitBreakerTrip records a circuit breaker trip with normalized reason
func RecordCircuitBreakerTrip(breakerType, reason string) {
	normalizedReason := NormalizeCircuitBreakerReason(reason)
	CircuitBreakerTrips.WithLabelValues(breakerType, normalizedReason).Inc()
}

// RecordStrategyOperation records a strategy operation
func RecordStrategyOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	StrategyOperations.WithLabelValues(operation, status).Inc()
}

// RecordStrategyValidationFailure records a strategy validation failure with normalized reason
func RecordStrategyValidationFailure(reason string) {
	normalizedReason := NormalizeValidationReason(reason)
	StrategyValidationFailures.WithLabelValues(normalizedReason).Inc()
}

// RecordVaultCacheMiss records a Vault secret cache miss
func RecordVaultCacheMiss() {
	VaultCacheMisses.Inc()
}

// RecordVaultRequest records a Vault secret request's duration and outcome
func RecordVaultRequest(durationMs float64, err error) {
	VaultRequestDuration.Observe(durationMs)
	if err != nil {
		VaultRequestErrors.Inc()
	}
}

// RecordChainClientCall records a chain client call's latency and normalized error category
func RecordChainClientCall(operation string, durationMs float64, err error) {
	ChainClientLatency.WithLabelValues(operation).Observe(durationMs)
	if err != nil {
		ChainClientErrors.WithLabelValues(operation, NormalizeCallError(err)).Inc()
	}
}

// RecordAdvisorRequest records an AI advisor request's latency and normalized error category
func RecordAdvisorRequest(durationMs float64, err error) {
	AdvisorRequestDuration.Observe(durationMs)
	if err != nil {
		AdvisorRequestErrors.WithLabelValues(NormalizeCallError(err)).Inc()
	}
}

// RecordExecutionResult records an execution outcome
func RecordExecutionResult(outcome string, durationMs float64) {
	ExecutorResults.WithLabelValues(outcome).Inc()
	ExecutorExecutionDuration.Observe(durationMs)
}

// RecordQualityBucket records an observed execution quality classification
func RecordQualityBucket(bucket string) {
	ObserverQualityBucket.WithLabelValues(bucket).Inc()
}

// RecordLearningAdjustment records a learning-parameter CAS update
func RecordLearningAdjustment(parameter string) {
	LearningParameterAdjustments.WithLabelValues(parameter).Inc()
}
