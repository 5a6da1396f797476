package risk

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Circuit breaker states for Prometheus metrics
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"

	// Metric result labels
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Default circuit breaker thresholds, used when config leaves a field zero-valued.
const (
	// ChainClient circuit breaker settings
	ChainClientMinRequests     = 5
	ChainClientFailureRatio    = 0.6
	ChainClientOpenTimeout     = 30 * time.Second
	ChainClientHalfOpenMaxReqs = 3
	ChainClientCountInterval   = 10 * time.Second

	// Advisor circuit breaker settings (longer timeouts for AI gateway calls)
	AdvisorMinRequests     = 3
	AdvisorFailureRatio    = 0.6
	AdvisorOpenTimeout     = 60 * time.Second
	AdvisorHalfOpenMaxReqs = 2
	AdvisorCountInterval   = 10 * time.Second
)

// CircuitBreakerManager manages circuit breakers for the chain client and the AI advisor.
type CircuitBreakerManager struct {
	chainClient *gobreaker.CircuitBreaker
	advisor     *gobreaker.CircuitBreaker
	metrics     *CircuitBreakerMetrics
}

// CircuitBreakerMetrics holds Prometheus metrics for circuit breakers
type CircuitBreakerMetrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	// Global metrics instance (singleton)
	globalMetrics *CircuitBreakerMetrics
	metricsOnce   sync.Once
)

// initMetrics initializes the global metrics instance exactly once in a thread-safe manner
func initMetrics() {
	metricsOnce.Do(func() {
		globalMetrics = &CircuitBreakerMetrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "tradingagent_circuit_breaker_state",
					Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"service"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tradingagent_circuit_breaker_requests_total",
					Help: "Total number of requests through circuit breaker",
				},
				[]string{"service", "result"},
			),
			failures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tradingagent_circuit_breaker_failures_total",
					Help: "Total number of failures tracked by circuit breaker",
				},
				[]string{"service"},
			),
		}
	})
}

// ServiceSettings holds circuit breaker configuration for a single service
type ServiceSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// settingsOrDefault fills in zero-valued fields of a config-derived ServiceSettings
// with the package defaults for the named service.
func settingsOrDefault(s ServiceSettings, minRequests uint32, failureRatio float64, openTimeout time.Duration, halfOpenMaxReqs uint32, countInterval time.Duration) ServiceSettings {
	if s.MinRequests == 0 {
		s.MinRequests = minRequests
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = failureRatio
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = openTimeout
	}
	if s.HalfOpenMaxReqs == 0 {
		s.HalfOpenMaxReqs = halfOpenMaxReqs
	}
	if s.CountInterval == 0 {
		s.CountInterval = countInterval
	}
	return s
}

// NewCircuitBreakerManager creates a circuit breaker manager with the package defaults.
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return NewCircuitBreakerManagerWithSettings(ServiceSettings{}, ServiceSettings{})
}

// NewCircuitBreakerManagerWithSettings creates a new circuit breaker manager with Prometheus
// metrics wired in. Zero-valued fields in chainClientSettings/advisorSettings fall back to
// the package defaults.
func NewCircuitBreakerManagerWithSettings(chainClientSettings, advisorSettings ServiceSettings) *CircuitBreakerManager {
	initMetrics()

	chainClientSettings = settingsOrDefault(chainClientSettings, ChainClientMinRequests, ChainClientFailureRatio, ChainClientOpenTimeout, ChainClientHalfOpenMaxReqs, ChainClientCountInterval)
	advisorSettings = settingsOrDefault(advisorSettings, AdvisorMinRequests, AdvisorFailureRatio, AdvisorOpenTimeout, AdvisorHalfOpenMaxReqs, AdvisorCountInterval)

	manager := &CircuitBreakerManager{
		metrics: globalMetrics,
	}

	manager.chainClient = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain_client",
		MaxRequests: chainClientSettings.HalfOpenMaxReqs,
		Interval:    chainClientSettings.CountInterval,
		Timeout:     chainClientSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= chainClientSettings.MinRequests && failureRatio >= chainClientSettings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			manager.updateMetrics("chain_client", to)
		},
	})

	manager.advisor = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor",
		MaxRequests: advisorSettings.HalfOpenMaxReqs,
		Interval:    advisorSettings.CountInterval,
		Timeout:     advisorSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= advisorSettings.MinRequests && failureRatio >= advisorSettings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			manager.updateMetrics("advisor", to)
		},
	})

	manager.updateMetrics("chain_client", manager.chainClient.State())
	manager.updateMetrics("advisor", manager.advisor.State())

	return manager
}

// NewPassthroughCircuitBreakerManager creates a circuit breaker manager that never trips.
// Useful for tests that exercise other components without circuit breaker interference.
func NewPassthroughCircuitBreakerManager() *CircuitBreakerManager {
	initMetrics()

	manager := &CircuitBreakerManager{
		metrics: globalMetrics,
	}

	neverTrip := func(counts gobreaker.Counts) bool {
		return false
	}

	manager.chainClient = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain_client_passthrough",
		MaxRequests: 1000,
		Interval:    0,
		Timeout:     1 * time.Millisecond,
		ReadyToTrip: neverTrip,
	})

	manager.advisor = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor_passthrough",
		MaxRequests: 1000,
		Interval:    0,
		Timeout:     1 * time.Millisecond,
		ReadyToTrip: neverTrip,
	})

	return manager
}

// ChainClient returns the circuit breaker guarding on-chain/DEX client calls.
func (m *CircuitBreakerManager) ChainClient() *gobreaker.CircuitBreaker {
	return m.chainClient
}

// Advisor returns the circuit breaker guarding AI advisor gateway calls.
func (m *CircuitBreakerManager) Advisor() *gobreaker.CircuitBreaker {
	return m.advisor
}

// updateMetrics updates Prometheus metrics for a circuit breaker state change
func (m *CircuitBreakerManager) updateMetrics(service string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateOpen:
		stateValue = 1
	case gobreaker.StateHalfOpen:
		stateValue = 2
	}
	m.metrics.state.WithLabelValues(service).Set(stateValue)
}

// RecordRequest records a request result for metrics
func (m *CircuitBreakerMetrics) RecordRequest(service string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
		m.failures.WithLabelValues(service).Inc()
	}
	m.requests.WithLabelValues(service, result).Inc()
}

// Metrics returns the metrics instance for manual recording
func (m *CircuitBreakerManager) Metrics() *CircuitBreakerMetrics {
	return m.metrics
}
