package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Advisor    AdvisorConfig    `mapstructure:"advisor"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Observer   ObserverConfig   `mapstructure:"observer"`
	Strategies StrategiesConfig `mapstructure:"strategies"`
	Learning   LearningConfig   `mapstructure:"learning"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	PortfolioID string `mapstructure:"portfolio_id"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains Redis settings for the optional market-cache mirror
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig contains settings for the optional supervisor pause/resume control plane
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// AdvisorConfig contains AI advisor settings
type AdvisorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gateway string        `mapstructure:"gateway"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`

	// CircuitBreaker governs the gobreaker wrapping advisor calls.
	CircuitBreaker CircuitBreakerSettings `mapstructure:"circuit_breaker"`

	// RateLimit bounds outbound advisor requests per second / burst.
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

// CircuitBreakerSettings configures a single gobreaker instance.
type CircuitBreakerSettings struct {
	MinRequests     uint32        `mapstructure:"min_requests"`
	FailureRatio    float64       `mapstructure:"failure_ratio"`
	OpenTimeout     time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxReqs uint32        `mapstructure:"half_open_max_requests"`
	CountInterval   time.Duration `mapstructure:"count_interval"`
}

// FetcherConfig contains quote/price polling settings
type FetcherConfig struct {
	QuoteAPIBaseURL  string        `mapstructure:"quote_api_base_url"`
	PriceAPIBaseURL  string        `mapstructure:"price_api_base_url"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	StalenessWindow  time.Duration `mapstructure:"staleness_window"`
	QuoteChannelSize int           `mapstructure:"quote_channel_size"`
}

// PlannerConfig contains planning-loop settings
type PlannerConfig struct {
	EvaluationInterval time.Duration `mapstructure:"evaluation_interval"`
	RollingWindowSize  int           `mapstructure:"rolling_window_size"`
	PlanChannelSize    int           `mapstructure:"plan_channel_size"`
	PlanTTL            time.Duration `mapstructure:"plan_ttl"`
}

// ExecutorConfig contains execution-stage settings
type ExecutorConfig struct {
	ChainAPIBaseURL         string        `mapstructure:"chain_api_base_url"`
	MaxConcurrentExecutions int           `mapstructure:"max_concurrent_executions"`
	RetryMaxAttempts        int           `mapstructure:"retry_max_attempts"`
	RetryInitialBackoff     time.Duration `mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff         time.Duration `mapstructure:"retry_max_backoff"`
	RetryBackoffMultiplier  float64       `mapstructure:"retry_backoff_multiplier"`
	ResultChannelSize       int           `mapstructure:"result_channel_size"`
	TransactionTimeout      time.Duration `mapstructure:"transaction_timeout"`

	// PriorityFeeBase/JitterBps are loaded from config but no stage reads them;
	// arbitrage plans get a fixed jitter of up to 10% of the strategy's max priority fee.
	PriorityFeeBaseMicroLamports uint64 `mapstructure:"priority_fee_base_micro_lamports"`
	PriorityFeeJitterBps         int    `mapstructure:"priority_fee_jitter_bps"`

	CircuitBreaker CircuitBreakerSettings `mapstructure:"circuit_breaker"`
}

// ObserverConfig contains feedback-loop settings
type ObserverConfig struct {
	MonitorInterval     time.Duration `mapstructure:"monitor_interval"`
	FeedbackChannelSize int           `mapstructure:"feedback_channel_size"`
	HistoryCap          int           `mapstructure:"history_cap"`
	HistoryDrainAmount  int           `mapstructure:"history_drain_amount"`
	PositionMaxAge      time.Duration `mapstructure:"position_max_age"`
}

// StrategiesConfig holds per-strategy tunables, keyed by strategy tag.
type StrategiesConfig struct {
	Arbitrage    ArbitrageConfig    `mapstructure:"arbitrage"`
	GridTrading  GridTradingConfig  `mapstructure:"grid_trading"`
	DCA          DCAConfig          `mapstructure:"dca"`
}

// ArbitrageConfig contains arbitrage-strategy parameters
type ArbitrageConfig struct {
	MinSpreadBps      int     `mapstructure:"min_spread_bps"`
	MaxPositionSizeUSD float64 `mapstructure:"max_position_size_usd"`
	PlanTTL           time.Duration `mapstructure:"plan_ttl"`
}

// GridTradingConfig contains grid-trading-strategy parameters
type GridTradingConfig struct {
	GridLevels     int           `mapstructure:"grid_levels"`
	GridSpacingBps int           `mapstructure:"grid_spacing_bps"`
	OrderSizeUSD   float64       `mapstructure:"order_size_usd"`
	PlanTTL        time.Duration `mapstructure:"plan_ttl"`
}

// DCAConfig contains dollar-cost-averaging strategy parameters
type DCAConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	OrderSizeUSD float64       `mapstructure:"order_size_usd"`
	PlanTTL      time.Duration `mapstructure:"plan_ttl"`
}

// LearningConfig contains the adaptive learning-parameter bounds
type LearningConfig struct {
	PriorityFeePercentileMin float64 `mapstructure:"priority_fee_percentile_min"`
	PriorityFeePercentileMax float64 `mapstructure:"priority_fee_percentile_max"`
	MaxSlippageBpsMin        float64 `mapstructure:"max_slippage_bps_min"`
	MaxSlippageBpsMax        float64 `mapstructure:"max_slippage_bps_max"`
	PositionSizeMultiplierMin float64 `mapstructure:"position_size_multiplier_min"`
	PositionSizeMultiplierMax float64 `mapstructure:"position_size_multiplier_max"`
}

// APIConfig contains the agent's stats/state HTTP surface settings
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TRADINGAGENT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tradingagent")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.portfolio_id", "default")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "tradingagent")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "tradingagent.control")

	v.SetDefault("advisor.enabled", true)
	v.SetDefault("advisor.gateway", "openai")
	v.SetDefault("advisor.model", "gpt-4-turbo-preview")
	v.SetDefault("advisor.timeout", 30*time.Second)
	v.SetDefault("advisor.rate_limit_per_second", 1.0)
	v.SetDefault("advisor.rate_limit_burst", 2)
	v.SetDefault("advisor.circuit_breaker.min_requests", 3)
	v.SetDefault("advisor.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("advisor.circuit_breaker.open_timeout", 60*time.Second)
	v.SetDefault("advisor.circuit_breaker.half_open_max_requests", 2)
	v.SetDefault("advisor.circuit_breaker.count_interval", 10*time.Second)

	v.SetDefault("fetcher.poll_interval", 5*time.Second)
	v.SetDefault("fetcher.request_timeout", 10*time.Second)
	v.SetDefault("fetcher.staleness_window", 15*time.Second)
	v.SetDefault("fetcher.quote_channel_size", 64)

	v.SetDefault("planner.evaluation_interval", 10*time.Second)
	v.SetDefault("planner.rolling_window_size", 100)
	v.SetDefault("planner.plan_ttl", 30*time.Second)

	v.SetDefault("executor.chain_api_base_url", "http://localhost:9090")
	v.SetDefault("executor.max_concurrent_executions", 4)
	v.SetDefault("executor.retry_max_attempts", 3)
	v.SetDefault("executor.retry_initial_backoff", 1*time.Second)
	v.SetDefault("executor.retry_max_backoff", 10*time.Second)
	v.SetDefault("executor.retry_backoff_multiplier", 2.0)
	v.SetDefault("executor.transaction_timeout", 15*time.Second)
	v.SetDefault("executor.result_channel_size", 256)
	v.SetDefault("executor.priority_fee_base_micro_lamports", 1000)
	v.SetDefault("executor.priority_fee_jitter_bps", 500)
	v.SetDefault("executor.circuit_breaker.min_requests", 5)
	v.SetDefault("executor.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("executor.circuit_breaker.open_timeout", 30*time.Second)
	v.SetDefault("executor.circuit_breaker.half_open_max_requests", 3)
	v.SetDefault("executor.circuit_breaker.count_interval", 10*time.Second)

	v.SetDefault("observer.monitor_interval", 60*time.Second)
	v.SetDefault("observer.history_cap", 10000)
	v.SetDefault("observer.history_drain_amount", 1000)
	v.SetDefault("observer.position_max_age", 7*24*time.Hour)
	v.SetDefault("observer.feedback_channel_size", 256)

	v.SetDefault("strategies.arbitrage.min_spread_bps", 20)
	v.SetDefault("strategies.arbitrage.max_position_size_usd", 1000.0)
	v.SetDefault("strategies.arbitrage.plan_ttl", 15*time.Second)

	v.SetDefault("strategies.grid_trading.grid_levels", 5)
	v.SetDefault("strategies.grid_trading.grid_spacing_bps", 50)
	v.SetDefault("strategies.grid_trading.order_size_usd", 100.0)
	v.SetDefault("strategies.grid_trading.plan_ttl", 30*time.Second)

	v.SetDefault("strategies.dca.interval", 1*time.Hour)
	v.SetDefault("strategies.dca.order_size_usd", 50.0)
	v.SetDefault("strategies.dca.plan_ttl", 60*time.Second)

	v.SetDefault("learning.priority_fee_percentile_min", 50.0)
	v.SetDefault("learning.priority_fee_percentile_max", 99.0)
	v.SetDefault("learning.max_slippage_bps_min", 10.0)
	v.SetDefault("learning.max_slippage_bps_max", 500.0)
	v.SetDefault("learning.position_size_multiplier_min", 0.1)
	v.SetDefault("learning.position_size_multiplier_max", 2.0)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8081)

	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
