package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateAdvisor()...)
	errors = append(errors, c.validateFetcher()...)
	errors = append(errors, c.validatePlanner()...)
	errors = append(errors, c.validateExecutor()...)
	errors = append(errors, c.validateObserver()...)
	errors = append(errors, c.validateLearning()...)
	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateEnvironmentRequirements()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{Field: "app.name", Message: "Application name is required"})
	}

	if c.App.PortfolioID == "" {
		errors = append(errors, ValidationError{Field: "app.portfolio_id", Message: "Portfolio ID is required"})
	}

	if c.App.Environment == "" {
		errors = append(errors, ValidationError{Field: "app.environment", Message: "Environment is required (development, staging, or production)"})
	} else {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "app.environment",
				Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
			})
		}
	}

	if c.App.LogLevel == "" {
		errors = append(errors, ValidationError{Field: "app.log_level", Message: "Log level is required (debug, info, warn, error)"})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{Field: "database.host", Message: "Database host is required"})
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Database.Port),
		})
	}

	if c.Database.User == "" {
		errors = append(errors, ValidationError{Field: "database.user", Message: "Database user is required"})
	}

	if c.Database.Database == "" {
		errors = append(errors, ValidationError{Field: "database.database", Message: "Database name is required"})
	}

	if c.Database.Password == "" && c.App.Environment != "development" {
		errors = append(errors, ValidationError{Field: "database.password", Message: "Database password is required in non-development environments"})
	}

	if c.Database.PoolSize < 1 {
		errors = append(errors, ValidationError{Field: "database.pool_size", Message: "Database pool size must be at least 1"})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	var errors ValidationErrors

	if !c.Redis.Enabled {
		return errors
	}

	if c.Redis.Host == "" {
		errors = append(errors, ValidationError{Field: "redis.host", Message: "Redis host is required when redis.enabled is true"})
	}

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Redis.Port),
		})
	}

	return errors
}

func (c *Config) validateAdvisor() ValidationErrors {
	var errors ValidationErrors

	if !c.Advisor.Enabled {
		return errors
	}

	if c.Advisor.Model == "" {
		errors = append(errors, ValidationError{Field: "advisor.model", Message: "AI advisor model is required when advisor.enabled is true"})
	}

	if c.Advisor.Timeout < 1*1e9 {
		errors = append(errors, ValidationError{Field: "advisor.timeout", Message: "AI advisor timeout must be at least 1s"})
	}

	if c.Advisor.RateLimitPerSecond <= 0 {
		errors = append(errors, ValidationError{Field: "advisor.rate_limit_per_second", Message: "AI advisor rate limit must be positive"})
	}

	return errors
}

func (c *Config) validateFetcher() ValidationErrors {
	var errors ValidationErrors

	if c.Fetcher.PollInterval <= 0 {
		errors = append(errors, ValidationError{Field: "fetcher.poll_interval", Message: "Fetch poll interval must be positive"})
	}

	if c.Fetcher.QuoteChannelSize < 1 {
		errors = append(errors, ValidationError{Field: "fetcher.quote_channel_size", Message: "Quote channel size must be at least 1"})
	}

	return errors
}

func (c *Config) validatePlanner() ValidationErrors {
	var errors ValidationErrors

	if c.Planner.EvaluationInterval <= 0 {
		errors = append(errors, ValidationError{Field: "planner.evaluation_interval", Message: "Evaluation interval must be positive"})
	}

	if c.Planner.RollingWindowSize < 1 || c.Planner.RollingWindowSize > 100 {
		errors = append(errors, ValidationError{Field: "planner.rolling_window_size", Message: "Rolling window size must be between 1 and 100"})
	}

	return errors
}

func (c *Config) validateExecutor() ValidationErrors {
	var errors ValidationErrors

	if c.Executor.MaxConcurrentExecutions < 1 {
		errors = append(errors, ValidationError{Field: "executor.max_concurrent_executions", Message: "Max concurrent executions must be at least 1"})
	}

	if c.Executor.RetryMaxAttempts < 1 {
		errors = append(errors, ValidationError{Field: "executor.retry_max_attempts", Message: "Retry max attempts must be at least 1"})
	}

	if c.Executor.RetryBackoffMultiplier <= 1.0 {
		errors = append(errors, ValidationError{Field: "executor.retry_backoff_multiplier", Message: "Retry backoff multiplier must be greater than 1.0"})
	}

	if c.Executor.RetryInitialBackoff <= 0 || c.Executor.RetryMaxBackoff < c.Executor.RetryInitialBackoff {
		errors = append(errors, ValidationError{Field: "executor.retry_max_backoff", Message: "Retry max backoff must be >= retry initial backoff, both positive"})
	}

	return errors
}

func (c *Config) validateObserver() ValidationErrors {
	var errors ValidationErrors

	if c.Observer.HistoryCap < c.Observer.HistoryDrainAmount {
		errors = append(errors, ValidationError{Field: "observer.history_cap", Message: "History cap must be >= history drain amount"})
	}

	if c.Observer.MonitorInterval <= 0 {
		errors = append(errors, ValidationError{Field: "observer.monitor_interval", Message: "Monitor interval must be positive"})
	}

	return errors
}

func (c *Config) validateLearning() ValidationErrors {
	var errors ValidationErrors

	if c.Learning.PriorityFeePercentileMin >= c.Learning.PriorityFeePercentileMax {
		errors = append(errors, ValidationError{Field: "learning.priority_fee_percentile_min", Message: "priority_fee_percentile_min must be less than max"})
	}

	if c.Learning.MaxSlippageBpsMin >= c.Learning.MaxSlippageBpsMax {
		errors = append(errors, ValidationError{Field: "learning.max_slippage_bps_min", Message: "max_slippage_bps_min must be less than max"})
	}

	if c.Learning.PositionSizeMultiplierMin >= c.Learning.PositionSizeMultiplierMax {
		errors = append(errors, ValidationError{Field: "learning.position_size_multiplier_min", Message: "position_size_multiplier_min must be less than max"})
	}

	return errors
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	if c.API.Port < 1 || c.API.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "api.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.API.Port),
		})
	}

	return errors
}

func (c *Config) validateEnvironmentRequirements() ValidationErrors {
	var errors ValidationErrors

	if c.App.Environment == "production" {
		errors = append(errors, ValidateProductionSecrets(c)...)

		if c.Database.SSLMode == "disable" {
			errors = append(errors, ValidationError{Field: "database.ssl_mode", Message: "SSL must be enabled for database in production"})
		}
	}

	return errors
}

// ValidateAndLoad loads and validates configuration
func ValidateAndLoad(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
