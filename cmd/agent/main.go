// Command agent is the trading agent entrypoint: it wires the fetcher,
// planner, executor, and observer stages into one supervised pipeline per
// portfolio, backed by Postgres persistence and a read-only stats/state
// HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/tradingagent/internal/advisor"
	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/api"
	"github.com/ajitpratap0/tradingagent/internal/chain"
	"github.com/ajitpratap0/tradingagent/internal/config"
	"github.com/ajitpratap0/tradingagent/internal/control"
	"github.com/ajitpratap0/tradingagent/internal/executor"
	"github.com/ajitpratap0/tradingagent/internal/fetcher"
	"github.com/ajitpratap0/tradingagent/internal/market"
	"github.com/ajitpratap0/tradingagent/internal/metrics"
	"github.com/ajitpratap0/tradingagent/internal/observer"
	"github.com/ajitpratap0/tradingagent/internal/persistence"
	"github.com/ajitpratap0/tradingagent/internal/planner"
	"github.com/ajitpratap0/tradingagent/internal/risk"
	"github.com/ajitpratap0/tradingagent/internal/strategy"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, envLogFormat(cfg.App.Environment))
	logger := config.NewAgentLogger(cfg.App.PortfolioID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validator := config.NewValidator(cfg, config.DefaultValidatorOptions())
	if err := validator.ValidateStartup(ctx); err != nil {
		log.Fatal().Err(err).Msg("startup validation failed")
	}

	store, err := persistence.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to persistence store")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure persistence schema")
	}

	pairs, err := loadPairs(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load pool pairs")
	}
	logger.Info().Int("pairs", len(pairs)).Msg("loaded pool pairs")

	cache := buildQuoteCache(cfg)

	quoteClient := fetcher.NewHTTPQuoteClient(cfg.Fetcher.QuoteAPIBaseURL, cfg.Fetcher.RequestTimeout, 0)
	priceClient := fetcher.NewHTTPPriceClient(cfg.Fetcher.PriceAPIBaseURL, cfg.Fetcher.RequestTimeout)
	fetcherStage := fetcher.New(quoteClient, priceClient, cache, pairs, cfg.Fetcher.PollInterval, logger)

	breakers := risk.NewCircuitBreakerManagerWithSettings(
		toServiceSettings(cfg.Executor.CircuitBreaker),
		toServiceSettings(cfg.Advisor.CircuitBreaker),
	)

	positions := agentcore.NewPositionStore()
	learning := agentcore.NewLearningStore(agentcore.LearningParameters{
		PriorityFeePercentile:  cfg.Learning.PriorityFeePercentileMin,
		MaxSlippageBps:         cfg.Learning.MaxSlippageBpsMin,
		PositionSizeMultiplier: 1,
	})
	bounds := agentcore.LearningBounds{
		PriorityFeePercentileMin:  cfg.Learning.PriorityFeePercentileMin,
		PriorityFeePercentileMax:  cfg.Learning.PriorityFeePercentileMax,
		MaxSlippageBpsMin:         cfg.Learning.MaxSlippageBpsMin,
		MaxSlippageBpsMax:         cfg.Learning.MaxSlippageBpsMax,
		PositionSizeMultiplierMin: cfg.Learning.PositionSizeMultiplierMin,
		PositionSizeMultiplierMax: cfg.Learning.PositionSizeMultiplierMax,
	}

	advisorClient := buildAdvisorClient(cfg, breakers)

	entries, err := loadStrategyEntries(ctx, store, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load strategy set")
	}
	plannerStage := planner.New(entries, cfg.Planner.RollingWindowSize, cfg.Planner.EvaluationInterval, positions, learning, bounds, advisorClient, logger)

	chainClient := chain.NewHTTPChainClient(cfg.Executor.ChainAPIBaseURL, cfg.Executor.TransactionTimeout)
	retryCfg := executor.RetryConfig{
		MaxAttempts:    cfg.Executor.RetryMaxAttempts,
		InitialBackoff: cfg.Executor.RetryInitialBackoff,
		MaxBackoff:     cfg.Executor.RetryMaxBackoff,
		BackoffFactor:  cfg.Executor.RetryBackoffMultiplier,
	}
	executorStage := executor.New(chainClient, breakers.ChainClient(), int64(cfg.Executor.MaxConcurrentExecutions), cfg.Executor.TransactionTimeout, retryCfg, logger)

	observerStage := observer.New(positions, cfg.Observer.HistoryCap, cfg.Observer.HistoryDrainAmount, cfg.Observer.MonitorInterval, cfg.Observer.PositionMaxAge, cache, store, logger)

	planChannelSize := cfg.Planner.PlanChannelSize
	if planChannelSize <= 0 {
		planChannelSize = 4 * cfg.Executor.MaxConcurrentExecutions
	}

	agent := agentcore.NewAgent(cfg.App.PortfolioID, fetcherStage, plannerStage, executorStage, observerStage, agentcore.ChannelSizes{
		Quote:    cfg.Fetcher.QuoteChannelSize,
		Plan:     planChannelSize,
		Result:   cfg.Executor.ResultChannelSize,
		Feedback: cfg.Observer.FeedbackChannelSize,
	}, logger)
	agent.Start(ctx)

	var controller *control.Controller
	if cfg.NATS.Enabled {
		controller, err = control.Connect(cfg.NATS.URL, cfg.NATS.Subject, agent, logger)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect nats control plane; pause/resume unavailable")
		} else {
			defer controller.Close()
		}
	}

	apiServer := api.NewServer(api.Config{
		Host:      cfg.API.Host,
		Port:      cfg.API.Port,
		Store:     store,
		Positions: positions,
		Learning:  learning,
		Executor:  executorStage,
		Observer:  observerStage,
		Paused:    agent.IsPaused,
	})
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	metricsServer := metrics.NewServer(cfg.Monitoring.PrometheusPort, logger)
	if cfg.Monitoring.EnableMetrics {
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")
	cancel()
	agent.Stop(10 * time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown error")
	}

	log.Info().Msg("agent stopped")
}

func envLogFormat(environment string) string {
	if environment == "production" {
		return "json"
	}
	return "console"
}

// loadPairs derives the fetcher's initial polling set from every known
// pool; a fresh database simply yields an empty set until pools are
// discovered and persisted some other way.
func loadPairs(ctx context.Context, store *persistence.Store) ([]agentcore.PairKey, error) {
	pools, err := store.FetchPools(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]agentcore.PairKey, 0, len(pools))
	for _, p := range pools {
		pairs = append(pairs, agentcore.PairKey{Input: p.InputMint, Output: p.OutputMint})
	}
	return pairs, nil
}

// buildQuoteCache wraps an in-memory cache with a best-effort Redis mirror
// when Redis is enabled, degrading gracefully to a plain cache otherwise.
func buildQuoteCache(cfg *config.Config) *market.RedisQuoteMirror {
	base := market.NewCache()
	if !cfg.Redis.Enabled {
		return market.NewRedisQuoteMirror(base, nil, cfg.Fetcher.StalenessWindow)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return market.NewRedisQuoteMirror(base, client, cfg.Fetcher.StalenessWindow)
}

// buildAdvisorClient returns nil when the advisor is disabled; planner.New
// treats a nil advisor.Client as "never consult the advisor".
func buildAdvisorClient(cfg *config.Config, breakers *risk.CircuitBreakerManager) advisor.Client {
	if !cfg.Advisor.Enabled {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Advisor.RateLimitPerSecond), cfg.Advisor.RateLimitBurst)
	return advisor.NewHTTPClient(cfg.Advisor.Gateway, cfg.Advisor.APIKey, cfg.Advisor.Model, cfg.Advisor.Timeout, breakers.Advisor(), limiter)
}

func toServiceSettings(s config.CircuitBreakerSettings) risk.ServiceSettings {
	return risk.ServiceSettings{
		MinRequests:     s.MinRequests,
		FailureRatio:    s.FailureRatio,
		OpenTimeout:     s.OpenTimeout,
		HalfOpenMaxReqs: s.HalfOpenMaxReqs,
		CountInterval:   s.CountInterval,
	}
}

// loadStrategyEntries builds the planner's strategy set from persisted
// configuration, falling back to the configured defaults for any tag with
// no persisted row. Only tags strategy.Factory actually constructs
// (arbitrage, grid_trading, dca) are wired; an unimplemented tag found in
// the database is logged and skipped rather than failing startup.
func loadStrategyEntries(ctx context.Context, store *persistence.Store, cfg *config.Config) (map[agentcore.StrategyTag]planner.StrategyEntry, error) {
	persisted, err := store.FetchStrategies(ctx)
	if err != nil {
		return nil, err
	}

	byTag := make(map[agentcore.StrategyTag]agentcore.StrategyConfig, len(persisted))
	for _, sc := range persisted {
		byTag[sc.Tag] = sc
	}

	defaults := defaultStrategyConfigs(cfg)
	for tag, def := range defaults {
		if _, ok := byTag[tag]; !ok {
			byTag[tag] = def
		}
	}

	entries := make(map[agentcore.StrategyTag]planner.StrategyEntry, len(byTag))
	for tag, sc := range byTag {
		impl, err := strategy.Factory(tag)
		if err != nil {
			log.Warn().Str("tag", string(tag)).Err(err).Msg("skipping strategy with no evaluator")
			continue
		}
		entries[tag] = planner.StrategyEntry{Strategy: impl, BaseConfig: sc}
	}
	return entries, nil
}

func defaultStrategyConfigs(cfg *config.Config) map[agentcore.StrategyTag]agentcore.StrategyConfig {
	return map[agentcore.StrategyTag]agentcore.StrategyConfig{
		agentcore.TagArbitrage: {
			Tag: agentcore.TagArbitrage,
			Params: agentcore.StrategyParams{
				MinSpreadBps:    cfg.Strategies.Arbitrage.MinSpreadBps,
				PositionSizeUSD: cfg.Strategies.Arbitrage.MaxPositionSizeUSD,
			},
			Risk: agentcore.RiskLimits{
				MaxPositionSizeUSD: cfg.Strategies.Arbitrage.MaxPositionSizeUSD,
			},
		},
		agentcore.TagGridTrading: {
			Tag: agentcore.TagGridTrading,
			Params: agentcore.StrategyParams{
				PositionSizeUSD: cfg.Strategies.GridTrading.OrderSizeUSD,
				LookbackPeriods: cfg.Strategies.GridTrading.GridLevels,
				Custom: map[string]float64{
					"grid_spacing_bps": float64(cfg.Strategies.GridTrading.GridSpacingBps),
				},
			},
		},
		agentcore.TagDCA: {
			Tag: agentcore.TagDCA,
			Params: agentcore.StrategyParams{
				PositionSizeUSD: cfg.Strategies.DCA.OrderSizeUSD,
			},
		},
	}
}
