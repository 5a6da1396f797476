package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// SaveStrategy upserts a strategy's configuration, keyed by id, and marks it
// active or inactive as given.
func (s *Store) SaveStrategy(ctx context.Context, id string, cfg agentcore.StrategyConfig, active bool) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal strategy config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO strategies (id, tag, config, is_active, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			tag = EXCLUDED.tag,
			config = EXCLUDED.config,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, id, string(cfg.Tag), configJSON, active)
	if err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

// FetchStrategies returns every active strategy's configuration, which the
// planner translates into its StrategyEntry set at startup.
func (s *Store) FetchStrategies(ctx context.Context) ([]agentcore.StrategyConfig, error) {
	rows, err := s.pool.Query(ctx, `SELECT config FROM strategies WHERE is_active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("fetch strategies: %w", err)
	}
	defer rows.Close()

	var configs []agentcore.StrategyConfig
	for rows.Next() {
		var configJSON []byte
		if err := rows.Scan(&configJSON); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		var cfg agentcore.StrategyConfig
		if err := json.Unmarshal(configJSON, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal strategy config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategies: %w", err)
	}
	return configs, nil
}
