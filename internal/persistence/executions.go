package persistence

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

const (
	statusFilled = "filled"
	statusFailed = "failed"
)

// RecordExecution persists one ExecutionResult, keyed by plan id, so the
// existing metrics updater's win-rate/P&L queries against the executions
// table have real rows to read. realizedPnL is the caller's own profit
// estimate for the trade (the core pipeline itself only measures execution
// quality, not realized P&L, which depends on the bucket's full position
// history).
func (s *Store) RecordExecution(ctx context.Context, result agentcore.ExecutionResult, realizedPnL float64) error {
	status := statusFailed
	if result.Success {
		status = statusFilled
	}

	var slippage *int
	if result.ActualSlippageBps != nil {
		v := int(*result.ActualSlippageBps)
		slippage = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO executions (plan_id, strategy_tag, status, tx_signature, execution_time_ms, slippage_bps, realized_pnl, error_message, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (plan_id) DO UPDATE SET
			status = EXCLUDED.status,
			tx_signature = EXCLUDED.tx_signature,
			execution_time_ms = EXCLUDED.execution_time_ms,
			slippage_bps = EXCLUDED.slippage_bps,
			realized_pnl = EXCLUDED.realized_pnl,
			error_message = EXCLUDED.error_message,
			executed_at = EXCLUDED.executed_at
	`,
		result.PlanID, string(result.StrategyTag), status, result.TransactionSignature,
		result.ExecutionTimeMs, slippage, realizedPnL, result.ErrorMessage, result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// UpsertPosition persists the current state of one open position, keyed by
// token mint.
func (s *Store) UpsertPosition(ctx context.Context, pos agentcore.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (token_id, quantity, entry_price, current_price, unrealized_pnl, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, 'open', $6)
		ON CONFLICT (token_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			entry_price = EXCLUDED.entry_price,
			current_price = EXCLUDED.current_price,
			unrealized_pnl = EXCLUDED.unrealized_pnl
	`, pos.Mint.String(), pos.Amount, pos.EntryPrice, pos.CurrentPrice, pos.UnrealizedPnL, pos.OpenedAt)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// ClosePosition marks a position closed once it has been fully evicted or
// unwound, matching the status column the metrics updater filters on.
func (s *Store) ClosePosition(ctx context.Context, mint agentcore.TokenID) error {
	_, err := s.pool.Exec(ctx, `UPDATE positions SET status = 'closed' WHERE token_id = $1`, mint.String())
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	return nil
}

// FetchTokenMints returns every token mint worth monitoring: every mint with
// an open position plus every mint referenced by a known pool. It satisfies
// observer.TokenMintsSource.
func (s *Store) FetchTokenMints(ctx context.Context) ([]agentcore.TokenID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_id FROM positions WHERE status = 'open'
		UNION
		SELECT input_mint FROM pools
		UNION
		SELECT output_mint FROM pools
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch token mints: %w", err)
	}
	defer rows.Close()

	var mints []agentcore.TokenID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan token mint: %w", err)
		}
		mint, err := agentcore.ParseTokenID(raw)
		if err != nil {
			return nil, err
		}
		mints = append(mints, mint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token mints: %w", err)
	}
	return mints, nil
}
