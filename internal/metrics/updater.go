package metrics

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Updater periodically updates gauge metrics from the database that aren't
// naturally updated inline by the pipeline (total P&L, win rate, open-position
// count and values, DB pool connections). It also computes a 30-day Sharpe
// ratio, which is not exported as a metric.
type Updater struct {
	db              *pgxpool.Pool
	interval        time.Duration
	initialCapital  float64
	stopCh          chan struct{}
}

// NewUpdater creates a new metrics updater
func NewUpdater(db *pgxpool.Pool, interval time.Duration, initialCapital float64) *Updater {
	return &Updater{
		db:             db,
		interval:       interval,
		initialCapital: initialCapital,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the metrics update loop
func (u *Updater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update(ctx)

	for {
		select {
		case <-ticker.C:
			u.update(ctx)
		case <-u.stopCh:
			log.Info().Msg("Metrics updater stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Metrics updater context cancelled")
			return
		}
	}
}

// Stop stops the metrics updater
func (u *Updater) Stop() {
	close(u.stopCh)
}

func (u *Updater) update(ctx context.Context) {
	log.Debug().Msg("Updating metrics from database")

	u.updateTradingMetrics(ctx)
	u.updatePositionMetrics(ctx)
	u.updateDatabaseMetrics()

	log.Debug().Msg("Metrics updated successfully")
}

func (u *Updater) updateTradingMetrics(ctx context.Context) {
	var totalPnL float64
	var totalTrades, winningTrades int64

	query := `
		SELECT
			COALESCE(SUM(realized_pnl), 0) as total_pnl,
			COUNT(*) as total_trades,
			COUNT(*) FILTER (WHERE realized_pnl > 0) as winning_trades
		FROM executions
		WHERE status = 'filled'
	`

	if err := u.db.QueryRow(ctx, query).Scan(&totalPnL, &totalTrades, &winningTrades); err != nil {
		log.Error().Err(err).Msg("Failed to fetch trading metrics")
		return
	}

	TotalPnL.Set(totalPnL)

	if totalTrades > 0 {
		WinRate.Set(float64(winningTrades) / float64(totalTrades))
	} else {
		WinRate.Set(0)
	}

	u.updateSharpeRatio(ctx)
}

func (u *Updater) updateSharpeRatio(ctx context.Context) (sharpe float64) {
	query := `
		SELECT
			DATE(executed_at) as trade_date,
			SUM(realized_pnl) as daily_pnl
		FROM executions
		WHERE status = 'filled' AND executed_at >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(executed_at)
		ORDER BY trade_date
	`

	rows, err := u.db.Query(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to calculate Sharpe ratio")
		return 0
	}
	defer rows.Close()

	var returns []float64
	capital := u.initialCapital
	if capital <= 0 {
		capital = 10000.0
	}

	for rows.Next() {
		var date time.Time
		var pnl float64
		if err := rows.Scan(&date, &pnl); err != nil {
			continue
		}
		returns = append(returns, pnl/capital)
	}

	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev > 0 {
		sharpe = mean / stdDev * math.Sqrt(252)
	}
	return sharpe
}

func (u *Updater) updatePositionMetrics(ctx context.Context) {
	var openCount int64
	if err := u.db.QueryRow(ctx, `SELECT COUNT(*) FROM positions WHERE status = 'open'`).Scan(&openCount); err == nil {
		OpenPositions.Set(float64(openCount))
	}

	rows, err := u.db.Query(ctx, `
		SELECT token_id, quantity * entry_price AS value
		FROM positions
		WHERE status = 'open'
	`)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch position values")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		var value float64
		if err := rows.Scan(&token, &value); err != nil {
			continue
		}
		UpdatePositionValue(token, value)
	}
}

func (u *Updater) updateDatabaseMetrics() {
	stat := u.db.Stat()
	UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
}
