package persistence

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// Pool is a known swap venue for one directed pair.
type Pool struct {
	InputMint  agentcore.TokenID
	OutputMint agentcore.TokenID
	Address    string
}

// UpsertPool records (or refreshes) the venue address for a directed pair,
// so the fetcher's configured pair set can be seeded from the database
// instead of a static config list alone.
func (s *Store) UpsertPool(ctx context.Context, p Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (input_mint, output_mint, address, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (input_mint, output_mint) DO UPDATE SET
			address = EXCLUDED.address,
			updated_at = EXCLUDED.updated_at
	`, p.InputMint.String(), p.OutputMint.String(), p.Address)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

// FetchPools returns every known pair/venue, used to seed the fetcher's
// polling set at startup.
func (s *Store) FetchPools(ctx context.Context) ([]Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT input_mint, output_mint, address FROM pools`)
	if err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}
	defer rows.Close()

	var pools []Pool
	for rows.Next() {
		var inStr, outStr, address string
		if err := rows.Scan(&inStr, &outStr, &address); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		in, err := agentcore.ParseTokenID(inStr)
		if err != nil {
			return nil, err
		}
		out, err := agentcore.ParseTokenID(outStr)
		if err != nil {
			return nil, err
		}
		pools = append(pools, Pool{InputMint: in, OutputMint: out, Address: address})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}
