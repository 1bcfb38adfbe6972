package postgres

import (
	"context"
	"fmt"
)

// Amounts are stored as text: uint256 values do not fit in any native
// numeric column without loss.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pool_liquidity_events (
		id BIGSERIAL PRIMARY KEY,
		pool_address TEXT NOT NULL,
		event_type TEXT NOT NULL,
		token0_amount TEXT NOT NULL,
		token1_amount TEXT NOT NULL,
		provider_address TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		block_time BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_swaps (
		id BIGSERIAL PRIMARY KEY,
		pool_address TEXT NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount0_in TEXT NOT NULL,
		amount1_in TEXT NOT NULL,
		amount0_out TEXT NOT NULL,
		amount1_out TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		block_time BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_fee_claims (
		id BIGSERIAL PRIMARY KEY,
		pool_address TEXT NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		token0_fee TEXT NOT NULL,
		token1_fee TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		block_time BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS indexer_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_block BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_pool_time ON pool_liquidity_events (pool_address, block_time)`,
	`CREATE INDEX IF NOT EXISTS idx_swaps_pool_time ON pool_swaps (pool_address, block_time)`,
	`CREATE INDEX IF NOT EXISTS idx_claims_pool_time ON pool_fee_claims (pool_address, block_time)`,
}

// EnsureSchema creates the event tables and checkpoint row holder if
// they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
