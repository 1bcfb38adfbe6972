package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolscope/internal/model"
)

// Store is the append-only event log plus the indexing checkpoint.
// Event rows are written once and never updated or deleted; no
// uniqueness constraint guards against re-inserting a re-scanned
// range.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres with the given DSN.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertLiquidityEvents appends a batch of liquidity events.
func (s *Store) InsertLiquidityEvents(ctx context.Context, events []model.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO pool_liquidity_events (
				pool_address, event_type, token0_amount, token1_amount,
				provider_address, tx_hash, block_number, block_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			strings.ToLower(ev.PoolAddress),
			string(ev.Kind),
			ev.Token0Amount,
			ev.Token1Amount,
			ev.ProviderAddress,
			ev.TxHash,
			int64(ev.BlockNumber),
			int64(ev.BlockTime),
		)
	}
	return execBatch(ctx, s.pool, batch, len(events))
}

// InsertSwaps appends a batch of swap events.
func (s *Store) InsertSwaps(ctx context.Context, swaps []model.SwapEvent) error {
	if len(swaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, swap := range swaps {
		batch.Queue(`
			INSERT INTO pool_swaps (
				pool_address, sender, recipient,
				amount0_in, amount1_in, amount0_out, amount1_out,
				tx_hash, block_number, block_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			strings.ToLower(swap.PoolAddress),
			swap.Sender,
			swap.Recipient,
			swap.Amount0In,
			swap.Amount1In,
			swap.Amount0Out,
			swap.Amount1Out,
			swap.TxHash,
			int64(swap.BlockNumber),
			int64(swap.BlockTime),
		)
	}
	return execBatch(ctx, s.pool, batch, len(swaps))
}

// InsertFeeClaims appends a batch of fee claims.
func (s *Store) InsertFeeClaims(ctx context.Context, claims []model.FeeClaim) error {
	if len(claims) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, claim := range claims {
		batch.Queue(`
			INSERT INTO pool_fee_claims (
				pool_address, sender, recipient, token0_fee, token1_fee,
				tx_hash, block_number, block_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			strings.ToLower(claim.PoolAddress),
			claim.Sender,
			claim.Recipient,
			claim.Token0Fee,
			claim.Token1Fee,
			claim.TxHash,
			int64(claim.BlockNumber),
			int64(claim.BlockTime),
		)
	}
	return execBatch(ctx, s.pool, batch, len(claims))
}

// LoadCheckpoint returns the last indexed block, if a checkpoint exists.
func (s *Store) LoadCheckpoint(ctx context.Context) (uint64, bool, error) {
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM indexer_state WHERE id = 1`)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveCheckpoint upserts the singleton checkpoint row.
func (s *Store) SaveCheckpoint(ctx context.Context, lastBlock uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (id, last_block) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_block = EXCLUDED.last_block
	`, int64(lastBlock))
	return err
}

// LatestLiquidityEvent returns the most recent event of the given kind
// for the pool at or after sinceTime, or nil when none matched.
func (s *Store) LatestLiquidityEvent(ctx context.Context, pool string, kind model.LiquidityKind, sinceTime uint64) (*model.LiquidityEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, event_type, token0_amount, token1_amount,
		       provider_address, tx_hash, block_number, block_time
		FROM pool_liquidity_events
		WHERE pool_address = $1 AND event_type = $2 AND block_time >= $3
		ORDER BY block_time DESC LIMIT 1
	`, strings.ToLower(pool), string(kind), int64(sinceTime))

	ev, err := scanLiquidityEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// LatestFeeClaim returns the most recent fee claim for the pool at or
// after sinceTime, or nil when none matched.
func (s *Store) LatestFeeClaim(ctx context.Context, pool string, sinceTime uint64) (*model.FeeClaim, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, sender, recipient, token0_fee, token1_fee,
		       tx_hash, block_number, block_time
		FROM pool_fee_claims
		WHERE pool_address = $1 AND block_time >= $2
		ORDER BY block_time DESC LIMIT 1
	`, strings.ToLower(pool), int64(sinceTime))

	var claim model.FeeClaim
	var blockNumber, blockTime int64
	err := row.Scan(
		&claim.PoolAddress, &claim.Sender, &claim.Recipient,
		&claim.Token0Fee, &claim.Token1Fee, &claim.TxHash,
		&blockNumber, &blockTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	claim.BlockNumber = uint64(blockNumber)
	claim.BlockTime = uint64(blockTime)
	return &claim, nil
}

// LiquidityEventsSince returns the pool's liquidity events at or after
// sinceTime, ascending by block time.
func (s *Store) LiquidityEventsSince(ctx context.Context, pool string, sinceTime uint64) ([]model.LiquidityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, event_type, token0_amount, token1_amount,
		       provider_address, tx_hash, block_number, block_time
		FROM pool_liquidity_events
		WHERE pool_address = $1 AND block_time >= $2
		ORDER BY block_time ASC
	`, strings.ToLower(pool), int64(sinceTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.LiquidityEvent, 0)
	for rows.Next() {
		ev, err := scanLiquidityEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SwapsSince returns the pool's swaps at or after sinceTime, ascending
// by block time.
func (s *Store) SwapsSince(ctx context.Context, pool string, sinceTime uint64) ([]model.SwapEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, sender, recipient,
		       amount0_in, amount1_in, amount0_out, amount1_out,
		       tx_hash, block_number, block_time
		FROM pool_swaps
		WHERE pool_address = $1 AND block_time >= $2
		ORDER BY block_time ASC
	`, strings.ToLower(pool), int64(sinceTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	swaps := make([]model.SwapEvent, 0)
	for rows.Next() {
		var swap model.SwapEvent
		var blockNumber, blockTime int64
		err := rows.Scan(
			&swap.PoolAddress, &swap.Sender, &swap.Recipient,
			&swap.Amount0In, &swap.Amount1In, &swap.Amount0Out, &swap.Amount1Out,
			&swap.TxHash, &blockNumber, &blockTime,
		)
		if err != nil {
			return nil, err
		}
		swap.BlockNumber = uint64(blockNumber)
		swap.BlockTime = uint64(blockTime)
		swaps = append(swaps, swap)
	}
	return swaps, rows.Err()
}

func scanLiquidityEvent(row pgx.Row) (model.LiquidityEvent, error) {
	var ev model.LiquidityEvent
	var kind string
	var blockNumber, blockTime int64
	err := row.Scan(
		&ev.PoolAddress, &kind, &ev.Token0Amount, &ev.Token1Amount,
		&ev.ProviderAddress, &ev.TxHash, &blockNumber, &blockTime,
	)
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	ev.Kind = model.LiquidityKind(kind)
	ev.BlockNumber = uint64(blockNumber)
	ev.BlockTime = uint64(blockTime)
	return ev, nil
}

func execBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, n int) error {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
