package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolscope/internal/dex"
	"poolscope/internal/model"
	"poolscope/internal/storage"
)

// Defaults for checkpoint bootstrap and window partitioning.
const (
	DefaultLookbackBlocks uint64 = 200_000
	DefaultWindowSize     uint64 = 5_000
)

// ChainSource provides chain head and log queries.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// EventStore is the write side of the event log plus the checkpoint.
type EventStore interface {
	LoadCheckpoint(ctx context.Context) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, lastBlock uint64) error
	InsertLiquidityEvents(ctx context.Context, events []model.LiquidityEvent) error
	InsertSwaps(ctx context.Context, swaps []model.SwapEvent) error
	InsertFeeClaims(ctx context.Context, claims []model.FeeClaim) error
}

// Decoder converts raw logs into typed records.
type Decoder interface {
	DecodeLiquidity(ctx context.Context, kind dex.EventKind, log types.Log) (model.LiquidityEvent, error)
	DecodeSwap(ctx context.Context, log types.Log) (model.SwapEvent, error)
	DecodeClaim(ctx context.Context, log types.Log) (model.FeeClaim, error)
}

// RunConfig holds runtime settings for one indexing pass.
type RunConfig struct {
	Pools          []common.Address
	WindowSize     uint64
	LookbackBlocks uint64
	MaxRetries     int
	RetryBackoff   time.Duration
}

// SkippedRange records one (pool, window, kind) fetch or write that
// failed and was skipped. The checkpoint still advanced past it.
type SkippedRange struct {
	Pool   string
	From   uint64
	To     uint64
	Kind   dex.EventKind
	Reason string
}

// RunSummary reports what one pass covered and what it skipped.
type RunSummary struct {
	Head            uint64
	FromBlock       uint64
	ToBlock         uint64
	Windows         int
	LiquidityEvents int
	Swaps           int
	FeeClaims       int
	Skipped         []SkippedRange
}

// Runner drives one indexing pass from the checkpoint to the chain
// head. Per-range failures are skipped and reported in the summary;
// only setup, checkpoint, and context errors abort the run.
type Runner struct {
	cfg     RunConfig
	chain   ChainSource
	store   EventStore
	decoder Decoder
	journal *storage.Journal
	logger  *zap.Logger
	topics  map[dex.EventKind]common.Hash
}

// NewRunner builds a Runner with its dependencies. The journal may be
// nil.
func NewRunner(cfg RunConfig, chainSource ChainSource, store EventStore, decoder Decoder, journal *storage.Journal, logger *zap.Logger) (*Runner, error) {
	if chainSource == nil {
		return nil, fmt.Errorf("chain source is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.LookbackBlocks == 0 {
		cfg.LookbackBlocks = DefaultLookbackBlocks
	}
	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("at least one pool is required")
	}

	topics := make(map[dex.EventKind]common.Hash, 4)
	for _, kind := range dex.EventKinds() {
		topic0, err := kind.Topic0()
		if err != nil {
			return nil, err
		}
		topics[kind] = topic0
	}

	return &Runner{
		cfg:     cfg,
		chain:   chainSource,
		store:   store,
		decoder: decoder,
		journal: journal,
		logger:  logger,
		topics:  topics,
	}, nil
}

// Run executes one catch-up pass.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	head, err := r.chain.LatestBlockNumber(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("get chain head: %w", err)
	}

	lastBlock, ok, err := r.store.LoadCheckpoint(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		lastBlock = 0
		if head > r.cfg.LookbackBlocks {
			lastBlock = head - r.cfg.LookbackBlocks
		}
		if err := r.store.SaveCheckpoint(ctx, lastBlock); err != nil {
			return RunSummary{}, fmt.Errorf("seed checkpoint: %w", err)
		}
		r.logger.Info("checkpoint seeded", zap.Uint64("last_block", lastBlock), zap.Uint64("head", head))
	}

	summary := RunSummary{Head: head, FromBlock: lastBlock, ToBlock: lastBlock}

	if lastBlock >= head {
		r.logger.Info("no new blocks to index", zap.Uint64("last_block", lastBlock), zap.Uint64("head", head))
		return summary, nil
	}

	windows, err := SplitRange(lastBlock, head, r.cfg.WindowSize)
	if err != nil {
		return summary, err
	}

	for _, window := range windows {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		r.logger.Info("index window", zap.Uint64("from", window.From), zap.Uint64("to", window.To))

		for _, pool := range r.cfg.Pools {
			r.indexPool(ctx, pool, window, &summary)
		}

		if err := r.store.SaveCheckpoint(ctx, window.To); err != nil {
			return summary, fmt.Errorf("save checkpoint: %w", err)
		}
		summary.ToBlock = window.To
		summary.Windows++
	}

	r.logger.Info("run complete",
		zap.Uint64("from", summary.FromBlock),
		zap.Uint64("to", summary.ToBlock),
		zap.Int("windows", summary.Windows),
		zap.Int("liquidity_events", summary.LiquidityEvents),
		zap.Int("swaps", summary.Swaps),
		zap.Int("fee_claims", summary.FeeClaims),
		zap.Int("skipped", len(summary.Skipped)),
	)

	return summary, nil
}

// indexPool processes all four event kinds for one pool in one
// window. Failures are recorded and skipped, never propagated.
func (r *Runner) indexPool(ctx context.Context, pool common.Address, window BlockRange, summary *RunSummary) {
	for _, kind := range dex.EventKinds() {
		if err := r.indexKind(ctx, pool, kind, window, summary); err != nil {
			r.logger.Warn("skip range",
				zap.String("pool", pool.Hex()),
				zap.String("event", string(kind)),
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
				zap.Error(err),
			)
			summary.Skipped = append(summary.Skipped, SkippedRange{
				Pool:   strings.ToLower(pool.Hex()),
				From:   window.From,
				To:     window.To,
				Kind:   kind,
				Reason: err.Error(),
			})
		}
	}
}

func (r *Runner) indexKind(ctx context.Context, pool common.Address, kind dex.EventKind, window BlockRange, summary *RunSummary) error {
	logs, err := r.filterLogsWithRetry(ctx, window, pool, r.topics[kind])
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	switch kind {
	case dex.EventMint, dex.EventBurn:
		events := make([]model.LiquidityEvent, 0, len(logs))
		for _, log := range logs {
			ev, err := r.decoder.DecodeLiquidity(ctx, kind, log)
			if err != nil {
				return fmt.Errorf("decode %s: %w", kind, err)
			}
			events = append(events, ev)
		}
		if err := r.store.InsertLiquidityEvents(ctx, events); err != nil {
			return fmt.Errorf("store liquidity events: %w", err)
		}
		summary.LiquidityEvents += len(events)
		r.journalRecords(liquidityRecords(events))

	case dex.EventSwap:
		swaps := make([]model.SwapEvent, 0, len(logs))
		for _, log := range logs {
			swap, err := r.decoder.DecodeSwap(ctx, log)
			if err != nil {
				return fmt.Errorf("decode swap: %w", err)
			}
			swaps = append(swaps, swap)
		}
		if err := r.store.InsertSwaps(ctx, swaps); err != nil {
			return fmt.Errorf("store swaps: %w", err)
		}
		summary.Swaps += len(swaps)
		r.journalRecords(swapRecords(swaps))

	case dex.EventClaim:
		claims := make([]model.FeeClaim, 0, len(logs))
		for _, log := range logs {
			claim, err := r.decoder.DecodeClaim(ctx, log)
			if err != nil {
				return fmt.Errorf("decode claim: %w", err)
			}
			claims = append(claims, claim)
		}
		if err := r.store.InsertFeeClaims(ctx, claims); err != nil {
			return fmt.Errorf("store fee claims: %w", err)
		}
		summary.FeeClaims += len(claims)
		r.journalRecords(claimRecords(claims))
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, window BlockRange, pool common.Address, topic0 common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, window.From, window.To, []common.Address{pool}, []common.Hash{topic0})
		if err != nil {
			r.logger.Warn("filter logs failed",
				zap.Error(err),
				zap.String("pool", pool.Hex()),
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
			)
		}
		return err
	})
	return logs, err
}

// journalRecords mirrors appended rows to the audit journal. Journal
// failures never affect the run.
func (r *Runner) journalRecords(records []interface{}) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Append(records...); err != nil {
		r.logger.Warn("journal append failed", zap.Error(err))
	}
}

func liquidityRecords(events []model.LiquidityEvent) []interface{} {
	records := make([]interface{}, 0, len(events))
	for _, ev := range events {
		records = append(records, ev)
	}
	return records
}

func swapRecords(swaps []model.SwapEvent) []interface{} {
	records := make([]interface{}, 0, len(swaps))
	for _, swap := range swaps {
		records = append(records, swap)
	}
	return records
}

func claimRecords(claims []model.FeeClaim) []interface{} {
	records := make([]interface{}, 0, len(claims))
	for _, claim := range claims {
		records = append(records, claim)
	}
	return records
}
