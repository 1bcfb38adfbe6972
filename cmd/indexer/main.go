package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolscope/internal/chain"
	"poolscope/internal/config"
	"poolscope/internal/dex"
	"poolscope/internal/indexer"
	"poolscope/internal/storage"
	"poolscope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "poolscope",
		Short:        "Aerodrome pool event indexer and analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Run one catch-up indexing pass over the configured pools",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("rpc", "", "chain RPC URL")
	indexCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	indexCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	indexCmd.Flags().Uint64("window-size", 5000, "blocks per window")
	indexCmd.Flags().Uint64("lookback", 200_000, "bootstrap lookback in blocks")
	indexCmd.Flags().Int("max-retries", 5, "maximum retry attempts per log fetch")
	indexCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	indexCmd.Flags().String("journal", "", "optional JSONL audit journal path")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)
	root.AddCommand(newActivityCmd())
	root.AddCommand(newLiquidityCmd())
	root.AddCommand(newVolumeCmd())
	root.AddCommand(newFeesCmd())
	root.AddCommand(newSnapshotCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	pools, err := indexer.ParsePools(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	decoder, err := dex.NewPoolDecoder(chainClient)
	if err != nil {
		return err
	}

	var journal *storage.Journal
	if cfg.Journal != "" {
		journal = storage.NewJournal(cfg.Journal)
	}

	runner, err := indexer.NewRunner(indexer.RunConfig{
		Pools:          pools,
		WindowSize:     cfg.WindowSize,
		LookbackBlocks: cfg.LookbackBlocks,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
	}, chainClient, store, decoder, journal, logger)
	if err != nil {
		return err
	}

	logger.Info("index start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("pools", len(pools)),
		zap.Uint64("window_size", cfg.WindowSize),
		zap.Uint64("lookback", cfg.LookbackBlocks),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	for _, skipped := range summary.Skipped {
		logger.Warn("gap",
			zap.String("pool", skipped.Pool),
			zap.String("event", string(skipped.Kind)),
			zap.Uint64("from", skipped.From),
			zap.Uint64("to", skipped.To),
			zap.String("reason", skipped.Reason),
		)
	}

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
