package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"poolscope/internal/analytics"
	"poolscope/internal/chain"
	"poolscope/internal/config"
	"poolscope/internal/dex"
	"poolscope/internal/market"
	"poolscope/internal/storage/postgres"
)

// Aerodrome pool factory on Base.
const defaultFactoryAddress = "0x420dd381b31aef6683db6b902084cb0ffece40da"

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the latest add/remove/claim for a pool",
		RunE:  runActivity,
	}
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Int("hours", 48, "lookback window in hours")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runActivity(cmd *cobra.Command, _ []string) error {
	return withReader(cmd, func(ctx context.Context, cfg config.QueryConfig, reader *analytics.Reader) error {
		activity, err := reader.RecentActivity(ctx, cfg.Pool, cfg.Hours)
		if err != nil {
			return err
		}

		fmt.Printf("Pool %s, last %dh:\n", cfg.Pool, cfg.Hours)
		printed := false
		for _, line := range []*string{activity.LatestAdd, activity.LatestRemove, activity.LatestClaim} {
			if line != nil {
				fmt.Println("  " + *line)
				printed = true
			}
		}
		if !printed {
			fmt.Println("  no activity")
		}
		return nil
	})
}

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Show the replayed liquidity curve for a pool",
		RunE:  runLiquidity,
	}
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Int("days", 7, "lookback window in days")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runLiquidity(cmd *cobra.Command, _ []string) error {
	return withReader(cmd, func(ctx context.Context, cfg config.QueryConfig, reader *analytics.Reader) error {
		points, err := reader.LiquidityTimeseries(ctx, cfg.Pool, cfg.Days)
		if err != nil {
			return err
		}

		for _, point := range points {
			fmt.Printf("%s\ttoken0 %s\ttoken1 %s\n", point.Time.Format("2006-01-02 15:04:05"), point.Balance0, point.Balance1)
		}
		return nil
	})
}

func newVolumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Show hourly swap volume for a pool",
		RunE:  runVolume,
	}
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("token0", "", "token0 address")
	cmd.Flags().String("token1", "", "token1 address")
	cmd.Flags().Int("days", 7, "lookback window in days")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runVolume(cmd *cobra.Command, _ []string) error {
	return withReader(cmd, func(ctx context.Context, cfg config.QueryConfig, reader *analytics.Reader) error {
		if !common.IsHexAddress(cfg.Token0) {
			return fmt.Errorf("invalid token0 address: %s", cfg.Token0)
		}
		if !common.IsHexAddress(cfg.Token1) {
			return fmt.Errorf("invalid token1 address: %s", cfg.Token1)
		}

		points, err := reader.SwapVolumeTimeseries(ctx, cfg.Pool,
			common.HexToAddress(cfg.Token0), common.HexToAddress(cfg.Token1), cfg.Days)
		if err != nil {
			return err
		}

		for _, point := range points {
			fmt.Printf("%s\tvolume0 %s\tvolume1 %s\n", point.HourStart.Format("2006-01-02 15:04"), point.Volume0, point.Volume1)
		}
		return nil
	})
}

func newFeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Read pool fee percentages from the factory",
		RunE:  runFees,
	}
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("factory", defaultFactoryAddress, "factory contract address")
	cmd.Flags().Bool("stable", false, "query the stable fee tier")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runFees(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
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
	if !common.IsHexAddress(cfg.Factory) {
		return fmt.Errorf("invalid factory address: %s", cfg.Factory)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	feeReader := dex.NewFeeReader(chainClient, common.HexToAddress(cfg.Factory), logger)

	defaults := feeReader.Defaults(ctx)
	fmt.Printf("Default fees: stable %s%%, volatile %s%%\n", defaults.StablePct, defaults.VolatilePct)

	if cfg.Pool != "" {
		if !common.IsHexAddress(cfg.Pool) {
			return fmt.Errorf("invalid pool address: %s", cfg.Pool)
		}
		pct, err := feeReader.PoolFee(ctx, common.HexToAddress(cfg.Pool), cfg.Stable)
		if err != nil {
			return fmt.Errorf("pool fee: %w", err)
		}
		fmt.Printf("Pool %s fee: %s%%\n", cfg.Pool, pct)
	}

	return nil
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch a live market snapshot for a pool from DexScreener",
		RunE:  runSnapshot,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("chain", "base", "DexScreener chain id")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Pool == "" {
		return fmt.Errorf("pool address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, err := market.NewClient(logger).FetchPair(ctx, cfg.Chain, cfg.Pool)
	if err != nil {
		return err
	}
	if snapshot == nil {
		fmt.Println("no pair data")
		return nil
	}

	fmt.Printf("%s on %s (%s)\n", snapshot.PairName, snapshot.Dex, snapshot.Chain)
	fmt.Printf("  price $%.6f, liquidity $%.2f\n", snapshot.PriceUSD, snapshot.LiquidityUSD)
	fmt.Printf("  volume 24h $%.2f / 6h $%.2f / 1h $%.2f\n", snapshot.Volume24hUSD, snapshot.Volume6hUSD, snapshot.Volume1hUSD)
	fmt.Printf("  txns 24h %d / 6h %d / 1h %d\n", snapshot.Tx24hCount, snapshot.Tx6hCount, snapshot.Tx1hCount)
	return nil
}

// withReader wires the store, chain client, and reconstructor for the
// read-side commands.
func withReader(cmd *cobra.Command, fn func(context.Context, config.QueryConfig, *analytics.Reader) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %s", cfg.Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	var decimals analytics.DecimalsSource
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		decimals = dex.NewDecimalsResolver(chainClient, logger)
	} else {
		decimals = fallbackDecimals{}
	}

	reader := analytics.NewReader(store, decimals, logger)
	return fn(ctx, cfg, reader)
}

// fallbackDecimals serves queries without an RPC endpoint; every token
// resolves to the fallback value.
type fallbackDecimals struct{}

func (fallbackDecimals) Decimals(context.Context, common.Address) uint8 {
	return dex.FallbackDecimals
}
