package analytics

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolscope/internal/model"
)

const secondsPerHour = 3600

// EventSource is the read side of the event store.
type EventSource interface {
	LatestLiquidityEvent(ctx context.Context, pool string, kind model.LiquidityKind, sinceTime uint64) (*model.LiquidityEvent, error)
	LatestFeeClaim(ctx context.Context, pool string, sinceTime uint64) (*model.FeeClaim, error)
	LiquidityEventsSince(ctx context.Context, pool string, sinceTime uint64) ([]model.LiquidityEvent, error)
	SwapsSince(ctx context.Context, pool string, sinceTime uint64) ([]model.SwapEvent, error)
}

// DecimalsSource resolves token display decimals.
type DecimalsSource interface {
	Decimals(ctx context.Context, token common.Address) uint8
}

// Reader derives analytics from the immutable event log. Every query
// is a stateless read over a time-bounded window; an empty window
// yields empty results, not errors.
type Reader struct {
	source   EventSource
	decimals DecimalsSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewReader builds a Reader over the store and decimals resolver.
func NewReader(source EventSource, decimals DecimalsSource, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		source:   source,
		decimals: decimals,
		logger:   logger,
		now:      time.Now,
	}
}

// RecentActivity reports the latest add, remove, and fee claim for the
// pool within the lookback window. A kind with no rows yields a nil
// entry.
func (r *Reader) RecentActivity(ctx context.Context, pool string, lookbackHours int) (model.RecentActivity, error) {
	now := r.now().UTC()
	since := uint64(now.Add(-time.Duration(lookbackHours) * time.Hour).Unix())

	activity := model.RecentActivity{PoolAddress: pool}

	add, err := r.source.LatestLiquidityEvent(ctx, pool, model.LiquidityAdd, since)
	if err != nil {
		return model.RecentActivity{}, fmt.Errorf("latest add: %w", err)
	}
	if add != nil {
		line := formatActivity("Liquidity Added", add.Token0Amount, add.Token1Amount, add.ProviderAddress, add.BlockTime, now)
		activity.LatestAdd = &line
	}

	remove, err := r.source.LatestLiquidityEvent(ctx, pool, model.LiquidityRemove, since)
	if err != nil {
		return model.RecentActivity{}, fmt.Errorf("latest remove: %w", err)
	}
	if remove != nil {
		line := formatActivity("Liquidity Removed", remove.Token0Amount, remove.Token1Amount, remove.ProviderAddress, remove.BlockTime, now)
		activity.LatestRemove = &line
	}

	claim, err := r.source.LatestFeeClaim(ctx, pool, since)
	if err != nil {
		return model.RecentActivity{}, fmt.Errorf("latest claim: %w", err)
	}
	if claim != nil {
		line := formatActivity("Fees Claimed", claim.Token0Fee, claim.Token1Fee, claim.Sender, claim.BlockTime, now)
		activity.LatestClaim = &line
	}

	return activity, nil
}

// LiquidityTimeseries replays ADD/REMOVE events inside the window with
// signed accumulators, one point per event. Balances are relative to
// the window start and are not clamped: a removal whose addition
// precedes the window drives them negative.
func (r *Reader) LiquidityTimeseries(ctx context.Context, pool string, lookbackDays int) ([]model.LiquidityPoint, error) {
	since := uint64(r.now().UTC().AddDate(0, 0, -lookbackDays).Unix())

	events, err := r.source.LiquidityEventsSince(ctx, pool, since)
	if err != nil {
		return nil, fmt.Errorf("liquidity events: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockTime < events[j].BlockTime
	})

	balance0 := big.NewInt(0)
	balance1 := big.NewInt(0)
	points := make([]model.LiquidityPoint, 0, len(events))

	for _, ev := range events {
		amount0, err := parseAmount(ev.Token0Amount)
		if err != nil {
			return nil, fmt.Errorf("token0 amount: %w", err)
		}
		amount1, err := parseAmount(ev.Token1Amount)
		if err != nil {
			return nil, fmt.Errorf("token1 amount: %w", err)
		}

		if ev.Kind == model.LiquidityAdd {
			balance0.Add(balance0, amount0)
			balance1.Add(balance1, amount1)
		} else {
			balance0.Sub(balance0, amount0)
			balance1.Sub(balance1, amount1)
		}

		points = append(points, model.LiquidityPoint{
			Time:     time.Unix(int64(ev.BlockTime), 0).UTC(),
			Balance0: new(big.Int).Set(balance0),
			Balance1: new(big.Int).Set(balance1),
		})
	}

	return points, nil
}

// SwapVolumeTimeseries aggregates gross swap volume (in + out per
// token) into hourly buckets, normalized by each token's decimals.
// Output is ascending by hour.
func (r *Reader) SwapVolumeTimeseries(ctx context.Context, pool string, token0, token1 common.Address, lookbackDays int) ([]model.VolumePoint, error) {
	since := uint64(r.now().UTC().AddDate(0, 0, -lookbackDays).Unix())

	swaps, err := r.source.SwapsSince(ctx, pool, since)
	if err != nil {
		return nil, fmt.Errorf("swaps: %w", err)
	}
	if len(swaps) == 0 {
		return []model.VolumePoint{}, nil
	}

	type bucket struct {
		volume0 *big.Int
		volume1 *big.Int
	}
	buckets := make(map[int64]*bucket)

	for _, swap := range swaps {
		raw0, err := grossVolume(swap.Amount0In, swap.Amount0Out)
		if err != nil {
			return nil, fmt.Errorf("token0 volume: %w", err)
		}
		raw1, err := grossVolume(swap.Amount1In, swap.Amount1Out)
		if err != nil {
			return nil, fmt.Errorf("token1 volume: %w", err)
		}

		hour := int64(swap.BlockTime) - int64(swap.BlockTime)%secondsPerHour
		entry := buckets[hour]
		if entry == nil {
			entry = &bucket{volume0: big.NewInt(0), volume1: big.NewInt(0)}
			buckets[hour] = entry
		}
		entry.volume0.Add(entry.volume0, raw0)
		entry.volume1.Add(entry.volume1, raw1)
	}

	hours := make([]int64, 0, len(buckets))
	for hour := range buckets {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i] < hours[j] })

	decimals0 := r.decimals.Decimals(ctx, token0)
	decimals1 := r.decimals.Decimals(ctx, token1)

	points := make([]model.VolumePoint, 0, len(hours))
	for _, hour := range hours {
		entry := buckets[hour]
		points = append(points, model.VolumePoint{
			HourStart: time.Unix(hour, 0).UTC(),
			Volume0:   FormatTokenAmount(entry.volume0, decimals0),
			Volume1:   FormatTokenAmount(entry.volume1, decimals1),
		})
	}

	return points, nil
}

func grossVolume(in, out string) (*big.Int, error) {
	amountIn, err := parseAmount(in)
	if err != nil {
		return nil, err
	}
	amountOut, err := parseAmount(out)
	if err != nil {
		return nil, err
	}
	return amountIn.Add(amountIn, amountOut), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
