package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolscope/internal/model"
)

const testPool = "0x9c2b9d4de532af6f8b3425b150f94ba72a63cbca"

// An hour boundary, so bucket assertions stay exact.
const baseTime = int64(1_700_002_800)

var (
	token0Addr = common.HexToAddress("0x0000000000000000000000000000000000000100")
	token1Addr = common.HexToAddress("0x0000000000000000000000000000000000000200")
)

type fakeSource struct {
	liquidity []model.LiquidityEvent
	claims    []model.FeeClaim
	swaps     []model.SwapEvent
}

func (s *fakeSource) LatestLiquidityEvent(_ context.Context, pool string, kind model.LiquidityKind, sinceTime uint64) (*model.LiquidityEvent, error) {
	var latest *model.LiquidityEvent
	for i := range s.liquidity {
		ev := &s.liquidity[i]
		if ev.PoolAddress != pool || ev.Kind != kind || ev.BlockTime < sinceTime {
			continue
		}
		if latest == nil || ev.BlockTime > latest.BlockTime {
			latest = ev
		}
	}
	return latest, nil
}

func (s *fakeSource) LatestFeeClaim(_ context.Context, pool string, sinceTime uint64) (*model.FeeClaim, error) {
	var latest *model.FeeClaim
	for i := range s.claims {
		claim := &s.claims[i]
		if claim.PoolAddress != pool || claim.BlockTime < sinceTime {
			continue
		}
		if latest == nil || claim.BlockTime > latest.BlockTime {
			latest = claim
		}
	}
	return latest, nil
}

func (s *fakeSource) LiquidityEventsSince(_ context.Context, pool string, sinceTime uint64) ([]model.LiquidityEvent, error) {
	var out []model.LiquidityEvent
	for _, ev := range s.liquidity {
		if ev.PoolAddress == pool && ev.BlockTime >= sinceTime {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *fakeSource) SwapsSince(_ context.Context, pool string, sinceTime uint64) ([]model.SwapEvent, error) {
	var out []model.SwapEvent
	for _, swap := range s.swaps {
		if swap.PoolAddress == pool && swap.BlockTime >= sinceTime {
			out = append(out, swap)
		}
	}
	return out, nil
}

type fakeDecimals map[common.Address]uint8

func (d fakeDecimals) Decimals(_ context.Context, token common.Address) uint8 {
	if decimals, ok := d[token]; ok {
		return decimals
	}
	return 18
}

func newTestReader(source *fakeSource, decimals DecimalsSource, now time.Time) *Reader {
	if decimals == nil {
		decimals = fakeDecimals{}
	}
	reader := NewReader(source, decimals, nil)
	reader.now = func() time.Time { return now }
	return reader
}

func TestLiquidityTimeseriesReplay(t *testing.T) {
	now := time.Unix(baseTime+1000, 0).UTC()
	source := &fakeSource{
		liquidity: []model.LiquidityEvent{
			{PoolAddress: testPool, Kind: model.LiquidityRemove, Token0Amount: "400", Token1Amount: "500", BlockTime: uint64(baseTime + 200)},
			{PoolAddress: testPool, Kind: model.LiquidityAdd, Token0Amount: "1000", Token1Amount: "2000", BlockTime: uint64(baseTime + 100)},
		},
	}
	reader := newTestReader(source, nil, now)

	points, err := reader.LiquidityTimeseries(context.Background(), testPool, 7)
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}

	if points[0].Time.Unix() != baseTime+100 || points[0].Balance0.String() != "1000" || points[0].Balance1.String() != "2000" {
		t.Fatalf("point 0 = %v %s/%s", points[0].Time.Unix(), points[0].Balance0, points[0].Balance1)
	}
	if points[1].Time.Unix() != baseTime+200 || points[1].Balance0.String() != "600" || points[1].Balance1.String() != "1500" {
		t.Fatalf("point 1 = %v %s/%s", points[1].Time.Unix(), points[1].Balance0, points[1].Balance1)
	}
}

func TestLiquidityTimeseriesGoesNegative(t *testing.T) {
	now := time.Unix(baseTime+1000, 0).UTC()
	// The matching addition happened before the window start.
	source := &fakeSource{
		liquidity: []model.LiquidityEvent{
			{PoolAddress: testPool, Kind: model.LiquidityRemove, Token0Amount: "700", Token1Amount: "50", BlockTime: uint64(baseTime + 300)},
		},
	}
	reader := newTestReader(source, nil, now)

	points, err := reader.LiquidityTimeseries(context.Background(), testPool, 7)
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1", len(points))
	}
	if points[0].Balance0.String() != "-700" || points[0].Balance1.String() != "-50" {
		t.Fatalf("balances = %s/%s, want -700/-50", points[0].Balance0, points[0].Balance1)
	}
}

func TestSwapVolumeHourlyBuckets(t *testing.T) {
	now := time.Unix(baseTime+2*3600, 0).UTC()
	source := &fakeSource{
		swaps: []model.SwapEvent{
			// Two swaps in the first hour, one in the second.
			{PoolAddress: testPool, Amount0In: "1000000", Amount1Out: "2000", BlockTime: uint64(baseTime + 10)},
			{PoolAddress: testPool, Amount0Out: "2000000", Amount1In: "3000", BlockTime: uint64(baseTime + 50)},
			{PoolAddress: testPool, Amount0In: "500000", Amount1Out: "100", BlockTime: uint64(baseTime + 3605)},
		},
	}
	decimals := fakeDecimals{token0Addr: 6, token1Addr: 0}
	reader := newTestReader(source, decimals, now)

	points, err := reader.SwapVolumeTimeseries(context.Background(), testPool, token0Addr, token1Addr, 7)
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}

	if points[0].HourStart.Unix() != baseTime {
		t.Fatalf("hour 0 = %d, want %d", points[0].HourStart.Unix(), baseTime)
	}
	if points[0].Volume0 != "3.000000" {
		t.Fatalf("volume0 = %s, want 3.000000", points[0].Volume0)
	}
	if points[0].Volume1 != "5000" {
		t.Fatalf("volume1 = %s, want 5000", points[0].Volume1)
	}

	if points[1].HourStart.Unix() != baseTime+3600 {
		t.Fatalf("hour 1 = %d, want %d", points[1].HourStart.Unix(), baseTime+3600)
	}
	if points[1].Volume0 != "0.500000" || points[1].Volume1 != "100" {
		t.Fatalf("bucket 1 = %s/%s", points[1].Volume0, points[1].Volume1)
	}
}

func TestSwapVolumeDecimalsFallback(t *testing.T) {
	now := time.Unix(baseTime+3600, 0).UTC()
	source := &fakeSource{
		swaps: []model.SwapEvent{
			{PoolAddress: testPool, Amount0In: "1000000000000000000", BlockTime: uint64(baseTime + 10)},
		},
	}
	// No entries configured, every token resolves to 18.
	reader := newTestReader(source, fakeDecimals{}, now)

	points, err := reader.SwapVolumeTimeseries(context.Background(), testPool, token0Addr, token1Addr, 7)
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1", len(points))
	}
	if points[0].Volume0 != "1.000000000000000000" {
		t.Fatalf("volume0 = %s, want 1.000000000000000000", points[0].Volume0)
	}
}

func TestEmptyWindowYieldsEmptyResults(t *testing.T) {
	now := time.Unix(baseTime, 0).UTC()
	reader := newTestReader(&fakeSource{}, nil, now)

	activity, err := reader.RecentActivity(context.Background(), testPool, 48)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if activity.LatestAdd != nil || activity.LatestRemove != nil || activity.LatestClaim != nil {
		t.Fatalf("expected no activity entries: %+v", activity)
	}

	points, err := reader.LiquidityTimeseries(context.Background(), testPool, 7)
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("liquidity points = %d, want 0", len(points))
	}

	volume, err := reader.SwapVolumeTimeseries(context.Background(), testPool, token0Addr, token1Addr, 7)
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if len(volume) != 0 {
		t.Fatalf("volume points = %d, want 0", len(volume))
	}
}

func TestRecentActivityLines(t *testing.T) {
	now := time.Unix(baseTime, 0).UTC()
	threeHoursAgo := uint64(baseTime - 3*3600)
	source := &fakeSource{
		liquidity: []model.LiquidityEvent{
			{PoolAddress: testPool, Kind: model.LiquidityAdd, Token0Amount: "1000", Token1Amount: "2000", ProviderAddress: "0xabc", BlockTime: threeHoursAgo},
		},
		claims: []model.FeeClaim{
			{PoolAddress: testPool, Token0Fee: "5", Token1Fee: "7", Sender: "0xdef", BlockTime: threeHoursAgo},
		},
	}
	reader := newTestReader(source, nil, now)

	activity, err := reader.RecentActivity(context.Background(), testPool, 48)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}

	if activity.LatestAdd == nil {
		t.Fatalf("expected an add entry")
	}
	add := *activity.LatestAdd
	if !strings.Contains(add, "Liquidity Added") || !strings.Contains(add, "token0 1000 / token1 2000") {
		t.Fatalf("add line = %q", add)
	}
	if !strings.Contains(add, "by 0xabc") || !strings.Contains(add, "(3h ago)") {
		t.Fatalf("add line = %q", add)
	}

	if activity.LatestRemove != nil {
		t.Fatalf("unexpected remove entry: %q", *activity.LatestRemove)
	}

	if activity.LatestClaim == nil {
		t.Fatalf("expected a claim entry")
	}
	if !strings.Contains(*activity.LatestClaim, "Fees Claimed") || !strings.Contains(*activity.LatestClaim, "by 0xdef") {
		t.Fatalf("claim line = %q", *activity.LatestClaim)
	}
}

func TestRecentActivityRespectsLookback(t *testing.T) {
	now := time.Unix(baseTime, 0).UTC()
	tooOld := uint64(baseTime - 100*3600)
	source := &fakeSource{
		liquidity: []model.LiquidityEvent{
			{PoolAddress: testPool, Kind: model.LiquidityAdd, Token0Amount: "1", Token1Amount: "2", BlockTime: tooOld},
		},
	}
	reader := newTestReader(source, nil, now)

	activity, err := reader.RecentActivity(context.Background(), testPool, 48)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if activity.LatestAdd != nil {
		t.Fatalf("stale event surfaced: %q", *activity.LatestAdd)
	}
}
