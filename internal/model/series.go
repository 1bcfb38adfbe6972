package model

import (
	"math/big"
	"time"
)

// LiquidityPoint is one step of the replayed liquidity curve. Balances
// are raw token units relative to the start of the window; a removal
// observed without its prior addition can drive them negative.
type LiquidityPoint struct {
	Time     time.Time
	Balance0 *big.Int
	Balance1 *big.Int
}

// VolumePoint is one hourly swap-volume bucket. Volumes are gross
// (in + out) per token, normalized by the token's decimals and
// rendered as exact decimal strings.
type VolumePoint struct {
	HourStart time.Time
	Volume0   string
	Volume1   string
}
