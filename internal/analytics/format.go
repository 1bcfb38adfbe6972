package analytics

import (
	"fmt"
	"math/big"
	"time"
)

// FormatTokenAmount renders a raw integer amount as a decimal string
// scaled down by 10^decimals, exactly.
func FormatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// formatActivity renders one activity line with a human-relative age,
// e.g. "Liquidity Added: token0 1000 / token1 2000 by 0xabc (3h ago)".
func formatActivity(label, amount0, amount1, who string, blockTime uint64, now time.Time) string {
	age := now.Unix() - int64(blockTime)
	if age < 0 {
		age = 0
	}
	hoursAgo := age / 3600
	return fmt.Sprintf("%s: token0 %s / token1 %s by %s (%dh ago)", label, amount0, amount1, who, hoursAgo)
}
