package analytics

import (
	"math/big"
	"testing"
)

func TestFormatTokenAmount(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901", 10)

	cases := []struct {
		name     string
		value    *big.Int
		decimals uint8
		want     string
	}{
		{"nil", nil, 18, "0"},
		{"zero decimals", big.NewInt(12345), 0, "12345"},
		{"whole", big.NewInt(5_000_000), 6, "5.000000"},
		{"fractional", big.NewInt(1_234_567), 6, "1.234567"},
		{"sub unit", big.NewInt(42), 6, "0.000042"},
		{"eighteen decimals", huge, 18, "123.456789012345678901"},
		{"negative", big.NewInt(-1_500_000), 6, "-1.500000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTokenAmount(tc.value, tc.decimals); got != tc.want {
				t.Fatalf("FormatTokenAmount(%v, %d) = %s, want %s", tc.value, tc.decimals, got, tc.want)
			}
		})
	}
}
