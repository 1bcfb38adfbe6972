package indexer

import "testing"

func TestParsePools(t *testing.T) {
	pools, err := ParsePools([]string{
		"0x9c2B9d4dE532AF6F8b3425b150f94Ba72a63cBcA",
		"  0x0000000000000000000000000000000000000001  ",
		"",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("pools = %d, want 2", len(pools))
	}
	if pools[0].Hex() != "0x9c2B9d4dE532AF6F8b3425b150f94Ba72a63cBcA" {
		t.Fatalf("pool 0 = %s", pools[0].Hex())
	}
}

func TestParsePoolsInvalid(t *testing.T) {
	if _, err := ParsePools([]string{"not-an-address"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
