package model

// LiquidityKind distinguishes additions from removals.
type LiquidityKind string

const (
	LiquidityAdd    LiquidityKind = "ADD"
	LiquidityRemove LiquidityKind = "REMOVE"
)

// LiquidityEvent is one Mint or Burn observed on a pool. Amounts are
// decimal strings to carry uint256 values losslessly.
type LiquidityEvent struct {
	PoolAddress     string        `json:"pool_address"`
	Kind            LiquidityKind `json:"event_type"`
	Token0Amount    string        `json:"token0_amount"`
	Token1Amount    string        `json:"token1_amount"`
	ProviderAddress string        `json:"provider_address"`
	TxHash          string        `json:"tx_hash"`
	BlockNumber     uint64        `json:"block_number"`
	BlockTime       uint64        `json:"block_time"`
}

// SwapEvent is one decoded Swap.
type SwapEvent struct {
	PoolAddress string `json:"pool_address"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Amount0In   string `json:"amount0_in"`
	Amount1In   string `json:"amount1_in"`
	Amount0Out  string `json:"amount0_out"`
	Amount1Out  string `json:"amount1_out"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	BlockTime   uint64 `json:"block_time"`
}

// FeeClaim is one decoded Claim of accumulated trading fees.
type FeeClaim struct {
	PoolAddress string `json:"pool_address"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Token0Fee   string `json:"token0_fee"`
	Token1Fee   string `json:"token1_fee"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	BlockTime   uint64 `json:"block_time"`
}
