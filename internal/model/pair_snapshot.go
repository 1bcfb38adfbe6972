package model

// PairSnapshot is a point-in-time market snapshot for a pool fetched
// from an external aggregator. Display data only; floats are fine
// here, unlike event amounts.
type PairSnapshot struct {
	PairAddress     string  `json:"pair_address"`
	Dex             string  `json:"dex"`
	Chain           string  `json:"chain"`
	PairName        string  `json:"pair_name"`
	Token0Symbol    string  `json:"token0_symbol"`
	Token0Address   string  `json:"token0_address"`
	Token1Symbol    string  `json:"token1_symbol"`
	Token1Address   string  `json:"token1_address"`
	PriceUSD        float64 `json:"price_usd"`
	LiquidityUSD    float64 `json:"liquidity_usd"`
	LiquidityToken0 float64 `json:"liquidity_token0"`
	LiquidityToken1 float64 `json:"liquidity_token1"`
	Volume24hUSD    float64 `json:"volume_24h_usd"`
	Volume6hUSD     float64 `json:"volume_6h_usd"`
	Volume1hUSD     float64 `json:"volume_1h_usd"`
	Tx24hCount      int     `json:"tx_24h_count"`
	Tx6hCount       int     `json:"tx_6h_count"`
	Tx1hCount       int     `json:"tx_1h_count"`
}
