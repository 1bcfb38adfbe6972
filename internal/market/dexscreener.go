package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"poolscope/internal/model"
)

// DefaultBaseURL is the DexScreener pairs endpoint.
const DefaultBaseURL = "https://api.dexscreener.com/latest/dex/pairs"

// Client fetches live market snapshots from DexScreener.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient builds a client with the aggregator's defaults.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		maxRetries: 2,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// WithBaseURL overrides the endpoint, for tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type pairResponse struct {
	Pairs []pairPayload `json:"pairs"`
}

type pairPayload struct {
	PairAddress string       `json:"pairAddress"`
	DexID       string       `json:"dexId"`
	ChainID     string       `json:"chainId"`
	PriceUSD    string       `json:"priceUsd"`
	BaseToken   tokenPayload `json:"baseToken"`
	QuoteToken  tokenPayload `json:"quoteToken"`
	Liquidity   struct {
		USD   float64 `json:"usd"`
		Base  float64 `json:"base"`
		Quote float64 `json:"quote"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
		H6  float64 `json:"h6"`
		H1  float64 `json:"h1"`
	} `json:"volume"`
	Txns map[string]txWindow `json:"txns"`
}

type tokenPayload struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type txWindow struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// FetchPair returns the first pair snapshot for the pool, or nil when
// the aggregator knows nothing about it.
func (c *Client) FetchPair(ctx context.Context, chain, poolAddress string) (*model.PairSnapshot, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, chain, poolAddress)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		snapshot, err := c.fetchOnce(ctx, url)
		if err != nil {
			lastErr = err
			c.logger.Warn("pair fetch failed", zap.String("pool", poolAddress), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return snapshot, nil
	}

	return nil, fmt.Errorf("fetch pair %s: %w", poolAddress, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*model.PairSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Pairs) == 0 {
		return nil, nil
	}

	return buildSnapshot(payload.Pairs[0]), nil
}

func buildSnapshot(pair pairPayload) *model.PairSnapshot {
	price, _ := strconv.ParseFloat(pair.PriceUSD, 64)

	baseSymbol := pair.BaseToken.Symbol
	if baseSymbol == "" {
		baseSymbol = "UNK"
	}
	quoteSymbol := pair.QuoteToken.Symbol
	if quoteSymbol == "" {
		quoteSymbol = "UNK"
	}

	return &model.PairSnapshot{
		PairAddress:     pair.PairAddress,
		Dex:             pair.DexID,
		Chain:           pair.ChainID,
		PairName:        baseSymbol + "/" + quoteSymbol,
		Token0Symbol:    baseSymbol,
		Token0Address:   pair.BaseToken.Address,
		Token1Symbol:    quoteSymbol,
		Token1Address:   pair.QuoteToken.Address,
		PriceUSD:        price,
		LiquidityUSD:    pair.Liquidity.USD,
		LiquidityToken0: pair.Liquidity.Base,
		LiquidityToken1: pair.Liquidity.Quote,
		Volume24hUSD:    pair.Volume.H24,
		Volume6hUSD:     pair.Volume.H6,
		Volume1hUSD:     pair.Volume.H1,
		Tx24hCount:      txCount(pair.Txns, "h24"),
		Tx6hCount:       txCount(pair.Txns, "h6"),
		Tx1hCount:       txCount(pair.Txns, "h1"),
	}
}

func txCount(txns map[string]txWindow, window string) int {
	entry, ok := txns[window]
	if !ok {
		return 0
	}
	return entry.Buys + entry.Sells
}
