package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// FallbackDecimals is used when a token's decimals() call fails.
const FallbackDecimals uint8 = 18

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DecimalsResolver maps token addresses to display-decimal counts.
// The first lookup per token queries the contract; the result, or the
// fallback on any failure, is cached until Invalidate is called.
type DecimalsResolver struct {
	caller ContractCaller
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]uint8
}

// NewDecimalsResolver builds a resolver over the given caller.
func NewDecimalsResolver(caller ContractCaller, logger *zap.Logger) *DecimalsResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecimalsResolver{
		caller: caller,
		logger: logger,
		cache:  make(map[common.Address]uint8),
	}
}

// Decimals returns the token's decimal count. Failures are logged and
// resolved to the fallback value, which is cached like a success.
func (r *DecimalsResolver) Decimals(ctx context.Context, token common.Address) uint8 {
	r.mu.RLock()
	decimals, ok := r.cache[token]
	r.mu.RUnlock()
	if ok {
		return decimals
	}

	decimals, err := r.fetch(ctx, token)
	if err != nil {
		r.logger.Warn("decimals lookup failed, using fallback",
			zap.String("token", token.Hex()),
			zap.Uint8("fallback", FallbackDecimals),
			zap.Error(err),
		)
		decimals = FallbackDecimals
	}

	r.mu.Lock()
	r.cache[token] = decimals
	r.mu.Unlock()

	return decimals
}

// Invalidate drops a cached entry so the next lookup queries again.
func (r *DecimalsResolver) Invalidate(token common.Address) {
	r.mu.Lock()
	delete(r.cache, token)
	r.mu.Unlock()
}

func (r *DecimalsResolver) fetch(ctx context.Context, token common.Address) (uint8, error) {
	if r.caller == nil {
		return 0, fmt.Errorf("contract caller is nil")
	}

	parsed, err := ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}

	data, err := parsed.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}

	values, err := parsed.Unpack("decimals", resp)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("decimals return size %d", len(values))
	}

	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return decimals, nil
}
