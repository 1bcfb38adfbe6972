package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Fallback percentages used when the factory cannot be read.
const (
	fallbackStableFeePct   = "0.05"
	fallbackVolatileFeePct = "0.30"
)

// Factory fees are in basis points of a percent.
var feePctDivisor = big.NewRat(10000, 1)

// DefaultFees holds the factory-wide fee percentages.
type DefaultFees struct {
	StablePct   string
	VolatilePct string
}

// FeeReader reads pool fee settings from the factory contract.
type FeeReader struct {
	caller  ContractCaller
	factory common.Address
	logger  *zap.Logger
}

// NewFeeReader builds a reader against the given factory address.
func NewFeeReader(caller ContractCaller, factory common.Address, logger *zap.Logger) *FeeReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeReader{caller: caller, factory: factory, logger: logger}
}

// PoolFee returns the pool's fee as a percentage string, or an error
// when the factory call fails.
func (f *FeeReader) PoolFee(ctx context.Context, pool common.Address, stable bool) (string, error) {
	values, err := f.call(ctx, "getFee", pool, stable)
	if err != nil {
		return "", err
	}
	return feePctFromValues(values)
}

// Defaults returns the factory-wide stable and volatile fees, falling
// back to the documented defaults when either call fails.
func (f *FeeReader) Defaults(ctx context.Context) DefaultFees {
	fees := DefaultFees{
		StablePct:   fallbackStableFeePct,
		VolatilePct: fallbackVolatileFeePct,
	}

	if values, err := f.call(ctx, "stableFee", true); err == nil {
		if pct, err := feePctFromValues(values); err == nil {
			fees.StablePct = pct
		}
	} else {
		f.logger.Debug("stableFee call failed", zap.Error(err))
	}

	if values, err := f.call(ctx, "volatileFee"); err == nil {
		if pct, err := feePctFromValues(values); err == nil {
			fees.VolatilePct = pct
		}
	} else {
		f.logger.Debug("volatileFee call failed", zap.Error(err))
	}

	return fees
}

func (f *FeeReader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if f.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}

	parsed, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	to := f.factory
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := f.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func feePctFromValues(values []interface{}) (string, error) {
	if len(values) != 1 {
		return "", fmt.Errorf("fee return size %d", len(values))
	}
	bps, err := asBigInt(values[0])
	if err != nil {
		return "", err
	}
	pct := new(big.Rat).SetFrac(bps, big.NewInt(1))
	pct.Quo(pct, feePctDivisor)
	return pct.FloatString(4), nil
}
