package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolscope/internal/model"
)

// EventKind names one of the four tracked pool events.
type EventKind string

const (
	EventMint  EventKind = "Mint"
	EventBurn  EventKind = "Burn"
	EventSwap  EventKind = "Swap"
	EventClaim EventKind = "Claim"
)

// EventKinds returns all tracked kinds in scan order.
func EventKinds() []EventKind {
	return []EventKind{EventMint, EventBurn, EventSwap, EventClaim}
}

// Topic0 returns the event signature hash for the kind.
func (k EventKind) Topic0() (common.Hash, error) {
	parsed, err := PoolABI()
	if err != nil {
		return common.Hash{}, err
	}
	event, ok := parsed.Events[string(k)]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown event kind: %s", k)
	}
	return event.ID, nil
}

// BlockTimeSource resolves a block number to its timestamp.
type BlockTimeSource interface {
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// PoolDecoder converts raw pool logs into typed records. Every decode
// resolves the originating block's timestamp through the time source,
// one lookup per log.
type PoolDecoder struct {
	poolABI abi.ABI
	times   BlockTimeSource
}

// NewPoolDecoder builds a decoder over the given time source.
func NewPoolDecoder(times BlockTimeSource) (*PoolDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	if times == nil {
		return nil, fmt.Errorf("block time source is nil")
	}
	return &PoolDecoder{poolABI: parsed, times: times}, nil
}

// DecodeLiquidity decodes a Mint or Burn log into a LiquidityEvent.
func (d *PoolDecoder) DecodeLiquidity(ctx context.Context, kind EventKind, log types.Log) (model.LiquidityEvent, error) {
	if kind != EventMint && kind != EventBurn {
		return model.LiquidityEvent{}, fmt.Errorf("not a liquidity event kind: %s", kind)
	}

	event := d.poolABI.Events[string(kind)]
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.LiquidityEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	if len(values) != 3 {
		return model.LiquidityEvent{}, fmt.Errorf("unexpected %s values: %d", kind, len(values))
	}
	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.LiquidityEvent{}, err
	}

	ts, err := d.times.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}

	liquidityKind := model.LiquidityAdd
	if kind == EventBurn {
		liquidityKind = model.LiquidityRemove
	}

	return model.LiquidityEvent{
		PoolAddress:     strings.ToLower(log.Address.Hex()),
		Kind:            liquidityKind,
		Token0Amount:    amount0.String(),
		Token1Amount:    amount1.String(),
		ProviderAddress: indexed.Sender.Hex(),
		TxHash:          log.TxHash.Hex(),
		BlockNumber:     log.BlockNumber,
		BlockTime:       ts,
	}, nil
}

// DecodeSwap decodes a Swap log into a SwapEvent.
func (d *PoolDecoder) DecodeSwap(ctx context.Context, log types.Log) (model.SwapEvent, error) {
	event := d.poolABI.Events[string(EventSwap)]
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.SwapEvent{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEvent{}, err
	}
	if len(values) != 4 {
		return model.SwapEvent{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amounts := make([]*big.Int, 0, 4)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.SwapEvent{}, err
		}
		amounts = append(amounts, amount)
	}

	ts, err := d.times.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}

	return model.SwapEvent{
		PoolAddress: strings.ToLower(log.Address.Hex()),
		Sender:      indexed.Sender.Hex(),
		Recipient:   indexed.Recipient.Hex(),
		Amount0In:   amounts[0].String(),
		Amount1In:   amounts[1].String(),
		Amount0Out:  amounts[2].String(),
		Amount1Out:  amounts[3].String(),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		BlockTime:   ts,
	}, nil
}

// DecodeClaim decodes a Claim log into a FeeClaim.
func (d *PoolDecoder) DecodeClaim(ctx context.Context, log types.Log) (model.FeeClaim, error) {
	event := d.poolABI.Events[string(EventClaim)]
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.FeeClaim{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.FeeClaim{}, err
	}
	if len(values) != 2 {
		return model.FeeClaim{}, fmt.Errorf("unexpected claim values: %d", len(values))
	}
	fee0, err := asBigInt(values[0])
	if err != nil {
		return model.FeeClaim{}, err
	}
	fee1, err := asBigInt(values[1])
	if err != nil {
		return model.FeeClaim{}, err
	}

	ts, err := d.times.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return model.FeeClaim{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}

	return model.FeeClaim{
		PoolAddress: strings.ToLower(log.Address.Hex()),
		Sender:      indexed.Sender.Hex(),
		Recipient:   indexed.Recipient.Hex(),
		Token0Fee:   fee0.String(),
		Token1Fee:   fee1.String(),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		BlockTime:   ts,
	}, nil
}

func parseIndexed(out interface{}, event abi.Event, log types.Log) error {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return fmt.Errorf("topic0 mismatch for %s: %s", event.Name, log.Topics[0].Hex())
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
