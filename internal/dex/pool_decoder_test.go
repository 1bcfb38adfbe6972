package dex

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	poolAddr   = common.HexToAddress("0x9c2B9d4dE532AF6F8b3425b150f94Ba72a63cBcA")
	senderAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	toAddr     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	txHash     = common.HexToHash("0xdeadbeef")
)

type fixedTimes struct {
	ts  uint64
	err error
}

func (f fixedTimes) BlockTimestamp(_ context.Context, _ uint64) (uint64, error) {
	return f.ts, f.err
}

func newTestDecoder(t *testing.T, times BlockTimeSource) *PoolDecoder {
	t.Helper()
	decoder, err := NewPoolDecoder(times)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return decoder
}

// buildLog packs a pool event the way the node would emit it.
func buildLog(t *testing.T, kind EventKind, topics []common.Hash, values ...interface{}) types.Log {
	t.Helper()

	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("pool abi: %v", err)
	}
	event, ok := parsed.Events[string(kind)]
	if !ok {
		t.Fatalf("unknown event %s", kind)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s data: %v", kind, err)
	}

	return types.Log{
		Address:     poolAddr,
		Topics:      append([]common.Hash{event.ID}, topics...),
		Data:        data,
		BlockNumber: 1234,
		TxHash:      txHash,
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func TestDecodeMint(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 1_700_000_000})

	log := buildLog(t, EventMint,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big.NewInt(1000), big.NewInt(2000), big.NewInt(500),
	)

	ev, err := decoder.DecodeLiquidity(context.Background(), EventMint, log)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}

	if ev.Kind != "ADD" {
		t.Fatalf("kind = %s, want ADD", ev.Kind)
	}
	if ev.PoolAddress != "0x9c2b9d4de532af6f8b3425b150f94ba72a63cbca" {
		t.Fatalf("pool address not lowercased: %s", ev.PoolAddress)
	}
	if ev.Token0Amount != "1000" || ev.Token1Amount != "2000" {
		t.Fatalf("amounts = %s/%s, want 1000/2000", ev.Token0Amount, ev.Token1Amount)
	}
	if ev.ProviderAddress != senderAddr.Hex() {
		t.Fatalf("provider = %s, want sender", ev.ProviderAddress)
	}
	if ev.BlockNumber != 1234 || ev.BlockTime != 1_700_000_000 {
		t.Fatalf("block fields = %d/%d", ev.BlockNumber, ev.BlockTime)
	}
	if ev.TxHash != txHash.Hex() {
		t.Fatalf("tx hash = %s", ev.TxHash)
	}
}

func TestDecodeBurn(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 42})

	log := buildLog(t, EventBurn,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big.NewInt(400), big.NewInt(500), big.NewInt(100),
	)

	ev, err := decoder.DecodeLiquidity(context.Background(), EventBurn, log)
	if err != nil {
		t.Fatalf("decode burn: %v", err)
	}
	if ev.Kind != "REMOVE" {
		t.Fatalf("kind = %s, want REMOVE", ev.Kind)
	}
	if ev.Token0Amount != "400" || ev.Token1Amount != "500" {
		t.Fatalf("amounts = %s/%s, want 400/500", ev.Token0Amount, ev.Token1Amount)
	}
}

func TestDecodeLiquidityRejectsOtherKinds(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 42})

	if _, err := decoder.DecodeLiquidity(context.Background(), EventSwap, types.Log{}); err == nil {
		t.Fatalf("expected error for swap kind")
	}
}

func TestDecodeSwap(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 99})

	// uint256 amounts well past int64 range survive as decimal strings.
	big0In, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	log := buildLog(t, EventSwap,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big0In, big.NewInt(0), big.NewInt(0), big.NewInt(777),
	)

	swap, err := decoder.DecodeSwap(context.Background(), log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}

	if swap.Amount0In != "123456789012345678901234567890" {
		t.Fatalf("amount0 in = %s", swap.Amount0In)
	}
	if swap.Amount1In != "0" || swap.Amount0Out != "0" || swap.Amount1Out != "777" {
		t.Fatalf("amounts = %s/%s/%s", swap.Amount1In, swap.Amount0Out, swap.Amount1Out)
	}
	if swap.Sender != senderAddr.Hex() || swap.Recipient != toAddr.Hex() {
		t.Fatalf("parties = %s/%s", swap.Sender, swap.Recipient)
	}
	if swap.BlockTime != 99 {
		t.Fatalf("block time = %d, want 99", swap.BlockTime)
	}
}

func TestDecodeClaim(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 7})

	log := buildLog(t, EventClaim,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big.NewInt(11), big.NewInt(22),
	)

	claim, err := decoder.DecodeClaim(context.Background(), log)
	if err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Token0Fee != "11" || claim.Token1Fee != "22" {
		t.Fatalf("fees = %s/%s, want 11/22", claim.Token0Fee, claim.Token1Fee)
	}
	if claim.Sender != senderAddr.Hex() || claim.Recipient != toAddr.Hex() {
		t.Fatalf("parties = %s/%s", claim.Sender, claim.Recipient)
	}
}

func TestDecodeRejectsTopicMismatch(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{ts: 7})

	log := buildLog(t, EventClaim,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big.NewInt(11), big.NewInt(22),
	)
	// Present a Claim log as a Swap.
	if _, err := decoder.DecodeSwap(context.Background(), log); err == nil {
		t.Fatalf("expected topic0 mismatch error")
	}

	// Drop an indexed topic.
	log.Topics = log.Topics[:2]
	if _, err := decoder.DecodeClaim(context.Background(), log); err == nil {
		t.Fatalf("expected topic count error")
	}
}

func TestDecodePropagatesTimestampError(t *testing.T) {
	decoder := newTestDecoder(t, fixedTimes{err: fmt.Errorf("header fetch failed")})

	log := buildLog(t, EventMint,
		[]common.Hash{addressTopic(senderAddr), addressTopic(toAddr)},
		big.NewInt(1), big.NewInt(2), big.NewInt(3),
	)
	if _, err := decoder.DecodeLiquidity(context.Background(), EventMint, log); err == nil {
		t.Fatalf("expected timestamp error")
	}
}
