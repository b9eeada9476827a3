package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"balancerStake/internal/chain"
)

// ErrReadOnly is returned by write methods when no signer is configured.
var ErrReadOnly = errors.New("no signer configured")

// Backend is the subset of chain.Client the bindings need.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTx(ctx context.Context, signer chain.Signer, to common.Address, data []byte) (common.Hash, error)
}

type boundContract struct {
	address common.Address
	parsed  abi.ABI
	backend Backend
	signer  chain.Signer
}

func (b *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if b.backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	data, err := b.parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &b.address, Data: data}
	resp, err := b.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := b.parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (b *boundContract) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return asBigInt(values[0])
}

func (b *boundContract) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	if b.signer == nil {
		return common.Hash{}, ErrReadOnly
	}
	if b.backend == nil {
		return common.Hash{}, fmt.Errorf("backend is nil")
	}
	data, err := b.parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	hash, err := b.backend.SendTx(ctx, b.signer, b.address, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}
	return hash, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
