package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"balancerStake/internal/chain"
)

// ERC20 binds an LP token contract.
type ERC20 struct {
	bound boundContract
}

// NewERC20 binds the token at address. signer may be nil for read-only use.
func NewERC20(address common.Address, backend Backend, signer chain.Signer) (*ERC20, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20{bound: boundContract{address: address, parsed: parsed, backend: backend, signer: signer}}, nil
}

// Address returns the token address.
func (t *ERC20) Address() common.Address {
	return t.bound.address
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.bound.callUint(ctx, "balanceOf", account)
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.bound.callUint(ctx, "allowance", owner, spender)
}

func (t *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.bound.transact(ctx, "approve", spender, amount)
}
