package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"balancerStake/internal/chain"
)

// Rewards binds the staking rewards contract.
type Rewards struct {
	bound boundContract
}

// NewRewards binds the rewards contract at address. signer may be nil for read-only use.
func NewRewards(address common.Address, backend Backend, signer chain.Signer) (*Rewards, error) {
	parsed, err := RewardsABI()
	if err != nil {
		return nil, fmt.Errorf("parse rewards abi: %w", err)
	}
	return &Rewards{bound: boundContract{address: address, parsed: parsed, backend: backend, signer: signer}}, nil
}

// Address returns the contract address.
func (r *Rewards) Address() common.Address {
	return r.bound.address
}

// DepositedBalance returns the LP tokens account has staked for pool.
func (r *Rewards) DepositedBalance(ctx context.Context, pool, account common.Address) (*big.Int, error) {
	return r.bound.callUint(ctx, "getDepositedPoolTokenBalanceByUser", pool, account)
}

// UnclaimedRewards returns the reward tokens account can claim for pool.
func (r *Rewards) UnclaimedRewards(ctx context.Context, pool, account common.Address) (*big.Int, error) {
	return r.bound.callUint(ctx, "getUnclaimedPoolRewardsByUserByPool", pool, account)
}

func (r *Rewards) DepositPoolTokens(ctx context.Context, pool common.Address, amount *big.Int) (common.Hash, error) {
	return r.bound.transact(ctx, "depositPoolTokens", pool, amount)
}

func (r *Rewards) WithdrawPoolTokens(ctx context.Context, pool common.Address, amount *big.Int) (common.Hash, error) {
	return r.bound.transact(ctx, "withdrawPoolTokens", pool, amount)
}

func (r *Rewards) WithdrawUnclaimedPoolRewards(ctx context.Context, pool common.Address) (common.Hash, error) {
	return r.bound.transact(ctx, "withdrawUnclaimedPoolRewards", pool)
}
