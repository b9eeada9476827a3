package position

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoAccount           = errors.New("no account connected")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("amount exceeds LP token balance")
	ErrInsufficientStake   = errors.New("amount exceeds staked balance")
	ErrNothingToClaim      = errors.New("no unclaimed rewards")
	ErrBusy                = errors.New("another operation is in progress")
)

// PartialUnwindError reports an unstake-and-claim whose withdraw landed but
// whose claim did not. The LP tokens are back in the wallet; rewards remain
// claimable with Claim.
type PartialUnwindError struct {
	WithdrawTx common.Hash
	Err        error
}

func (e *PartialUnwindError) Error() string {
	return fmt.Sprintf("withdraw %s succeeded but claim failed: %v", e.WithdrawTx.Hex(), e.Err)
}

func (e *PartialUnwindError) Unwrap() error {
	return e.Err
}
