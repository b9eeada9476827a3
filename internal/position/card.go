package position

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"balancerStake/internal/amount"
	"balancerStake/internal/metrics"
	"balancerStake/internal/model"
)

// Rewards is the staking rewards contract.
type Rewards interface {
	Address() common.Address
	DepositedBalance(ctx context.Context, pool, account common.Address) (*big.Int, error)
	UnclaimedRewards(ctx context.Context, pool, account common.Address) (*big.Int, error)
	DepositPoolTokens(ctx context.Context, pool common.Address, amount *big.Int) (common.Hash, error)
	WithdrawPoolTokens(ctx context.Context, pool common.Address, amount *big.Int) (common.Hash, error)
	WithdrawUnclaimedPoolRewards(ctx context.Context, pool common.Address) (common.Hash, error)
}

// LPToken is the pool's ERC20 LP token.
type LPToken interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
}

// Waiter blocks until a submitted transaction is included.
type Waiter interface {
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config tunes read retries and the celebrate flag.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	CelebrateFor time.Duration
}

// Deps bundles the collaborators of a Card.
type Deps struct {
	Rewards Rewards
	Token   LPToken
	Waiter  Waiter
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Reads is the worker pool for parallel reads; nil creates one per card.
	Reads pond.Pool
}

// Card tracks one account's position in one pool and runs its stake,
// unstake, and claim operations. At most one operation runs at a time.
type Card struct {
	cfg      Config
	pool     model.PoolInfo
	poolAddr common.Address
	account  *common.Address
	decimals uint8

	rewards Rewards
	token   LPToken
	waiter  Waiter
	logger  *zap.Logger
	metrics *metrics.Metrics
	reads   pond.Pool
	// ownsReads is set when the card created reads and must stop it.
	ownsReads bool

	mu             sync.Mutex
	balance        *big.Int
	staked         *big.Int
	allowance      *big.Int
	unclaimed      *big.Int
	readErrs       map[Field]error
	op             Operation
	phase          Phase
	celebrate      bool
	celebrateTimer *time.Timer
	stakeInput     string
	unstakeInput   string
	lastErr        error
	lastTxs        []common.Hash
}

// NewCard builds a card for pool. account may be nil when no wallet is
// connected; the card then reads nothing and rejects every operation.
func NewCard(cfg Config, pool model.PoolInfo, account *common.Address, deps Deps) (*Card, error) {
	if deps.Rewards == nil {
		return nil, fmt.Errorf("rewards contract is nil")
	}
	if deps.Token == nil {
		return nil, fmt.Errorf("lp token is nil")
	}
	if deps.Waiter == nil {
		return nil, fmt.Errorf("waiter is nil")
	}
	if !common.IsHexAddress(pool.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", pool.Address)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reads, ownsReads := deps.Reads, false
	if reads == nil {
		reads, ownsReads = pond.NewPool(4), true
	}
	if cfg.CelebrateFor <= 0 {
		cfg.CelebrateFor = 3 * time.Second
	}
	decimals := pool.LPToken.Decimals
	if decimals == 0 {
		decimals = amount.Decimals
	}

	var acct *common.Address
	if account != nil {
		copied := *account
		acct = &copied
	}

	fields := []zap.Field{zap.String("pool", pool.Address), zap.String("pair", pool.Pair)}
	if acct != nil {
		fields = append(fields, zap.String("account", acct.Hex()))
	}

	return &Card{
		cfg:       cfg,
		pool:      pool.Clone(),
		poolAddr:  common.HexToAddress(pool.Address),
		account:   acct,
		decimals:  decimals,
		rewards:   deps.Rewards,
		token:     deps.Token,
		waiter:    deps.Waiter,
		logger:    logger.With(fields...),
		metrics:   deps.Metrics,
		reads:     reads,
		ownsReads: ownsReads,
		balance:   big.NewInt(0),
		staked:    big.NewInt(0),
		allowance: big.NewInt(0),
		unclaimed: big.NewInt(0),
		readErrs:  make(map[Field]error),
	}, nil
}

// Pool returns the pool descriptor the card was built for.
func (c *Card) Pool() model.PoolInfo {
	return c.pool.Clone()
}

// Refresh re-reads balance, staked amount, allowance, and unclaimed rewards in
// parallel. Each read updates its own field; a failed read keeps the previous
// value and is reported in the joined error and in Snapshot().ReadErrors.
func (c *Card) Refresh(ctx context.Context) error {
	if c.account == nil {
		return nil
	}
	account := *c.account
	spender := c.rewards.Address()

	reads := map[Field]func(context.Context) (*big.Int, error){
		FieldBalance: func(ctx context.Context) (*big.Int, error) {
			return c.token.BalanceOf(ctx, account)
		},
		FieldStaked: func(ctx context.Context) (*big.Int, error) {
			return c.rewards.DepositedBalance(ctx, c.poolAddr, account)
		},
		FieldAllowance: func(ctx context.Context) (*big.Int, error) {
			return c.token.Allowance(ctx, account, spender)
		},
		FieldUnclaimed: func(ctx context.Context) (*big.Int, error) {
			return c.rewards.UnclaimedRewards(ctx, c.poolAddr, account)
		},
	}

	var errsMu sync.Mutex
	var errs []error

	group := c.reads.NewGroup()
	for field, read := range reads {
		field, read := field, read
		group.Submit(func() {
			if err := c.refreshField(ctx, field, read); err != nil {
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
			}
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (c *Card) refreshField(ctx context.Context, field Field, read func(context.Context) (*big.Int, error)) error {
	var value *big.Int
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		value, err = read(ctx)
		c.metrics.ObserveRead(string(field), err)
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("read %s: %w", field, err)
		c.readErrs[field] = err
		c.logger.Warn("position read failed", zap.String("field", string(field)), zap.Error(err))
		return err
	}
	delete(c.readErrs, field)
	c.setField(field, value)
	return nil
}

func (c *Card) setField(field Field, value *big.Int) {
	if value == nil {
		value = big.NewInt(0)
	}
	switch field {
	case FieldBalance:
		c.balance = value
	case FieldStaked:
		c.staked = value
	case FieldAllowance:
		c.allowance = value
	case FieldUnclaimed:
		c.unclaimed = value
	}
}

// begin claims the operation slot. check runs under the lock against the
// current cached amounts, and only when no other operation is in flight, so a
// busy card is left untouched.
func (c *Card) begin(op Operation, check func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return ErrNoAccount
	}
	if c.op != OpNone {
		return fmt.Errorf("%w: %s", ErrBusy, c.op)
	}
	if err := check(); err != nil {
		return err
	}
	c.op = op
	c.lastErr = nil
	c.lastTxs = nil
	return nil
}

// finish refreshes every read from chain and releases the operation slot.
func (c *Card) finish(ctx context.Context, op Operation, opErr error) {
	if opErr != nil {
		c.logger.Error("position operation failed", zap.String("operation", op.String()), zap.Error(opErr))
	} else {
		c.logger.Info("position operation complete", zap.String("operation", op.String()))
	}

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after operation failed", zap.String("operation", op.String()), zap.Error(err))
	}

	c.mu.Lock()
	c.op = OpNone
	c.lastErr = opErr
	c.mu.Unlock()
}

// Stake deposits amount LP tokens, approving the rewards contract first when
// the current allowance is below amount.
func (c *Card) Stake(ctx context.Context, input string) (err error) {
	value, parseErr := amount.Parse(input, c.decimals)

	err = c.begin(OpStaking, func() error {
		c.stakeInput = input
		if parseErr != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, parseErr)
		}
		if value.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if value.Cmp(c.balance) > 0 {
			return ErrInsufficientBalance
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { c.finish(ctx, OpStaking, err) }()

	allowance := c.currentAllowance(ctx)
	if allowance.Cmp(value) < 0 {
		spender := c.rewards.Address()
		if _, err := c.submit(ctx, txApprove, func(ctx context.Context) (common.Hash, error) {
			return c.token.Approve(ctx, spender, value)
		}); err != nil {
			return err
		}
	}

	if _, err := c.submit(ctx, txDeposit, func(ctx context.Context) (common.Hash, error) {
		return c.rewards.DepositPoolTokens(ctx, c.poolAddr, value)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.stakeInput = ""
	c.mu.Unlock()
	c.startCelebrate()
	return nil
}

// Unstake withdraws amount LP tokens from the rewards contract.
func (c *Card) Unstake(ctx context.Context, input string) (err error) {
	value, parseErr := amount.Parse(input, c.decimals)

	err = c.begin(OpUnstaking, func() error {
		c.unstakeInput = input
		if parseErr != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, parseErr)
		}
		if value.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if value.Cmp(c.staked) > 0 {
			return ErrInsufficientStake
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { c.finish(ctx, OpUnstaking, err) }()

	if _, err := c.submit(ctx, txWithdraw, func(ctx context.Context) (common.Hash, error) {
		return c.rewards.WithdrawPoolTokens(ctx, c.poolAddr, value)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.unstakeInput = ""
	c.mu.Unlock()
	return nil
}

// Claim withdraws all unclaimed rewards for the pool.
func (c *Card) Claim(ctx context.Context) (err error) {
	err = c.begin(OpClaiming, func() error {
		if c.unclaimed.Sign() <= 0 {
			return ErrNothingToClaim
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { c.finish(ctx, OpClaiming, err) }()

	if _, err := c.submit(ctx, txClaim, func(ctx context.Context) (common.Hash, error) {
		return c.rewards.WithdrawUnclaimedPoolRewards(ctx, c.poolAddr)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.startCelebrate()
	return nil
}

// UnstakeAndClaim withdraws the whole stake, then claims rewards. The two
// transactions are not atomic: if the claim fails after the withdraw landed,
// the card moves to PhaseWithdrawnNotClaimed and a *PartialUnwindError is
// returned.
func (c *Card) UnstakeAndClaim(ctx context.Context) (err error) {
	var staked *big.Int
	err = c.begin(OpUnstakingAndClaiming, func() error {
		if c.unclaimed.Sign() <= 0 {
			return ErrNothingToClaim
		}
		if c.staked.Sign() <= 0 {
			return ErrInsufficientStake
		}
		staked = new(big.Int).Set(c.staked)
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { c.finish(ctx, OpUnstakingAndClaiming, err) }()

	withdrawTx, err := c.submit(ctx, txWithdraw, func(ctx context.Context) (common.Hash, error) {
		return c.rewards.WithdrawPoolTokens(ctx, c.poolAddr, staked)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.phase = PhaseWithdrawnNotClaimed
	c.mu.Unlock()

	if _, err := c.submit(ctx, txClaim, func(ctx context.Context) (common.Hash, error) {
		return c.rewards.WithdrawUnclaimedPoolRewards(ctx, c.poolAddr)
	}); err != nil {
		return &PartialUnwindError{WithdrawTx: withdrawTx, Err: err}
	}

	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.startCelebrate()
	return nil
}

// currentAllowance re-reads the allowance, falling back to the cached value.
func (c *Card) currentAllowance(ctx context.Context) *big.Int {
	err := c.refreshField(ctx, FieldAllowance, func(ctx context.Context) (*big.Int, error) {
		return c.token.Allowance(ctx, *c.account, c.rewards.Address())
	})
	if err != nil {
		c.logger.Warn("using cached allowance", zap.Error(err))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.allowance)
}

// submit sends one transaction and waits for its inclusion.
func (c *Card) submit(ctx context.Context, kind string, send func(context.Context) (common.Hash, error)) (common.Hash, error) {
	started := time.Now()

	hash, err := send(ctx)
	if err != nil {
		c.metrics.ObserveTx(kind, started, err)
		return common.Hash{}, fmt.Errorf("submit %s: %w", kind, err)
	}

	c.mu.Lock()
	c.lastTxs = append(c.lastTxs, hash)
	c.mu.Unlock()
	c.logger.Info("transaction submitted", zap.String("kind", kind), zap.String("tx", hash.Hex()))

	if _, err := c.waiter.WaitMined(ctx, hash); err != nil {
		c.metrics.ObserveTx(kind, started, err)
		return hash, fmt.Errorf("wait %s %s: %w", kind, hash.Hex(), err)
	}
	c.metrics.ObserveTx(kind, started, nil)
	c.logger.Info("transaction mined", zap.String("kind", kind), zap.String("tx", hash.Hex()))
	return hash, nil
}

func (c *Card) startCelebrate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.celebrate = true
	if c.celebrateTimer != nil {
		c.celebrateTimer.Stop()
	}
	c.celebrateTimer = time.AfterFunc(c.cfg.CelebrateFor, func() {
		c.mu.Lock()
		c.celebrate = false
		c.mu.Unlock()
	})
}

// Close stops the celebrate timer and the card's own read pool. The card must
// not be used afterwards.
func (c *Card) Close() {
	c.mu.Lock()
	if c.celebrateTimer != nil {
		c.celebrateTimer.Stop()
		c.celebrateTimer = nil
	}
	c.celebrate = false
	c.mu.Unlock()

	if c.ownsReads {
		c.reads.Stop()
	}
}

// Operation returns the operation in flight.
func (c *Card) Operation() Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.op
}

// Phase returns the card's on-chain progress marker.
func (c *Card) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a copy of the card state.
func (c *Card) Snapshot() model.PositionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := model.PositionSnapshot{
		Pool:         c.pool.Address,
		Pair:         c.pool.Pair,
		Balance:      c.amountOf(c.balance),
		Staked:       c.amountOf(c.staked),
		Allowance:    c.amountOf(c.allowance),
		Unclaimed:    c.amountOf(c.unclaimed),
		Operation:    c.op.String(),
		Phase:        c.phase.String(),
		Celebrate:    c.celebrate,
		StakeInput:   c.stakeInput,
		UnstakeInput: c.unstakeInput,
	}
	if c.account != nil {
		snap.Account = c.account.Hex()
	}
	if len(c.readErrs) > 0 {
		snap.ReadErrors = make(map[string]string, len(c.readErrs))
		for field, err := range c.readErrs {
			snap.ReadErrors[string(field)] = err.Error()
		}
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	for _, tx := range c.lastTxs {
		snap.LastTxs = append(snap.LastTxs, tx.Hex())
	}
	return snap
}

func (c *Card) amountOf(value *big.Int) model.Amount {
	return model.Amount{Raw: value.String(), Value: amount.Float(value, c.decimals)}
}
