package position

// Operation is the single write operation a card may have in flight.
type Operation int

const (
	OpNone Operation = iota
	OpStaking
	OpUnstaking
	OpClaiming
	OpUnstakingAndClaiming
)

func (o Operation) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpStaking:
		return "staking"
	case OpUnstaking:
		return "unstaking"
	case OpClaiming:
		return "claiming"
	case OpUnstakingAndClaiming:
		return "unstaking_and_claiming"
	default:
		return "unknown"
	}
}

// Phase records on-chain progress that outlives an operation.
type Phase int

const (
	PhaseIdle Phase = iota
	// PhaseWithdrawnNotClaimed: an unstake-and-claim withdrew the stake but
	// the claim did not land.
	PhaseWithdrawnNotClaimed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWithdrawnNotClaimed:
		return "withdrawn_not_claimed"
	default:
		return "unknown"
	}
}

// Field names one of the independently refreshed on-chain reads.
type Field string

const (
	FieldBalance   Field = "balance"
	FieldStaked    Field = "staked"
	FieldAllowance Field = "allowance"
	FieldUnclaimed Field = "unclaimed"
)

const (
	txApprove  = "approve"
	txDeposit  = "deposit"
	txWithdraw = "withdraw"
	txClaim    = "claim"
)
