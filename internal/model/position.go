package model

// Amount pairs on-chain base units with their display value.
type Amount struct {
	Raw   string  `json:"raw"`
	Value float64 `json:"value"`
}

// PositionSnapshot is a read-only view of one staking card.
type PositionSnapshot struct {
	Pool         string            `json:"pool"`
	Pair         string            `json:"pair"`
	Account      string            `json:"account,omitempty"`
	Balance      Amount            `json:"balance"`
	Staked       Amount            `json:"staked"`
	Allowance    Amount            `json:"allowance"`
	Unclaimed    Amount            `json:"unclaimed"`
	Operation    string            `json:"operation"`
	Phase        string            `json:"phase"`
	Celebrate    bool              `json:"celebrate"`
	StakeInput   string            `json:"stake_input"`
	UnstakeInput string            `json:"unstake_input"`
	ReadErrors   map[string]string `json:"read_errors,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
	LastTxs      []string          `json:"last_txs,omitempty"`
}

// PoolSnapshot is one exported sync result.
type PoolSnapshot struct {
	SyncedAt string     `json:"synced_at"`
	Pools    []PoolInfo `json:"pools"`
	Prices   TokenPrice `json:"prices"`
}
