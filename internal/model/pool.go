package model

import "strings"

// PoolInfo is a normalized snapshot of one pool returned by the indexing service.
type PoolInfo struct {
	Pair         string      `json:"pair"`
	Address      string      `json:"address"`
	PoolURL      string      `json:"pool_url"`
	TokenAddress string      `json:"token_address"`
	Liquidity    float64     `json:"liquidity"`
	TotalWeight  float64     `json:"total_weight"`
	Tokens       []PoolToken `json:"tokens"`
	LPToken      TokenMeta   `json:"lp_token"`
}

// PoolToken is one constituent token of a pool.
type PoolToken struct {
	Address          string    `json:"address"`
	Balance          float64   `json:"balance"`
	WeightPercentage float64   `json:"weight_percentage"`
	Token            TokenMeta `json:"token"`
}

// PairLabel joins token symbols with "/".
func PairLabel(symbols []string) string {
	return strings.Join(symbols, "/")
}

// TokenAddresses returns the constituent token addresses in pool order.
func (p PoolInfo) TokenAddresses() []string {
	out := make([]string, 0, len(p.Tokens))
	for _, token := range p.Tokens {
		out = append(out, token.Address)
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (p PoolInfo) Clone() PoolInfo {
	out := p
	out.Tokens = append([]PoolToken(nil), p.Tokens...)
	return out
}
