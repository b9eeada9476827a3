package pools

import (
	"fmt"
	"strconv"
	"strings"

	"balancerStake/internal/amount"
	"balancerStake/internal/model"
	"balancerStake/internal/subgraph"
)

const lpTokenSymbol = "BPT"

// Normalize converts subgraph records into PoolInfo snapshots, preserving
// record order. Hex addresses are checksummed; anything else is kept
// lower-case. It also returns the constituent token addresses in first-seen
// order without duplicates.
func Normalize(records []subgraph.PoolRecord, poolURL string) ([]model.PoolInfo, []string, error) {
	out := make([]model.PoolInfo, 0, len(records))
	tokens := make([]string, 0)
	seen := make(map[string]struct{})

	for _, record := range records {
		poolAddr := canonicalAddress(record.ID)

		totalWeight, err := parseDecimal(record.TotalWeight)
		if err != nil {
			return nil, nil, fmt.Errorf("pool %s total weight: %w", record.ID, err)
		}
		liquidity, err := parseDecimal(record.Liquidity)
		if err != nil {
			return nil, nil, fmt.Errorf("pool %s liquidity: %w", record.ID, err)
		}

		symbols := make([]string, 0, len(record.Tokens))
		poolTokens := make([]model.PoolToken, 0, len(record.Tokens))
		for _, token := range record.Tokens {
			tokenAddr := canonicalAddress(token.Address)

			balance, err := parseDecimal(token.Balance)
			if err != nil {
				return nil, nil, fmt.Errorf("pool %s token %s balance: %w", record.ID, token.Symbol, err)
			}
			weight, err := parseDecimal(token.DenormWeight)
			if err != nil {
				return nil, nil, fmt.Errorf("pool %s token %s weight: %w", record.ID, token.Symbol, err)
			}

			symbols = append(symbols, token.Symbol)

			poolTokens = append(poolTokens, model.PoolToken{
				Address:          tokenAddr,
				Balance:          balance,
				WeightPercentage: weightPercentage(weight, totalWeight),
				Token: model.TokenMeta{
					Address:  tokenAddr,
					Decimals: token.Decimals,
					Symbol:   token.Symbol,
					Name:     token.Name,
				},
			})
		}

		pair := model.PairLabel(symbols)
		pool := model.PoolInfo{
			Pair:         pair,
			Address:      poolAddr,
			PoolURL:      poolURL + strings.ToLower(record.ID),
			TokenAddress: poolAddr,
			Liquidity:    liquidity,
			TotalWeight:  totalWeight,
			Tokens:       poolTokens,
			LPToken: model.TokenMeta{
				Address:  poolAddr,
				Decimals: amount.Decimals,
				Symbol:   lpTokenSymbol,
				Name:     lpTokenSymbol + ": " + pair,
			},
		}
		for _, tokenAddr := range pool.TokenAddresses() {
			if _, ok := seen[tokenAddr]; !ok {
				seen[tokenAddr] = struct{}{}
				tokens = append(tokens, tokenAddr)
			}
		}
		out = append(out, pool)
	}

	return out, tokens, nil
}

func weightPercentage(weight, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (100 / total) * weight
}

// parseDecimal reads a subgraph BigDecimal. Empty means zero.
func parseDecimal(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	return strconv.ParseFloat(input, 64)
}
