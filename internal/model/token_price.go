package model

// TokenPrice maps a token address to its USD price.
type TokenPrice map[string]float64
