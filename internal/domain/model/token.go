package model

import "fmt"

// TokenType identifies the asset a leg moves. Each token has a fixed
// base-unit decimal count (wei for ETH, 6 for USDC).
type TokenType string

const (
	TokenETH  TokenType = "ETH"
	TokenUSDC TokenType = "USDC"
)

func (t TokenType) String() string {
	return string(t)
}

// Decimals returns the base-unit decimal count for the token.
func (t TokenType) Decimals() uint8 {
	switch t {
	case TokenUSDC:
		return 6
	default:
		return 18
	}
}

// ParseTokenType converts a stored token string back to a TokenType.
func ParseTokenType(s string) (TokenType, error) {
	switch TokenType(s) {
	case TokenETH, TokenUSDC:
		return TokenType(s), nil
	default:
		return "", fmt.Errorf("unknown token type %q", s)
	}
}
