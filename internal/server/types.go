package server

import "github.com/swapsimplify/swaplab/internal/token"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// TokensResponse lists the static token registry
type TokensResponse struct {
	Items []token.Token `json:"items"`
}

// NetworksResponse lists the supported networks
type NetworksResponse struct {
	Items []token.Network `json:"items"`
}

// BalanceResponse reports an address's native balance
type BalanceResponse struct {
	Address  string  `json:"address"`
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
}

// SimulateRequest asks for a flat-rate conversion between two registry tokens
type SimulateRequest struct {
	FromToken string `json:"fromToken"` // Input token symbol
	ToToken   string `json:"toToken"`   // Output token symbol
	Amount    string `json:"amount"`    // Decimal input amount
}

// SimulateResponse is the simulated conversion result
type SimulateResponse struct {
	FromToken    string  `json:"fromToken"`
	ToToken      string  `json:"toToken"`
	InputAmount  string  `json:"inputAmount"`
	OutputAmount string  `json:"outputAmount"`
	FromPriceUSD float64 `json:"fromPriceUsd"`
	ToPriceUSD   float64 `json:"toPriceUsd"`
	SlippagePct  float64 `json:"slippagePct"`
}
