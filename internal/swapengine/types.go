package swapengine

import (
	"context"

	"github.com/swapsimplify/swaplab/internal/auth"
	"github.com/swapsimplify/swaplab/internal/jupiter"
	"github.com/swapsimplify/swaplab/internal/prices"
)

// Mode selects between the practice screen, priced from the public index,
// and the live screen, priced by the aggregator.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeLive      Mode = "live"
)

// State is the session's top-level lifecycle position.
type State string

const (
	StatePageLoading     State = "pageLoading"
	StateUnauthenticated State = "unauthenticated"
	StateReady           State = "ready"
)

// QuoteService obtains a priced route for a token pair and exact input
// amount. *jupiter.Client implements it.
type QuoteService interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
}

// SwapExecutor submits a quoted swap end to end. *jupiter.Client implements it.
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, quote *jupiter.Quote, userPublicKey string, signer jupiter.TransactionSigner, conn jupiter.ChainConnection) jupiter.SwapResult
}

// BalanceSource reports an address's native balance in lamports.
// *rpc.Client implements it, including the retry policy.
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// PriceSource returns spot USD prices for price-index identifiers. It never
// fails; *prices.Client implements it.
type PriceSource interface {
	FetchTokenPrices(ctx context.Context, ids []string) prices.PriceData
}

// Snapshot is an immutable view of the session for transports to render.
type Snapshot struct {
	Mode         Mode               `json:"mode"`
	State        State              `json:"state"`
	AuthStep     auth.Step          `json:"authStep,omitempty"`
	FromToken    string             `json:"fromToken"`
	ToToken      string             `json:"toToken"`
	Amount       string             `json:"amount"`
	OutputAmount string             `json:"outputAmount"`
	Balance      float64            `json:"balance"`
	Prices       map[string]float64 `json:"prices,omitempty"`
	QuoteLoading bool               `json:"quoteLoading"`
	Submitting   bool               `json:"submitting"`

	// Quote summary for display; zero-valued when no quote is held.
	PriceImpactPct string `json:"priceImpactPct,omitempty"`
	RouteSteps     int    `json:"routeSteps,omitempty"`
}

// SubmitResult is the outcome of one submission, surfaced once.
type SubmitResult struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// mockBalances backs the practice screen, which has no chain connection.
var mockBalances = map[string]float64{
	"SOL":  3.25,
	"USDC": 150.5,
	"USDT": 100.0,
	"ETH":  0.5,
	"RAY":  45.7,
	"BONK": 1000000,
	"ORCA": 25.3,
	"JUP":  78.9,
	"WBTC": 0.01,
}
