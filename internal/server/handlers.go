package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/swapsimplify/swaplab/internal/prices"
	"github.com/swapsimplify/swaplab/internal/rpc"
	"github.com/swapsimplify/swaplab/internal/swapengine"
	"github.com/swapsimplify/swaplab/internal/token"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Quotes   swapengine.QuoteService  // Aggregator quote client
	Prices   swapengine.PriceSource   // Price index client (never fails)
	Balances swapengine.BalanceSource // Chain RPC balance reader (optional)

	QuoteDebounce time.Duration // Session quote debounce override
	SlippageBps   int           // Default slippage for sessions and quotes
	DevMode       bool          // Enable detailed error responses in development
	Logger        *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Tokens returns the token registry, optionally filtered by network
func (h *Handlers) Tokens(c echo.Context) error {
	network := strings.TrimSpace(c.QueryParam("network"))
	if network == "" {
		return c.JSON(http.StatusOK, TokensResponse{Items: token.Supported})
	}
	known := false
	for _, n := range token.SupportedNetworks {
		if n.ID == network {
			known = true
			break
		}
	}
	if !known {
		return h.err(c, http.StatusBadRequest, "unknown network", map[string]any{"network": network})
	}
	return c.JSON(http.StatusOK, TokensResponse{Items: token.ByNetwork(network)})
}

// Networks returns the supported networks
func (h *Handlers) Networks(c echo.Context) error {
	return c.JSON(http.StatusOK, NetworksResponse{Items: token.SupportedNetworks})
}

// Prices returns current USD prices for the requested price-index ids,
// defaulting to every registry token. This endpoint never fails: the
// underlying source falls back to a static table when the index is down.
func (h *Handlers) PricesAll(c echo.Context) error {
	ids := splitCSVQuery(c.QueryParams()["ids"])
	if len(ids) == 0 {
		ids = token.CoingeckoIDs(token.Supported)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	data := h.Prices.FetchTokenPrices(ctx, ids)
	return c.JSON(http.StatusOK, data)
}

// Quote proxies a quote request to the aggregator
// Accepts inputMint, outputMint, amount (base units) and optional slippageBps
func (h *Handlers) Quote(c echo.Context) error {
	if h.Quotes == nil {
		return h.err(c, http.StatusBadRequest, "quotes are not configured", nil)
	}

	inputMint := strings.TrimSpace(c.QueryParam("inputMint"))
	outputMint := strings.TrimSpace(c.QueryParam("outputMint"))
	amountStr := strings.TrimSpace(c.QueryParam("amount"))

	if inputMint == "" {
		return h.err(c, http.StatusBadRequest, "invalid inputMint", map[string]any{"inputMint": "required"})
	}
	if outputMint == "" {
		return h.err(c, http.StatusBadRequest, "invalid outputMint", map[string]any{"outputMint": "required"})
	}
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil || amount == 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive uint64"})
	}

	slippageBps := h.SlippageBps
	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
		}
		slippageBps = int(n)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Quotes.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "quote failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}

// Balance returns the native SOL balance for an address
func (h *Handlers) Balance(c echo.Context) error {
	if h.Balances == nil {
		return h.err(c, http.StatusBadRequest, "chain rpc is not configured", nil)
	}

	address := strings.TrimSpace(c.Param("address"))
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "must be a base58 public key"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	lamports, err := h.Balances.GetBalance(ctx, address)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to get balance", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		Address:  address,
		Lamports: lamports,
		SOL:      float64(lamports) / rpc.LamportsPerSOL,
	})
}

// Simulate converts an amount between two registry tokens at index prices
// with the flat slippage haircut, without touching the chain
func (h *Handlers) Simulate(c echo.Context) error {
	var req SimulateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	from, ok := token.BySymbol(req.FromToken)
	if !ok {
		return h.err(c, http.StatusBadRequest, "unknown fromToken", map[string]any{"fromToken": req.FromToken})
	}
	to, ok := token.BySymbol(req.ToToken)
	if !ok {
		return h.err(c, http.StatusBadRequest, "unknown toToken", map[string]any{"toToken": req.ToToken})
	}
	if from.Symbol == to.Symbol {
		return h.err(c, http.StatusBadRequest, "tokens must differ", nil)
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(req.Amount), 64)
	if err != nil || amount <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive decimal"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	data := h.Prices.FetchTokenPrices(ctx, []string{from.CoingeckoID, to.CoingeckoID})
	fp := data[from.CoingeckoID].USD
	tp := data[to.CoingeckoID].USD
	out := prices.CalculateSwapAmount(amount, fp, tp, prices.DefaultSlippagePct)

	return c.JSON(http.StatusOK, SimulateResponse{
		FromToken:    from.Symbol,
		ToToken:      to.Symbol,
		InputAmount:  strings.TrimSpace(req.Amount),
		OutputAmount: strconv.FormatFloat(out, 'f', 6, 64),
		FromPriceUSD: fp,
		ToPriceUSD:   tp,
		SlippagePct:  prices.DefaultSlippagePct,
	})
}

func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
