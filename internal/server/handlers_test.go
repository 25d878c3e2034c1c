package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapsimplify/swaplab/internal/jupiter"
	"github.com/swapsimplify/swaplab/internal/prices"
)

const testAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

type fakeQuoteSvc struct {
	quote *jupiter.Quote
	err   error
}

func (f *fakeQuoteSvc) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error) {
	return f.quote, f.err
}

type fakePriceSrc struct {
	data prices.PriceData
}

func (f *fakePriceSrc) FetchTokenPrices(ctx context.Context, ids []string) prices.PriceData {
	if f.data != nil {
		return f.data
	}
	return prices.FallbackPrices(ids)
}

type fakeBalanceSrc struct {
	lamports uint64
	err      error
}

func (f *fakeBalanceSrc) GetBalance(ctx context.Context, address string) (uint64, error) {
	return f.lamports, f.err
}

func testEcho(t *testing.T, h *Handlers, cfg ServerConfig) *echo.Echo {
	t.Helper()
	if h.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
		h.Logger = logger
	}
	if h.Prices == nil {
		h.Prices = &fakePriceSrc{}
	}
	e := echo.New()
	RegisterRoutes(e, h, cfg)
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := testEcho(t, &Handlers{}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestTokens(t *testing.T) {
	e := testEcho(t, &Handlers{}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/v1/tokens", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokensResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 9)

	// Filtered by network
	rec = doRequest(e, http.MethodGet, "/v1/tokens?network=solana", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 7)

	// Unknown network is rejected
	rec = doRequest(e, http.MethodGet, "/v1/tokens?network=plasma", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetworks(t *testing.T) {
	e := testEcho(t, &Handlers{}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/v1/networks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NetworksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 3)
}

func TestPricesAll(t *testing.T) {
	e := testEcho(t, &Handlers{Prices: &fakePriceSrc{}}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/v1/prices?ids=solana,usd-coin", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data prices.PriceData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, 114.23, data["solana"].USD)
	assert.Equal(t, 1.0, data["usd-coin"].USD)

	// Without ids the whole registry is priced
	rec = doRequest(e, http.MethodGet, "/v1/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Len(t, data, 9)
}

func TestQuote(t *testing.T) {
	q := &fakeQuoteSvc{quote: &jupiter.Quote{OutAmount: "114230000"}}
	e := testEcho(t, &Handlers{Quotes: q, SlippageBps: 50}, ServerConfig{})

	rec := doRequest(e, http.MethodGet,
		"/v1/quote?inputMint=a&outputMint=b&amount=1000000000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var quote jupiter.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "114230000", quote.OutAmount)
}

func TestQuote_Validation(t *testing.T) {
	e := testEcho(t, &Handlers{Quotes: &fakeQuoteSvc{}}, ServerConfig{})

	// Stays within the endpoint's burst allowance of five requests
	for _, target := range []string{
		"/v1/quote?outputMint=b&amount=1",             // missing inputMint
		"/v1/quote?inputMint=a&amount=1",              // missing outputMint
		"/v1/quote?inputMint=a&outputMint=b",          // missing amount
		"/v1/quote?inputMint=a&outputMint=b&amount=0", // zero amount
		"/v1/quote?inputMint=a&outputMint=b&amount=1&slippageBps=99999", // out of range
	} {
		rec := doRequest(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestQuote_UpstreamFailure(t *testing.T) {
	q := &fakeQuoteSvc{err: errors.New("aggregator down")}
	e := testEcho(t, &Handlers{Quotes: q}, ServerConfig{})

	rec := doRequest(e, http.MethodGet,
		"/v1/quote?inputMint=a&outputMint=b&amount=1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBalance(t *testing.T) {
	b := &fakeBalanceSrc{lamports: 2_500_000_000}
	e := testEcho(t, &Handlers{Balances: b}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/v1/balance/"+testAddr, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2_500_000_000), resp.Lamports)
	assert.Equal(t, 2.5, resp.SOL)

	// Malformed addresses never reach the chain
	rec = doRequest(e, http.MethodGet, "/v1/balance/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulate(t *testing.T) {
	e := testEcho(t, &Handlers{Prices: &fakePriceSrc{}}, ServerConfig{})

	rec := doRequest(e, http.MethodPost, "/v1/simulate",
		`{"fromToken": "SOL", "toToken": "USDC", "amount": "2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SOL", resp.FromToken)
	assert.Equal(t, 114.23, resp.FromPriceUSD)
	assert.Equal(t, 0.5, resp.SlippagePct)

	want := prices.CalculateSwapAmount(2, 114.23, 1.0, prices.DefaultSlippagePct)
	assert.InDelta(t, want, mustParseFloat(t, resp.OutputAmount), 1e-6)
}

func TestSimulate_Validation(t *testing.T) {
	e := testEcho(t, &Handlers{Prices: &fakePriceSrc{}}, ServerConfig{})

	for _, body := range []string{
		`{"fromToken": "NOPE", "toToken": "USDC", "amount": "1"}`,
		`{"fromToken": "SOL", "toToken": "NOPE", "amount": "1"}`,
		`{"fromToken": "SOL", "toToken": "SOL", "amount": "1"}`,
		`{"fromToken": "SOL", "toToken": "USDC", "amount": "abc"}`,
		`{"fromToken": "SOL", "toToken": "USDC", "amount": "-1"}`,
	} {
		rec := doRequest(e, http.MethodPost, "/v1/simulate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	e := testEcho(t, &Handlers{}, ServerConfig{})

	rec := doRequest(e, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "not found", "code": 404}`, rec.Body.String())
}

func TestAPIKeyAuth(t *testing.T) {
	e := testEcho(t, &Handlers{}, ServerConfig{APIKey: "secret"})

	// Missing key
	rec := doRequest(e, http.MethodGet, "/v1/health", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)

	// Correct key
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorDetailsOnlyInDevMode(t *testing.T) {
	q := &fakeQuoteSvc{err: errors.New("aggregator down")}

	// Production mode hides details
	e := testEcho(t, &Handlers{Quotes: q}, ServerConfig{})
	rec := doRequest(e, http.MethodGet, "/v1/quote?inputMint=a&outputMint=b&amount=1", "")
	assert.NotContains(t, rec.Body.String(), "aggregator down")

	// Dev mode surfaces them
	e = testEcho(t, &Handlers{Quotes: q, DevMode: true}, ServerConfig{})
	rec = doRequest(e, http.MethodGet, "/v1/quote?inputMint=a&outputMint=b&amount=1", "")
	assert.Contains(t, rec.Body.String(), "aggregator down")
}

func mustParseFloat(t *testing.T, s string) float64 {
	t.Helper()
	var f float64
	require.NoError(t, json.Unmarshal([]byte(s), &f))
	return f
}
