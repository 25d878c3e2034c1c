package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapsimplify/swaplab/internal/token"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// TokenPrice is one entry of the price index response.
type TokenPrice struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// PriceData maps a price-index identifier to its current price.
type PriceData map[string]TokenPrice

// defaultPrice substitutes for identifiers the fallback table does not know.
var defaultPrice = TokenPrice{USD: 1, USD24hChange: 0}

// fallbackPrices is the static table used when the price index is
// unreachable, so the simulator keeps working offline.
var fallbackPrices = PriceData{
	"solana":                  {USD: 114.23, USD24hChange: 2.45},
	"usd-coin":                {USD: 1.0, USD24hChange: 0.01},
	"tether":                  {USD: 1.0, USD24hChange: 0.0},
	"ethereum":                {USD: 2247.83, USD24hChange: 1.23},
	"wrapped-bitcoin":         {USD: 43250.67, USD24hChange: 0.87},
	"raydium":                 {USD: 1.45, USD24hChange: 3.21},
	"bonk":                    {USD: 0.000012, USD24hChange: -1.45},
	"orca":                    {USD: 3.67, USD24hChange: 2.11},
	"jupiter-exchange-solana": {USD: 0.78, USD24hChange: 4.23},
}

// Client fetches spot USD prices from a CoinGecko-compatible index.
// It is stateless; every call issues one batched request.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

// FetchTokenPrices returns a price for every requested identifier. It never
// fails: on any network or decode error it logs a warning and returns the
// fallback table, and it fills identifiers missing from a successful
// response, so callers can always multiply and divide safely.
func (c *Client) FetchTokenPrices(ctx context.Context, ids []string) PriceData {
	data, err := c.fetch(ctx, ids)
	if err != nil {
		c.Logger.WithError(err).Warn("price index unavailable, using fallback prices")
		return FallbackPrices(ids)
	}

	for _, id := range ids {
		if _, ok := data[id]; !ok {
			data[id] = fallbackEntry(id)
		}
	}
	return data
}

func (c *Client) fetch(ctx context.Context, ids []string) (PriceData, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	u := c.BaseURL + "/simple/price?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("price index http %d", res.StatusCode)
	}

	var out PriceData
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if out == nil {
		out = PriceData{}
	}
	return out, nil
}

// FallbackPrices builds a complete mapping for the given identifiers from
// the static table, substituting a neutral default for unknown ids.
func FallbackPrices(ids []string) PriceData {
	out := make(PriceData, len(ids))
	for _, id := range ids {
		out[id] = fallbackEntry(id)
	}
	return out
}

func fallbackEntry(id string) TokenPrice {
	if p, ok := fallbackPrices[id]; ok {
		return p
	}
	return defaultPrice
}

// BuildPriceMap converts index-keyed price data into a symbol-keyed map for
// the given tokens. The result is rebuilt whole on every refresh and never
// merged with stale entries.
func BuildPriceMap(data PriceData, tokens []token.Token) map[string]float64 {
	out := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		if t.CoingeckoID == "" {
			continue
		}
		if p, ok := data[t.CoingeckoID]; ok {
			out[t.Symbol] = p.USD
		} else {
			out[t.Symbol] = fallbackEntry(t.CoingeckoID).USD
		}
	}
	return out
}

// DefaultSlippagePct is the flat haircut applied by the simulated swap.
const DefaultSlippagePct = 0.5

// CalculateSwapAmount models a flat-rate exchange with a slippage haircut:
// out = in * fromPrice / toPrice * (1 - slippagePct/100).
func CalculateSwapAmount(fromAmount, fromPrice, toPrice, slippagePct float64) float64 {
	if toPrice == 0 {
		return 0
	}
	usdValue := fromAmount * fromPrice
	toAmount := usdValue / toPrice
	return toAmount - toAmount*(slippagePct/100)
}
