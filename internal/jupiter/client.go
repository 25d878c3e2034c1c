package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapsimplify/swaplab/internal/retry"
)

const (
	defaultBaseURL     = "https://quote-api.jup.ag/v6"
	DefaultSlippageBps = 50
)

// Client talks to the swap aggregator's HTTP API. It is stateless; every
// operation is a fresh request with its own retry budget.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  *logrus.Logger

	// Attempts/Backoff shape the per-operation retry policy.
	Attempts int
	Backoff  time.Duration
}

func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		BaseURL:  baseURL,
		APIKey:   strings.TrimSpace(apiKey),
		HTTP:     &http.Client{Timeout: 12 * time.Second},
		Logger:   logger,
		Attempts: 3,
		Backoff:  1 * time.Second,
	}
}

// HTTPError is a non-2xx response from the aggregator.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, b)
}

// QuoteError is returned when the quote endpoint fails on every attempt.
type QuoteError struct {
	Err error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("failed to get quote after retries: %v", e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// TransactionBuildError is returned when the swap-transaction endpoint
// fails on every attempt.
type TransactionBuildError struct {
	Err error
}

func (e *TransactionBuildError) Error() string {
	return fmt.Sprintf("failed to get swap transaction after retries: %v", e.Err)
}

func (e *TransactionBuildError) Unwrap() error { return e.Err }

// GetQuote fetches a priced route for swapping amount (smallest units) of
// inputMint into outputMint. slippageBps <= 0 selects the default of 50.
// Network failures and non-2xx statuses are retried with a fixed backoff;
// a well-formed HTTP 200 response is passed through as-is without shape
// validation.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	if inputMint == "" {
		return nil, fmt.Errorf("inputMint is required")
	}
	if outputMint == "" {
		return nil, fmt.Errorf("outputMint is required")
	}
	if slippageBps <= 0 {
		slippageBps = DefaultSlippageBps
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	u := c.BaseURL + "/quote?" + q.Encode()

	var out Quote
	var lastErr error
	err := retry.Do(ctx, c.retryConfig(), func() error {
		lastErr = c.getJSON(ctx, u, &out)
		return lastErr
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, &QuoteError{Err: lastErr}
	}
	return &out, nil
}

// GetSwapTransaction posts the quote back to the aggregator and returns the
// prebuilt transaction as an opaque base64 blob. Same retry policy as
// GetQuote.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *Quote, userPublicKey string) (string, error) {
	if quote == nil {
		return "", fmt.Errorf("quote is required")
	}
	if userPublicKey == "" {
		return "", fmt.Errorf("userPublicKey is required")
	}

	body, err := json.Marshal(swapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap request: %w", err)
	}

	u := c.BaseURL + "/swap"

	var out swapResponse
	var lastErr error
	err = retry.Do(ctx, c.retryConfig(), func() error {
		lastErr = c.postJSON(ctx, u, body, &out)
		return lastErr
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", &TransactionBuildError{Err: lastErr}
	}
	return out.SwapTransaction, nil
}

func (c *Client) retryConfig() retry.Config {
	return retry.Config{
		Attempts: c.Attempts,
		Backoff:  c.Backoff,
		Logger:   c.Logger,
	}
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, u string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode aggregator response: %w", err)
	}
	return nil
}
