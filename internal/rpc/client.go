package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapsimplify/swaplab/internal/retry"
)

// LamportsPerSOL is the smallest-unit scale of the native currency.
const LamportsPerSOL = 1_000_000_000

// Client is a JSON-RPC client for a Solana node with retry support.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger

	confirmTimeout time.Duration
}

// ClientConfig holds configuration for the RPC client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:        cfg.BaseURL,
		maxRetries:     cfg.MaxRetries,
		retryBackoff:   cfg.RetryBackoff,
		logger:         cfg.Logger,
		confirmTimeout: 60 * time.Second,
	}
}

// Call makes a JSON-RPC call, retrying transport failures with a fixed
// backoff. JSON-RPC level errors are not retried; they come back inside
// result for the caller to interpret.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return retry.Do(ctx, retry.Config{
		Attempts: c.maxRetries,
		Backoff:  c.retryBackoff,
		Logger:   c.logger,
	}, func() error {
		resp, err := c.doRequest(ctx, data)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// GetBalance returns the lamport balance of an address at "confirmed"
// commitment.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var resp struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		address,
		map[string]any{"commitment": "confirmed"},
	}

	if err := c.Call(ctx, "getBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getBalance RPC failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBalance error: %s", resp.Error.Message)
	}
	return resp.Result.Value, nil
}

// SendRawTransaction submits a base64-encoded signed transaction. Preflight
// simulation and node-side resend behavior are controlled by opts.
func (c *Client) SendRawTransaction(ctx context.Context, txBase64 string, opts SendOptions) (string, error) {
	var resp struct {
		Result string    `json:"result"`
		Error  *RPCError `json:"error"`
	}

	params := []any{
		txBase64,
		map[string]any{
			"encoding":      "base64",
			"skipPreflight": opts.SkipPreflight,
			"maxRetries":    opts.MaxRetries,
		},
	}

	if err := c.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction error: code=%d, message=%s",
			resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// ConfirmTransaction polls signature status until the requested commitment
// is reached or the confirmation window times out. An on-chain execution
// error is not a transport failure: it is reported in Confirmation.Err.
func (c *Client) ConfirmTransaction(ctx context.Context, signature, commitment string) (*Confirmation, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		conf, done, err := c.checkSignatureStatus(ctx, signature, commitment)
		if err != nil {
			return nil, fmt.Errorf("failed to check signature: %w", err)
		}
		if done {
			return conf, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return nil, fmt.Errorf("transaction confirmation timeout after %v", c.confirmTimeout)
}

func (c *Client) checkSignatureStatus(ctx context.Context, signature, commitment string) (*Confirmation, bool, error) {
	var resp struct {
		Result struct {
			Value []struct {
				Slot               uint64      `json:"slot"`
				Confirmations      *int        `json:"confirmations"`
				Err                interface{} `json:"err"`
				ConfirmationStatus string      `json:"confirmationStatus"`
			} `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	if err := c.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return nil, false, err
	}
	if resp.Error != nil {
		return nil, false, fmt.Errorf("getSignatureStatuses error: %s", resp.Error.Message)
	}

	if len(resp.Result.Value) == 0 || resp.Result.Value[0].ConfirmationStatus == "" {
		return nil, false, nil // not yet processed
	}

	status := resp.Result.Value[0]
	conf := &Confirmation{
		Err:    status.Err,
		Slot:   status.Slot,
		Status: status.ConfirmationStatus,
	}

	// A rejected transaction is terminal regardless of commitment.
	if status.Err != nil {
		return conf, true, nil
	}

	switch commitment {
	case "processed":
		return conf, true, nil
	case "confirmed":
		return conf, status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	case "finalized":
		return conf, status.ConfirmationStatus == "finalized", nil
	default:
		return conf, true, nil
	}
}
