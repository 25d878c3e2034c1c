package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration. Values come from a .swaplab
// YAML file when present, overridden by SWAPLAB_* environment variables.
type Config struct {
	// Chain RPC settings
	RPCUrl       string
	MaxRetries   int
	RetryBackoff time.Duration

	// Aggregator settings
	JupiterBaseURL string
	JupiterAPIKey  string

	// Price index settings
	CoingeckoBaseURL string

	// HTTP API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// Session settings
	QuoteDebounce time.Duration
	SlippageBps   int

	// Wallet settings (CLI live mode only)
	WalletPrivateKey string
}

// Load reads configuration from the config file and environment.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".swaplab")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_backoff", time.Second)
	v.SetDefault("jupiter_base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("api_addr", ":8090")
	v.SetDefault("quote_debounce", 500*time.Millisecond)
	v.SetDefault("slippage_bps", 50)

	v.SetEnvPrefix("SWAPLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional; env vars and defaults suffice.
	_ = v.ReadInConfig()

	return &Config{
		RPCUrl:           v.GetString("rpc_url"),
		MaxRetries:       v.GetInt("max_retries"),
		RetryBackoff:     v.GetDuration("retry_backoff"),
		JupiterBaseURL:   v.GetString("jupiter_base_url"),
		JupiterAPIKey:    v.GetString("jupiter_api_key"),
		CoingeckoBaseURL: v.GetString("coingecko_base_url"),
		APIAddr:          v.GetString("api_addr"),
		APIKey:           v.GetString("api_key"),
		DevMode:          v.GetBool("dev_mode"),
		QuoteDebounce:    v.GetDuration("quote_debounce"),
		SlippageBps:      v.GetInt("slippage_bps"),
		WalletPrivateKey: v.GetString("wallet_private_key"),
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if c.JupiterBaseURL == "" {
		return fmt.Errorf("jupiter_base_url is required")
	}
	if c.APIAddr == "" {
		return fmt.Errorf("api_addr is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps must be within [0, 10000], got %d", c.SlippageBps)
	}
	return nil
}
