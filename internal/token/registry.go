package token

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Token describes one entry of the static token registry. Tokens are
// immutable and never created at runtime.
type Token struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Mint        string `json:"mint"`
	Decimals    uint8  `json:"decimals"`
	LogoURI     string `json:"logoURI"`
	Network     string `json:"network"`
	CoingeckoID string `json:"coingeckoId,omitempty"`
}

// Network identifies a supported chain.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	NetworkSolana   = "solana"
	NetworkEthereum = "ethereum"
	NetworkBSC      = "bsc"
)

var SupportedNetworks = []Network{
	{ID: NetworkSolana, Name: "Solana"},
	{ID: NetworkEthereum, Name: "Ethereum"},
	{ID: NetworkBSC, Name: "BSC"},
}

const logoBase = "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet"

var Supported = []Token{
	{
		Symbol:      "SOL",
		Name:        "Solana",
		Mint:        "So11111111111111111111111111111111111111112",
		Decimals:    9,
		LogoURI:     logoBase + "/So11111111111111111111111111111111111111112/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "solana",
	},
	{
		Symbol:      "USDC",
		Name:        "USD Coin",
		Mint:        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Decimals:    6,
		LogoURI:     logoBase + "/EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "usd-coin",
	},
	{
		Symbol:      "USDT",
		Name:        "Tether",
		Mint:        "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
		Decimals:    6,
		LogoURI:     logoBase + "/Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "tether",
	},
	{
		Symbol:      "RAY",
		Name:        "Raydium",
		Mint:        "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
		Decimals:    6,
		LogoURI:     logoBase + "/4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "raydium",
	},
	{
		Symbol:      "BONK",
		Name:        "Bonk",
		Mint:        "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		Decimals:    5,
		LogoURI:     logoBase + "/DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "bonk",
	},
	{
		Symbol:      "ORCA",
		Name:        "Orca",
		Mint:        "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
		Decimals:    6,
		LogoURI:     logoBase + "/orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "orca",
	},
	{
		Symbol:      "JUP",
		Name:        "Jupiter",
		Mint:        "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
		Decimals:    6,
		LogoURI:     logoBase + "/JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN/logo.png",
		Network:     NetworkSolana,
		CoingeckoID: "jupiter-exchange-solana",
	},
	// Ethereum tokens kept for the cross-chain pricing demo; they are
	// quotable in the simulator but not routable through the aggregator.
	{
		Symbol:      "ETH",
		Name:        "Ethereum",
		Mint:        "0x0000000000000000000000000000000000000000",
		Decimals:    18,
		LogoURI:     "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/ethereum/assets/0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2/logo.png",
		Network:     NetworkEthereum,
		CoingeckoID: "ethereum",
	},
	{
		Symbol:      "WBTC",
		Name:        "Wrapped Bitcoin",
		Mint:        "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
		Decimals:    8,
		LogoURI:     "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/ethereum/assets/0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599/logo.png",
		Network:     NetworkEthereum,
		CoingeckoID: "wrapped-bitcoin",
	},
}

// BySymbol looks a token up by its case-insensitive symbol.
func BySymbol(symbol string) (Token, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, t := range Supported {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// ByMint looks a token up by its chain address.
func ByMint(mint string) (Token, bool) {
	for _, t := range Supported {
		if t.Mint == mint {
			return t, true
		}
	}
	return Token{}, false
}

// ByNetwork returns the tokens registered for a network.
func ByNetwork(network string) []Token {
	var out []Token
	for _, t := range Supported {
		if t.Network == network {
			out = append(out, t)
		}
	}
	return out
}

// CoingeckoIDs collects the price-index identifiers of the given tokens,
// skipping tokens without one, preserving order.
func CoingeckoIDs(tokens []Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.CoingeckoID != "" {
			out = append(out, t.CoingeckoID)
		}
	}
	return out
}

// ValidateMint checks that a token's mint is well-formed for its network:
// a 32-byte base58 key on Solana, a hex address on EVM chains.
func ValidateMint(t Token) error {
	switch t.Network {
	case NetworkSolana:
		raw, err := base58.Decode(t.Mint)
		if err != nil {
			return fmt.Errorf("token %s: invalid base58 mint: %w", t.Symbol, err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("token %s: mint must be 32 bytes, got %d", t.Symbol, len(raw))
		}
	case NetworkEthereum, NetworkBSC:
		if !common.IsHexAddress(t.Mint) {
			return fmt.Errorf("token %s: invalid EVM address %q", t.Symbol, t.Mint)
		}
	default:
		return fmt.Errorf("token %s: unknown network %q", t.Symbol, t.Network)
	}
	return nil
}
