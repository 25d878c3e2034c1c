package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swapsimplify/swaplab/internal/token"
)

var (
	filterNetwork string
	filterSymbol  string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all supported tokens",
	Long: `List the tokens in the static registry.

You can filter tokens by network or symbol.

Examples:
  swaplab tokens
  swaplab tokens --network solana
  swaplab tokens --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterNetwork, "network", "", "Filter by network")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Apply filters
	filtered := token.Supported
	if filterNetwork != "" {
		var temp []token.Token
		for _, t := range filtered {
			if strings.EqualFold(t.Network, filterNetwork) {
				temp = append(temp, t)
			}
		}
		filtered = temp
	}
	if filterSymbol != "" {
		var temp []token.Token
		for _, t := range filtered {
			if strings.Contains(t.Symbol, strings.ToUpper(filterSymbol)) {
				temp = append(temp, t)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayTokens(filtered)
}

func displayTokens(tokens []token.Token) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                          SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 80))

	// Group tokens by network
	byNetwork := make(map[string][]token.Token)
	for _, t := range tokens {
		byNetwork[t.Network] = append(byNetwork[t.Network], t)
	}

	for _, n := range token.SupportedNetworks {
		group := byNetwork[n.ID]
		if len(group) == 0 {
			continue
		}
		color.Cyan("\n%s:\n", n.Name)
		for _, t := range group {
			fmt.Printf("  %-6s %-18s decimals=%-3d %s\n",
				color.YellowString(t.Symbol), t.Name, t.Decimals, t.Mint)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80) + "\n")
}
