package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swapsimplify/swaplab/internal/config"
	"github.com/swapsimplify/swaplab/internal/prices"
	"github.com/swapsimplify/swaplab/internal/token"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show current USD prices for all supported tokens",
	Long: `Fetch current USD spot prices from CoinGecko for every token in the
registry. When the price index is unreachable, static fallback prices are
shown instead, so the command always succeeds.`,
	Run: runPrices,
}

func init() {
	rootCmd.AddCommand(pricesCmd)
}

func runPrices(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg := config.Load()
	client := prices.NewClient(cfg.CoingeckoBaseURL, newLogger(verbose))

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching prices..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	data := client.FetchTokenPrices(ctx, token.CoingeckoIDs(token.Supported))

	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    TOKEN PRICES (USD)")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	for _, t := range token.Supported {
		p, ok := data[t.CoingeckoID]
		if !ok {
			continue
		}
		change := color.GreenString("%+.2f%%", p.USD24hChange)
		if p.USD24hChange < 0 {
			change = color.RedString("%+.2f%%", p.USD24hChange)
		}
		fmt.Printf("  %-6s $%-14.6f 24h: %s\n", color.YellowString(t.Symbol), p.USD, change)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
