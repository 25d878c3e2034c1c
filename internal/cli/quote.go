package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swapsimplify/swaplab/internal/config"
	"github.com/swapsimplify/swaplab/internal/jupiter"
	"github.com/swapsimplify/swaplab/internal/token"
)

var quoteSlippageBps int

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <FROM> to <TO>",
	Short: "Fetch a live quote from the Jupiter aggregator",
	Long: `Fetch a priced route from the Jupiter aggregator without executing it.
Only Solana-network tokens are routable.

Examples:
  swaplab quote 1 SOL to USDC
  swaplab quote 100 USDC to JUP --slippage-bps 100`,
	Args: cobra.ExactArgs(4),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().IntVar(&quoteSlippageBps, "slippage-bps", 0, "Slippage tolerance in basis points (default 50)")
}

func runQuote(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	amountStr, from, to, err := parseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if from.Network != token.NetworkSolana || to.Network != token.NetworkSolana {
		printError(fmt.Errorf("only solana-network tokens are routable through the aggregator"))
		os.Exit(1)
	}
	amount, _ := strconv.ParseFloat(amountStr, 64)
	baseUnits := uint64(math.Trunc(amount * math.Pow(10, float64(from.Decimals))))

	cfg := config.Load()
	client := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, newLogger(verbose))

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	quote, err := client.GetQuote(ctx, from.Mint, to.Mint, baseUnits, quoteSlippageBps)

	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(quote, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuote(quote, amountStr, from, to)
}

func displayQuote(quote *jupiter.Quote, amountStr string, from, to token.Token) {
	outAmount := "?"
	if raw, err := strconv.ParseUint(quote.OutAmount, 10, 64); err == nil {
		outAmount = strconv.FormatFloat(
			float64(raw)/math.Pow(10, float64(to.Decimals)), 'f', 6, 64)
	}

	fmt.Println()
	color.Green("  QUOTE")
	fmt.Printf("  From:          %s %s\n", amountStr, color.YellowString(from.Symbol))
	fmt.Printf("  To:            ~%s %s\n", outAmount, color.YellowString(to.Symbol))
	fmt.Printf("  Price impact:  %s%%\n", quote.PriceImpactPct)
	fmt.Printf("  Route steps:   %d\n", len(quote.RoutePlan))
	fmt.Printf("  Slippage:      %d bps\n\n", quote.SlippageBps)
}
