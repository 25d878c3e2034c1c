package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swapsimplify/swaplab/internal/config"
	"github.com/swapsimplify/swaplab/internal/prices"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <amount> <FROM> to <TO>",
	Short: "Preview a swap at index prices without touching the chain",
	Long: `Convert an amount between two registry tokens at current CoinGecko
prices with a flat 0.5% slippage haircut. Nothing is signed or submitted.

Examples:
  swaplab simulate 1.5 SOL to USDC
  swaplab simulate 100 USDC to BONK`,
	Args: cobra.ExactArgs(4),
	Run:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	amountStr, from, to, err := parseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	amount, _ := strconv.ParseFloat(amountStr, 64)

	cfg := config.Load()
	client := prices.NewClient(cfg.CoingeckoBaseURL, newLogger(verbose))

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching prices..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	data := client.FetchTokenPrices(ctx, []string{from.CoingeckoID, to.CoingeckoID})

	if !jsonOutput {
		s.Stop()
	}

	fp := data[from.CoingeckoID].USD
	tp := data[to.CoingeckoID].USD
	out := prices.CalculateSwapAmount(amount, fp, tp, prices.DefaultSlippagePct)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]any{
			"fromToken":    from.Symbol,
			"toToken":      to.Symbol,
			"inputAmount":  amountStr,
			"outputAmount": strconv.FormatFloat(out, 'f', 6, 64),
			"fromPriceUsd": fp,
			"toPriceUsd":   tp,
			"slippagePct":  prices.DefaultSlippagePct,
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println()
	fmt.Printf("  %s %s  @ $%.6f\n", amountStr, color.YellowString(from.Symbol), fp)
	fmt.Printf("  %s %s  @ $%.6f\n", color.GreenString("~%.6f", out), color.YellowString(to.Symbol), tp)
	fmt.Printf("\n  Slippage: %.1f%% (simulated, nothing was submitted)\n\n", prices.DefaultSlippagePct)
}
