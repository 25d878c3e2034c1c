package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swaplab",
	Short: "A CLI for Solana token swaps with a practice mode",
	Long: `swaplab quotes and executes Solana token swaps through the Jupiter
aggregator, and offers a simulated mode priced from CoinGecko for trying
swaps without touching the chain.

Examples:
  swaplab tokens
  swaplab prices
  swaplab simulate 1.5 SOL to USDC
  swaplab quote 1 SOL to USDC
  swaplab swap 0.1 SOL to USDC`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

// newLogger builds the CLI logger. Verbose mode surfaces the retry and
// session logs that are otherwise suppressed.
func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.ErrorLevel)
	}
	return logger
}
