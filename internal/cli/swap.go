package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swapsimplify/swaplab/internal/config"
	"github.com/swapsimplify/swaplab/internal/jupiter"
	"github.com/swapsimplify/swaplab/internal/rpc"
	"github.com/swapsimplify/swaplab/internal/swapengine"
	"github.com/swapsimplify/swaplab/internal/token"
	"github.com/swapsimplify/swaplab/internal/wallet"
)

var (
	swapSlippageBps int
	noConfirm       bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <FROM> to <TO>",
	Short: "Execute a token swap through the Jupiter aggregator",
	Long: `Quote and execute a Solana token swap signed with the local wallet key.

The wallet private key is read from SWAPLAB_WALLET_PRIVATE_KEY (base58 or a
solana-keygen JSON array). The key never leaves this machine; signing happens
locally and only the signed transaction is submitted.

Examples:
  swaplab swap 0.1 SOL to USDC
  swaplab swap 50 USDC to JUP --slippage-bps 100 --yes`,
	Args: cobra.ExactArgs(4),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().IntVar(&swapSlippageBps, "slippage-bps", 0, "Slippage tolerance in basis points (default 50)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	amountStr, from, to, err := parseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if from.Network != token.NetworkSolana || to.Network != token.NetworkSolana {
		printError(fmt.Errorf("only solana-network tokens are routable through the aggregator"))
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		printError(err)
		os.Exit(1)
	}

	w, err := wallet.New(cfg.WalletPrivateKey)
	if err != nil {
		printError(fmt.Errorf("set SWAPLAB_WALLET_PRIVATE_KEY to a base58 key or solana-keygen JSON array: %w", err))
		os.Exit(1)
	}

	logger := newLogger(verbose)
	slippage := swapSlippageBps
	if slippage <= 0 {
		slippage = cfg.SlippageBps
	}

	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, logger)
	chain := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	sess, err := swapengine.NewSession(swapengine.SessionConfig{
		Mode:        swapengine.ModeLive,
		Quotes:      jup,
		Executor:    jup,
		Balances:    chain,
		Signer:      w,
		Chain:       chain,
		Debounce:    cfg.QuoteDebounce,
		SlippageBps: slippage,
		Logger:      logger,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer sess.Close()

	ctx := context.Background()
	sess.Start(ctx)

	// Auth handshake: the local key both proves ownership and signs the swap.
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Signing in..."
	s.Start()

	sess.Connect(w.Address(), w)
	if err := sess.SignIn(); err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	if !waitFor(5*time.Second, func() bool {
		return sess.Snapshot().State == swapengine.StateReady
	}) {
		s.Stop()
		printError(fmt.Errorf("sign-in did not complete"))
		os.Exit(1)
	}
	s.Stop()
	color.Green("\n✓ Signed in as %s", w.Address())

	if err := sess.SetFromToken(from.Symbol); err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := sess.SetToToken(to.Symbol); err != nil {
		printError(err)
		os.Exit(1)
	}
	sess.SetAmount(amountStr)

	s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()

	if !waitFor(30*time.Second, func() bool { return sess.Quote() != nil }) {
		s.Stop()
		printError(fmt.Errorf("no quote received from the aggregator"))
		os.Exit(1)
	}
	s.Stop()

	snap := sess.Snapshot()
	displayQuote(sess.Quote(), amountStr, from, to)
	if from.Symbol == "SOL" {
		fmt.Printf("  Balance:       %.6f SOL\n\n", snap.Balance)
	}

	if !noConfirm && !confirmSwap() {
		fmt.Println("\nSwap cancelled.")
		os.Exit(0)
	}

	s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing swap..."
	s.Start()

	res, err := sess.Submit(ctx)
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !res.Success {
		color.Red("\n✗ Swap failed: %s\n", res.Error)
		os.Exit(1)
	}

	color.Green("\n✓ Swap submitted!")
	fmt.Printf("  Signature: %s\n", color.CyanString(res.Signature))
	fmt.Printf("  Explorer:  https://solscan.io/tx/%s\n\n", res.Signature)
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
