package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swapsimplify/swaplab/internal/token"
)

// parseSwapArgs parses the "<amount> <FROM> to <TO>" argument form shared by
// the simulate, quote and swap commands.
func parseSwapArgs(args []string) (amount string, from, to token.Token, err error) {
	if len(args) != 4 || !strings.EqualFold(args[2], "to") {
		return "", token.Token{}, token.Token{}, fmt.Errorf("expected: <amount> <FROM> to <TO>, e.g. 1.5 SOL to USDC")
	}

	amount = strings.TrimSpace(args[0])
	if v, perr := strconv.ParseFloat(amount, 64); perr != nil || v <= 0 {
		return "", token.Token{}, token.Token{}, fmt.Errorf("invalid amount %q: must be a positive number", args[0])
	}

	from, ok := token.BySymbol(args[1])
	if !ok {
		return "", token.Token{}, token.Token{}, fmt.Errorf("unknown token %q (try: swaplab tokens)", args[1])
	}
	to, ok = token.BySymbol(args[3])
	if !ok {
		return "", token.Token{}, token.Token{}, fmt.Errorf("unknown token %q (try: swaplab tokens)", args[3])
	}
	if from.Symbol == to.Symbol {
		return "", token.Token{}, token.Token{}, fmt.Errorf("tokens must differ")
	}
	return amount, from, to, nil
}
