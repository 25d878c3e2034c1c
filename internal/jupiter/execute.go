package jupiter

import (
	"context"
	"encoding/base64"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/swapsimplify/swaplab/internal/rpc"
)

// TransactionSigner obtains a signed transaction from whoever holds the
// keys. A user declining in their wallet surfaces here as an error.
type TransactionSigner interface {
	SignTransaction(tx *solana.Transaction) (*solana.Transaction, error)
}

// ChainConnection is the slice of the chain RPC surface ExecuteSwap needs.
// *rpc.Client implements it; tests substitute fakes.
type ChainConnection interface {
	SendRawTransaction(ctx context.Context, txBase64 string, opts rpc.SendOptions) (string, error)
	ConfirmTransaction(ctx context.Context, signature, commitment string) (*rpc.Confirmation, error)
}

// ExecuteSwap builds, signs, submits and confirms the swap described by
// quote. It never returns an error: every failure anywhere in the sequence
// is converted into SwapResult.
func (c *Client) ExecuteSwap(
	ctx context.Context,
	quote *Quote,
	userPublicKey string,
	signer TransactionSigner,
	conn ChainConnection,
) SwapResult {
	blob, err := c.GetSwapTransaction(ctx, quote, userPublicKey)
	if err != nil {
		return c.failure(err)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return c.failure(err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return c.failure(err)
	}

	signed, err := signer.SignTransaction(tx)
	if err != nil {
		return c.failure(err)
	}

	signedRaw, err := signed.MarshalBinary()
	if err != nil {
		return c.failure(err)
	}

	// Preflight is skipped: the aggregator already sized the route, and the
	// node retries the send up to twice on our behalf.
	sig, err := conn.SendRawTransaction(ctx, base64.StdEncoding.EncodeToString(signedRaw), rpc.SendOptions{
		SkipPreflight: true,
		MaxRetries:    2,
	})
	if err != nil {
		return c.failure(err)
	}

	conf, err := conn.ConfirmTransaction(ctx, sig, "confirmed")
	if err != nil {
		return c.failure(err)
	}
	if conf == nil || conf.Err != nil {
		return SwapResult{Success: false, Error: "Transaction failed to confirm"}
	}

	return SwapResult{Success: true, Signature: sig}
}

func (c *Client) failure(err error) SwapResult {
	c.Logger.WithError(err).Error("swap execution failed")
	return SwapResult{Success: false, Error: err.Error()}
}
