package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet holds a local ed25519 keypair and provides the message- and
// transaction-signing capabilities the auth gate and swap execution need.
// It is always passed in explicitly, never looked up from globals.
type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New parses a private key given either as a base58 string or as a
// solana-keygen JSON byte array.
func New(privateKey string) (*Wallet, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// NewRandom generates an ephemeral wallet, used in tests.
func NewRandom() (*Wallet, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

// SignMessage signs an arbitrary message with the wallet key.
func (w *Wallet) SignMessage(msg []byte) ([]byte, error) {
	sig, err := w.priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

// SignTransaction signs a transaction for every required key this wallet
// holds and returns it.
func (w *Wallet) SignTransaction(tx *solana.Transaction) (*solana.Transaction, error) {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(b), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
