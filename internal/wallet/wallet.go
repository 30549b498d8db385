// Package wallet holds the signing key of the toolkit binaries and the
// transaction plumbing (blockhash, send, simulate, confirm) around it.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	projectrpc "github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

type WalletConfig struct {
	// RPC is used as-is when set; otherwise a client is built from RPCURL.
	RPC          *projectrpc.Client
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// PrivateKey is a base58 64-byte secret, a solana-keygen JSON array, or
	// the path of a solana-keygen file.
	PrivateKey string

	// AllowEphemeral generates a throwaway keypair when PrivateKey is empty.
	AllowEphemeral bool

	DefaultCommitment   string // confirmation target, default "confirmed"
	SkipPreflight       bool
	PreflightCommitment string // default "processed"
}

type Wallet struct {
	cfg       WalletConfig
	rpc       *projectrpc.Client
	priv      solana.PrivateKey
	pub       solana.PublicKey
	ephemeral bool
}

func (c *WalletConfig) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.DefaultCommitment == "" {
		c.DefaultCommitment = "confirmed"
	}
	if c.PreflightCommitment == "" {
		c.PreflightCommitment = "processed"
	}
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPC == nil && cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	cfg.setDefaults()

	w := &Wallet{cfg: cfg, rpc: cfg.RPC}
	if w.rpc == nil {
		w.rpc = projectrpc.NewClient(projectrpc.ClientConfig{
			BaseURL:      cfg.RPCURL,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Commitment:   cfg.DefaultCommitment,
		})
	}

	var err error
	switch {
	case strings.TrimSpace(cfg.PrivateKey) != "":
		w.priv, err = parsePrivateKey(cfg.PrivateKey)
	case cfg.AllowEphemeral:
		w.priv, err = solana.NewRandomPrivateKey()
		w.ephemeral = true
	default:
		err = fmt.Errorf("PrivateKey is required")
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	w.pub = w.priv.PublicKey()
	return w, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Ephemeral() bool             { return w.ephemeral }

// SignMessage returns the ed25519 signature of msg under the wallet key.
func (w *Wallet) SignMessage(msg []byte) (solana.Signature, error) {
	if len(msg) == 0 {
		return solana.Signature{}, fmt.Errorf("wallet: refusing to sign empty message")
	}
	sig, err := w.priv.Sign(msg)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("wallet: sign message: %w", err)
	}
	return sig, nil
}

// AccountExists reports whether getAccountInfo returns an account for pubkey.
func (w *Wallet) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	info, err := w.rpc.GetAccountInfo(ctx, pubkey.String())
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".json") {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("read keypair file: %w", err)
		}
		s = strings.TrimSpace(string(b))
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("invalid JSON private key: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid byte at %d: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		if raw, err = base58.Decode(s); err != nil {
			return nil, fmt.Errorf("invalid base58 private key: %w", err)
		}
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("expected %d key bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
