package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// SendOptions overrides the wallet's preflight settings for one send.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

const defaultSendRetries = 3

// SendTx submits a signed transaction and returns its signature. A nil opts
// uses the wallet config.
func (w *Wallet) SendTx(ctx context.Context, tx *solana.Transaction, opts *SendOptions) (string, error) {
	if opts == nil {
		retries := defaultSendRetries
		opts = &SendOptions{
			SkipPreflight:       w.cfg.SkipPreflight,
			PreflightCommitment: w.cfg.PreflightCommitment,
			MaxRetries:          &retries,
		}
	}

	encoded, err := EncodeTransaction(tx)
	if err != nil {
		return "", err
	}
	sendCfg := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       opts.SkipPreflight,
		"preflightCommitment": opts.PreflightCommitment,
	}
	if opts.MaxRetries != nil {
		sendCfg["maxRetries"] = *opts.MaxRetries
	}

	var sig string
	if err := w.rpc.Call(ctx, "sendTransaction", []any{encoded, sendCfg}, &sig); err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	return sig, nil
}

// GetLatestBlockhash fetches the most recent blockhash at the preflight commitment.
func (w *Wallet) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var res struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	params := []any{map[string]any{"commitment": w.cfg.PreflightCommitment}}
	if err := w.rpc.Call(ctx, "getLatestBlockhash", params, &res); err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	hash, err := solana.HashFromBase58(res.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash %q: %w", res.Value.Blockhash, err)
	}
	return hash, nil
}

type SimulationResult struct {
	Success       bool
	Error         string
	Logs          []string
	UnitsConsumed uint64
}

// SimulateTransaction runs tx through simulateTransaction without signature
// checks. A failed simulation returns both the result (for its logs) and an error.
func (w *Wallet) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	encoded, err := EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}

	var res struct {
		Value struct {
			Err           any      `json:"err"`
			Logs          []string `json:"logs"`
			UnitsConsumed uint64   `json:"unitsConsumed"`
		} `json:"value"`
	}
	params := []any{encoded, map[string]any{
		"encoding":   "base64",
		"commitment": "processed",
		"sigVerify":  false,
	}}
	if err := w.rpc.Call(ctx, "simulateTransaction", params, &res); err != nil {
		return nil, fmt.Errorf("simulateTransaction: %w", err)
	}

	out := &SimulationResult{
		Success:       res.Value.Err == nil,
		Logs:          res.Value.Logs,
		UnitsConsumed: res.Value.UnitsConsumed,
	}
	if !out.Success {
		out.Error = fmt.Sprint(res.Value.Err)
		return out, fmt.Errorf("simulation failed: %s", out.Error)
	}
	return out, nil
}

var commitmentRank = map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}

// ConfirmTransaction polls getSignatureStatuses until the signature reaches
// the wallet's default commitment, fails on chain, or timeout elapses.
func (w *Wallet) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	want := commitmentRank[w.cfg.DefaultCommitment]
	delay := 500 * time.Millisecond
	for {
		got, err := w.signatureCommitment(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("transaction confirmation timeout after %v", timeout)
			}
			return err
		}
		if got > 0 && got >= want {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction confirmation timeout after %v", timeout)
		case <-time.After(delay):
		}
		delay = min(delay*2, 4*time.Second)
	}
}

// signatureCommitment returns the rank of the signature's confirmation status,
// 0 while the node has not seen it.
func (w *Wallet) signatureCommitment(ctx context.Context, signature string) (int, error) {
	var res struct {
		Value []*struct {
			Slot               uint64 `json:"slot"`
			Err                any    `json:"err"`
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	params := []any{[]string{signature}, map[string]any{"searchTransactionHistory": true}}
	if err := w.rpc.Call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return 0, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return 0, nil
	}
	status := res.Value[0]
	if status.Err != nil {
		return 0, fmt.Errorf("transaction failed: %v", status.Err)
	}
	return commitmentRank[status.ConfirmationStatus], nil
}

// BuildTransaction creates a transaction paid by the wallet with a fresh blockhash.
func (w *Wallet) BuildTransaction(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := w.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.pub))
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

// BuildSignedTransaction builds and signs a transaction without sending it.
func (w *Wallet) BuildSignedTransaction(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	tx, err := w.BuildTransaction(ctx, instructions)
	if err != nil {
		return nil, err
	}
	if err := w.SignTx(tx); err != nil {
		return nil, err
	}
	return tx, nil
}
