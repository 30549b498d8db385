package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
	"github.com/aman-zulfiqar/drift-toolkit/internal/spl"
	"github.com/aman-zulfiqar/drift-toolkit/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ATABalance reads the owner's associated token account for mint.
type ATABalance struct {
	RPC   spl.TokenBalanceReader
	Owner solana.PublicKey
	Mint  solana.PublicKey
}

func (b ATABalance) Balance(ctx context.Context) (uint64, error) {
	return spl.ATABalance(ctx, b.RPC, b.Owner, b.Mint)
}

type QuoteClient interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
}

// JupiterQuoter requests ExactIn quotes for a fixed pair.
type JupiterQuoter struct {
	Client      QuoteClient
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	SlippageBps uint16
}

func (q JupiterQuoter) Quote(ctx context.Context, amount uint64) (*jupiter.QuoteResponse, error) {
	slippage := q.SlippageBps
	return q.Client.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   q.InputMint.String(),
		OutputMint:  q.OutputMint.String(),
		Amount:      amount,
		SlippageBps: &slippage,
		SwapMode:    jupiter.SwapModeExactIn,
	})
}

type PriceClient interface {
	LatestPrices(ctx context.Context, feedIDs ...string) (map[string]pyth.Price, error)
}

// PythOracle reads both legs from Pyth Hermes in one request.
type PythOracle struct {
	Client  PriceClient
	FeedIn  string
	FeedOut string
}

func (o PythOracle) Prices(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	prices, err := o.Client.LatestPrices(ctx, o.FeedIn, o.FeedOut)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	in, ok := lookupPrice(prices, o.FeedIn)
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("oracle: feed %s missing", o.FeedIn)
	}
	out, ok := lookupPrice(prices, o.FeedOut)
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("oracle: feed %s missing", o.FeedOut)
	}
	return in, out, nil
}

func lookupPrice(prices map[string]pyth.Price, id string) (decimal.Decimal, bool) {
	for k, p := range prices {
		if pyth.SameFeed(k, id) {
			return p.Price, true
		}
	}
	return decimal.Zero, false
}

type SwapClient interface {
	Swap(ctx context.Context, req jupiter.SwapRequest) (*jupiter.SwapResponse, error)
}

// TxSender is the part of wallet.Wallet the executor needs.
type TxSender interface {
	PublicKey() solana.PublicKey
	SignTx(tx *solana.Transaction) error
	SendTx(ctx context.Context, tx *solana.Transaction, opts *wallet.SendOptions) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error
}

// Executor turns a Jupiter quote into a confirmed on-chain swap.
type Executor struct {
	jup    SwapClient
	wallet TxSender

	confirmTimeout time.Duration
}

func NewExecutor(jup SwapClient, w TxSender) *Executor {
	return &Executor{
		jup:            jup,
		wallet:         w,
		confirmTimeout: 60 * time.Second,
	}
}

func (e *Executor) WithConfirmTimeout(d time.Duration) *Executor {
	if d > 0 {
		e.confirmTimeout = d
	}
	return e
}

// Spender is the account every swap debits: Jupiter builds the transaction
// for the signer's token accounts.
func (e *Executor) Spender() solana.PublicKey { return e.wallet.PublicKey() }

// LiveBalance is the balance source for a loop executing through ex. The loop
// stops when this balance reaches zero, so it must be read from the account
// the swaps spend. A signer other than the vault authority is refused.
func LiveBalance(rpc spl.TokenBalanceReader, authority, mint solana.PublicKey, ex *Executor) (ATABalance, error) {
	if spender := ex.Spender(); !spender.Equals(authority) {
		return ATABalance{}, fmt.Errorf("swapengine: signer %s is not the vault authority %s", spender, authority)
	}
	return ATABalance{RPC: rpc, Owner: authority, Mint: mint}, nil
}

// Swap requests the swap transaction, signs, sends and waits for confirmation.
func (e *Executor) Swap(ctx context.Context, quote *jupiter.QuoteResponse) (string, error) {
	if quote == nil {
		return "", fmt.Errorf("quote is nil")
	}

	resp, err := e.jup.Swap(ctx, jupiter.SwapRequest{
		UserPublicKey:           e.wallet.PublicKey().String(),
		QuoteResponse:           quote,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return "", fmt.Errorf("swap request: %w", err)
	}

	tx, err := wallet.DecodeTransaction(resp.SwapTransaction)
	if err != nil {
		return "", err
	}

	if err := e.wallet.SignTx(tx); err != nil {
		return "", err
	}

	sig, err := e.wallet.SendTx(ctx, tx, nil)
	if err != nil {
		return "", err
	}

	if err := e.wallet.ConfirmTransaction(ctx, sig, e.confirmTimeout); err != nil {
		return sig, fmt.Errorf("confirm %s: %w", sig, err)
	}
	return sig, nil
}
