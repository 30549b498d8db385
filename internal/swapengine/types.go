package swapengine

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// LoopConfig holds the polling loop parameters.
type LoopConfig struct {
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	InputSymbol    string
	OutputSymbol   string
	InputDecimals  int32
	OutputDecimals int32

	// ChunkSize is the largest amount quoted per iteration, in raw input units.
	ChunkSize      uint64
	MaxSlippageBps int
	Sleep          time.Duration

	// ScanMode logs "would swap" instead of executing.
	ScanMode bool
}

// Outcome labels what one iteration did. The values double as metric labels.
type Outcome string

const (
	OutcomeDone           Outcome = "done"
	OutcomePaused         Outcome = "paused"
	OutcomeBalanceError   Outcome = "balance_error"
	OutcomeQuoteError     Outcome = "quote_error"
	OutcomeOracleError    Outcome = "oracle_error"
	OutcomeAboveThreshold Outcome = "above_threshold"
	OutcomeRiskRejected   Outcome = "risk_rejected"
	OutcomeWouldSwap      Outcome = "would_swap"
	OutcomeSwapped        Outcome = "swapped"
	OutcomeSwapFailed     Outcome = "swap_failed"
)

// StepResult is the record of a single iteration.
type StepResult struct {
	Outcome     Outcome
	Balance     uint64
	Chunk       uint64
	InAmount    uint64
	OutAmount   uint64
	SwapRate    decimal.Decimal
	OracleRatio decimal.Decimal
	SlippageBps decimal.Decimal
	Signature   string
	Err         error
}

type BalanceReader interface {
	Balance(ctx context.Context) (uint64, error)
}

type Quoter interface {
	Quote(ctx context.Context, amount uint64) (*jupiter.QuoteResponse, error)
}

// OracleReader returns USD prices of the input and output assets.
type OracleReader interface {
	Prices(ctx context.Context) (in, out decimal.Decimal, err error)
}

// Swapper executes a quoted swap and returns the confirmed signature.
type Swapper interface {
	Swap(ctx context.Context, quote *jupiter.QuoteResponse) (string, error)
}

type Gate interface {
	Paused(ctx context.Context) bool
}

// Recorder persists executed swaps. Failures are logged, never fatal.
type Recorder interface {
	RecordSwap(ctx context.Context, ev *models.SwapEvent) error
}
