package swapengine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalance struct {
	values []uint64
	err    error
	calls  int
}

func (f *fakeBalance) Balance(context.Context) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.values) == 0 {
		return 0, nil
	}
	v := f.values[0]
	if len(f.values) > 1 {
		f.values = f.values[1:]
	}
	return v, nil
}

type fakeQuoter struct {
	out     string
	err     error
	amounts []uint64
}

func (f *fakeQuoter) Quote(_ context.Context, amount uint64) (*jupiter.QuoteResponse, error) {
	f.amounts = append(f.amounts, amount)
	if f.err != nil {
		return nil, f.err
	}
	return &jupiter.QuoteResponse{
		InAmount:  decimal.NewFromUint64(amount).String(),
		OutAmount: f.out,
	}, nil
}

type fakeOracle struct{ in, out decimal.Decimal }

func (f fakeOracle) Prices(context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return f.in, f.out, nil
}

type fakeSwapper struct {
	mu     sync.Mutex
	quotes []*jupiter.QuoteResponse
	err    error
}

func (f *fakeSwapper) Swap(_ context.Context, q *jupiter.QuoteResponse) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes = append(f.quotes, q)
	if f.err != nil {
		return "", f.err
	}
	return "5igSig", nil
}

type fakeRecorder struct{ events []*models.SwapEvent }

func (f *fakeRecorder) RecordSwap(_ context.Context, ev *models.SwapEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type gateFunc func() bool

func (g gateFunc) Paused(context.Context) bool { return g() }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func loopConfig(scan bool) LoopConfig {
	return LoopConfig{
		InputMint:      solana.MustPublicKeyFromBase58("Dso1bDeDjCQxTrWHqUUi63oBvV7Mdm6WaobLbQ7gnPQ"),
		OutputMint:     solana.SolMint,
		InputSymbol:    "dSOL",
		OutputSymbol:   "SOL",
		InputDecimals:  9,
		OutputDecimals: 9,
		ChunkSize:      500_000_000_000,
		MaxSlippageBps: 20,
		Sleep:          time.Second,
		ScanMode:       scan,
	}
}

// dSOL at 1.05 SOL.
var oracle = fakeOracle{in: decimal.NewFromInt(210), out: decimal.NewFromInt(200)}

func newTestEngine(t *testing.T, cfg LoopConfig, deps Deps) (*Engine, *[]time.Duration) {
	t.Helper()
	deps.Logger = quietLogger()
	e, err := NewEngine(cfg, deps)
	require.NoError(t, err)

	var sleeps []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return e, &sleeps
}

func TestRun_ZeroBalanceIsDone(t *testing.T) {
	q := &fakeQuoter{out: "1"}
	e, sleeps := newTestEngine(t, loopConfig(true), Deps{
		Balance: &fakeBalance{values: []uint64{0}},
		Quoter:  q,
		Oracle:  oracle,
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Empty(t, q.amounts, "no quote when balance is zero")
	assert.Empty(t, *sleeps)
}

func TestRun_QuoteErrorSleepsWithoutSwap(t *testing.T) {
	q := &fakeQuoter{err: errors.New("no route")}
	sw := &fakeSwapper{}
	e, sleeps := newTestEngine(t, loopConfig(false), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000, 0}},
		Quoter:  q,
		Oracle:  oracle,
		Swapper: sw,
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Len(t, q.amounts, 1)
	assert.Equal(t, []time.Duration{time.Second}, *sleeps)
	assert.Empty(t, sw.quotes)
}

func TestStep_QuoteErrorField(t *testing.T) {
	sw := &fakeSwapper{}
	e, _ := newTestEngine(t, loopConfig(false), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000}},
		Quoter:  errorFieldQuoter{},
		Oracle:  oracle,
		Swapper: sw,
	})

	res := e.Step(context.Background())
	assert.Equal(t, OutcomeQuoteError, res.Outcome)
	assert.Error(t, res.Err)
	assert.Empty(t, sw.quotes)
}

type errorFieldQuoter struct{}

func (errorFieldQuoter) Quote(context.Context, uint64) (*jupiter.QuoteResponse, error) {
	return &jupiter.QuoteResponse{Error: "Could not find any route"}, nil
}

func TestStep_ScanModeOnlyLogs(t *testing.T) {
	e, _ := newTestEngine(t, loopConfig(true), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000}},
		Quoter:  &fakeQuoter{out: "1049000000"},
		Oracle:  oracle,
	})

	res := e.Step(context.Background())
	assert.Equal(t, OutcomeWouldSwap, res.Outcome)
	assert.Equal(t, "9.52", res.SlippageBps.StringFixed(2))
}

func TestStep_SwapsWithinThreshold(t *testing.T) {
	sw := &fakeSwapper{}
	rec := &fakeRecorder{}
	risk := NewRiskManager(RiskConfig{DailyLimit: 10_000_000_000})
	e, _ := newTestEngine(t, loopConfig(false), Deps{
		Balance:  &fakeBalance{values: []uint64{2_000_000_000}},
		Quoter:   &fakeQuoter{out: "2098000000"},
		Oracle:   oracle,
		Swapper:  sw,
		Risk:     risk,
		Recorder: rec,
	})

	res := e.Step(context.Background())
	require.Equal(t, OutcomeSwapped, res.Outcome)
	assert.Equal(t, "5igSig", res.Signature)
	require.Len(t, sw.quotes, 1)
	assert.Equal(t, "2000000000", sw.quotes[0].InAmount)
	assert.Equal(t, uint64(2_000_000_000), risk.DailyUsage())

	require.Len(t, rec.events, 1)
	assert.Equal(t, "dSOL-SOL", rec.events[0].Pair)
	assert.InDelta(t, 2.0, rec.events[0].AmountIn, 1e-9)
	assert.InDelta(t, 1.049, rec.events[0].Price, 1e-9)
}

func TestStep_AboveThresholdWaits(t *testing.T) {
	sw := &fakeSwapper{}
	e, _ := newTestEngine(t, loopConfig(false), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000}},
		Quoter:  &fakeQuoter{out: "1000000000"},
		Oracle:  oracle,
		Swapper: sw,
	})

	res := e.Step(context.Background())
	assert.Equal(t, OutcomeAboveThreshold, res.Outcome)
	assert.True(t, res.SlippageBps.GreaterThan(decimal.NewFromInt(400)))
	assert.Empty(t, sw.quotes)
}

func TestStep_ChunksLargeBalance(t *testing.T) {
	q := &fakeQuoter{out: "1"}
	cfg := loopConfig(true)
	cfg.ChunkSize = 500_000_000_000
	e, _ := newTestEngine(t, cfg, Deps{
		Balance: &fakeBalance{values: []uint64{750_000_000_000}},
		Quoter:  q,
		Oracle:  oracle,
	})

	res := e.Step(context.Background())
	assert.Equal(t, uint64(500_000_000_000), res.Chunk)
	assert.Equal(t, []uint64{500_000_000_000}, q.amounts)
}

func TestStep_PausedSkipsEverything(t *testing.T) {
	bal := &fakeBalance{values: []uint64{1}}
	e, _ := newTestEngine(t, loopConfig(true), Deps{
		Balance: bal,
		Quoter:  &fakeQuoter{},
		Oracle:  oracle,
		Gate:    gateFunc(func() bool { return true }),
	})

	assert.Equal(t, OutcomePaused, e.Step(context.Background()).Outcome)
	assert.Zero(t, bal.calls)
}

func TestStep_RiskRejects(t *testing.T) {
	sw := &fakeSwapper{}
	e, _ := newTestEngine(t, loopConfig(false), Deps{
		Balance: &fakeBalance{values: []uint64{2_000_000_000}},
		Quoter:  &fakeQuoter{out: "2098000000"},
		Oracle:  oracle,
		Swapper: sw,
		Risk:    NewRiskManager(RiskConfig{DailyLimit: 1_000_000_000}),
	})

	assert.Equal(t, OutcomeRiskRejected, e.Step(context.Background()).Outcome)
	assert.Empty(t, sw.quotes)
}

func TestStep_SwapFailureIsNotFatal(t *testing.T) {
	e, sleeps := newTestEngine(t, loopConfig(false), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000, 0}},
		Quoter:  &fakeQuoter{out: "1049000000"},
		Oracle:  oracle,
		Swapper: &fakeSwapper{err: errors.New("blockhash expired")},
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Len(t, *sleeps, 1)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e, _ := newTestEngine(t, loopConfig(true), Deps{
		Balance: &fakeBalance{values: []uint64{1_000_000_000}},
		Quoter:  &fakeQuoter{err: errors.New("down")},
		Oracle:  oracle,
	})
	e.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(loopConfig(true), Deps{})
	assert.Error(t, err)

	_, err = NewEngine(loopConfig(false), Deps{Balance: &fakeBalance{}, Quoter: &fakeQuoter{}, Oracle: oracle})
	assert.Error(t, err, "live mode needs a swapper")

	cfg := loopConfig(true)
	cfg.Sleep = 0
	_, err = NewEngine(cfg, Deps{Balance: &fakeBalance{}, Quoter: &fakeQuoter{}, Oracle: oracle})
	assert.Error(t, err)
}
