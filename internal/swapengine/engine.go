package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/metrics"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/sirupsen/logrus"
)

// Engine runs the quote/compare/act loop: read the source balance, quote a
// chunk, compare against the oracle, swap when slippage is acceptable.
type Engine struct {
	cfg      LoopConfig
	balance  BalanceReader
	quoter   Quoter
	oracle   OracleReader
	swapper  Swapper
	gate     Gate
	risk     *RiskManager
	recorder Recorder
	logger   *logrus.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Deps are the collaborators of an Engine. Swapper may be nil in scan mode;
// Gate, Risk and Recorder are optional.
type Deps struct {
	Balance  BalanceReader
	Quoter   Quoter
	Oracle   OracleReader
	Swapper  Swapper
	Gate     Gate
	Risk     *RiskManager
	Recorder Recorder
	Logger   *logrus.Logger
}

func NewEngine(cfg LoopConfig, deps Deps) (*Engine, error) {
	if deps.Balance == nil || deps.Quoter == nil || deps.Oracle == nil {
		return nil, fmt.Errorf("swapengine: balance, quoter and oracle are required")
	}
	if !cfg.ScanMode && deps.Swapper == nil {
		return nil, fmt.Errorf("swapengine: swapper is required outside scan mode")
	}
	if cfg.Sleep <= 0 {
		return nil, fmt.Errorf("swapengine: sleep must be > 0")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		cfg:      cfg,
		balance:  deps.Balance,
		quoter:   deps.Quoter,
		oracle:   deps.Oracle,
		swapper:  deps.Swapper,
		gate:     deps.Gate,
		risk:     deps.Risk,
		recorder: deps.Recorder,
		logger:   logger,
		sleep:    sleepCtx,
		now:      time.Now,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run loops until the balance reaches zero (returns nil) or ctx ends
// (returns ctx.Err()).
func (e *Engine) Run(ctx context.Context) error {
	mode := "live"
	if e.cfg.ScanMode {
		mode = "scan"
	}
	e.logger.WithFields(logrus.Fields{
		"mode":         mode,
		"pair":         e.pair(),
		"max_slippage": e.cfg.MaxSlippageBps,
		"chunk":        toWhole(e.cfg.ChunkSize, e.cfg.InputDecimals).String(),
		"sleep":        e.cfg.Sleep,
	}).Info("swap loop started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := e.Step(ctx)
		metrics.SwapIterations.WithLabelValues(string(res.Outcome)).Inc()

		if res.Outcome == OutcomeDone {
			e.logger.Info("done")
			return nil
		}

		if err := e.sleep(ctx, e.cfg.Sleep); err != nil {
			return err
		}
	}
}

// Step performs one iteration without sleeping.
func (e *Engine) Step(ctx context.Context) StepResult {
	if e.gate != nil && e.gate.Paused(ctx) {
		e.logger.Info("paused by flag, skipping iteration")
		return StepResult{Outcome: OutcomePaused}
	}

	bal, err := e.balance.Balance(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("balance read failed")
		return StepResult{Outcome: OutcomeBalanceError, Err: err}
	}
	metrics.SourceBalance.Set(toWhole(bal, e.cfg.InputDecimals).InexactFloat64())
	if bal == 0 {
		return StepResult{Outcome: OutcomeDone}
	}

	res := StepResult{Balance: bal, Chunk: ChunkFor(bal, e.cfg.ChunkSize)}

	quote, err := e.quoter.Quote(ctx, res.Chunk)
	if err == nil {
		res.InAmount, res.OutAmount, err = quote.Amounts()
	}
	if err != nil {
		e.logger.WithError(err).WithField("amount", res.Chunk).Warn("quote error, retrying")
		res.Outcome, res.Err = OutcomeQuoteError, err
		return res
	}

	priceIn, priceOut, err := e.oracle.Prices(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("oracle read failed")
		res.Outcome, res.Err = OutcomeOracleError, err
		return res
	}

	d, err := Decide(res.InAmount, res.OutAmount, e.cfg.InputDecimals, e.cfg.OutputDecimals, priceIn, priceOut, e.cfg.MaxSlippageBps)
	if err != nil {
		e.logger.WithError(err).Warn("slippage computation failed")
		res.Outcome, res.Err = OutcomeOracleError, err
		return res
	}
	res.SwapRate, res.OracleRatio, res.SlippageBps = d.SwapRate, d.OracleRatio, d.SlippageBps
	metrics.LastSlippageBps.Set(d.SlippageBps.InexactFloat64())

	e.logger.Infof("bal=%s %s  slippage=%sbps  (swap=%s oracle=%s)",
		toWhole(bal, e.cfg.InputDecimals).StringFixed(2), e.cfg.InputSymbol,
		d.SlippageBps.StringFixed(2), d.SwapRate.StringFixed(4), d.OracleRatio.StringFixed(4))

	if !d.Execute {
		res.Outcome = OutcomeAboveThreshold
		return res
	}

	if e.risk != nil {
		if err := e.risk.Check(res.Chunk, quote); err != nil {
			e.logger.WithError(err).Warn("risk check rejected swap")
			res.Outcome, res.Err = OutcomeRiskRejected, err
			return res
		}
	}

	if e.cfg.ScanMode {
		e.logger.WithField("amount", toWhole(res.Chunk, e.cfg.InputDecimals).String()).Info("would swap")
		metrics.SwapsExecuted.WithLabelValues("scan", "skipped").Inc()
		res.Outcome = OutcomeWouldSwap
		return res
	}

	sig, err := e.swapper.Swap(ctx, quote)
	if err != nil {
		e.logger.WithError(err).Error("swap failed")
		metrics.SwapsExecuted.WithLabelValues("live", "failed").Inc()
		res.Outcome, res.Err = OutcomeSwapFailed, err
		return res
	}

	metrics.SwapsExecuted.WithLabelValues("live", "ok").Inc()
	if e.risk != nil {
		e.risk.Record(res.Chunk)
	}
	e.logger.WithFields(logrus.Fields{
		"signature": sig,
		"in":        toWhole(res.InAmount, e.cfg.InputDecimals).String(),
		"out":       toWhole(res.OutAmount, e.cfg.OutputDecimals).String(),
	}).Info("swapped")

	res.Outcome, res.Signature = OutcomeSwapped, sig
	e.record(ctx, res)
	return res
}

func (e *Engine) record(ctx context.Context, res StepResult) {
	if e.recorder == nil {
		return
	}
	ev := &models.SwapEvent{
		Signature:   res.Signature,
		Timestamp:   e.now().UTC(),
		Pair:        e.pair(),
		TokenIn:     e.cfg.InputSymbol,
		TokenOut:    e.cfg.OutputSymbol,
		AmountIn:    toWhole(res.InAmount, e.cfg.InputDecimals).InexactFloat64(),
		AmountOut:   toWhole(res.OutAmount, e.cfg.OutputDecimals).InexactFloat64(),
		Price:       res.SwapRate.InexactFloat64(),
		OraclePrice: res.OracleRatio.InexactFloat64(),
		SlippageBps: res.SlippageBps.InexactFloat64(),
		Dex:         "Jupiter",
	}
	if err := e.recorder.RecordSwap(ctx, ev); err != nil {
		e.logger.WithError(err).WithField("signature", res.Signature).Warn("failed to record swap")
	}
}

func (e *Engine) pair() string {
	return e.cfg.InputSymbol + "-" + e.cfg.OutputSymbol
}
