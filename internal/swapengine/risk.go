package swapengine

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
)

// RiskConfig bounds what the loop may execute. Zero disables a check.
type RiskConfig struct {
	// DailyLimit caps raw input units swapped in a rolling 24h window.
	DailyLimit uint64

	// MaxPriceImpactBps rejects quotes whose priceImpactPct exceeds it.
	MaxPriceImpactBps uint16
}

// RiskManager enforces RiskConfig across iterations.
type RiskManager struct {
	config       RiskConfig
	dailyTracker *DailyLimitTracker
}

func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config:       config,
		dailyTracker: NewDailyLimitTracker(),
	}
}

// Check returns a non-nil error describing the first rule the swap breaks.
func (rm *RiskManager) Check(amount uint64, quote *jupiter.QuoteResponse) error {
	if rm.config.DailyLimit > 0 {
		used := rm.dailyTracker.Usage()
		if used+amount > rm.config.DailyLimit {
			return fmt.Errorf("daily limit exceeded: used %d + %d > %d", used, amount, rm.config.DailyLimit)
		}
	}

	if rm.config.MaxPriceImpactBps > 0 && quote != nil && quote.PriceImpactPct != "" {
		impact, err := strconv.ParseFloat(quote.PriceImpactPct, 64)
		if err != nil {
			return fmt.Errorf("invalid priceImpactPct %q: %w", quote.PriceImpactPct, err)
		}
		// priceImpactPct is a fraction, e.g. "0.0012" = 12 bps
		if impact*10000 > float64(rm.config.MaxPriceImpactBps) {
			return fmt.Errorf("price impact %.2f%% exceeds max %.2f%%",
				impact*100, float64(rm.config.MaxPriceImpactBps)/100)
		}
	}
	return nil
}

// Record counts an executed swap against the daily limit.
func (rm *RiskManager) Record(amount uint64) {
	rm.dailyTracker.Record(amount)
}

// DailyUsage reports raw units swapped in the last 24h.
func (rm *RiskManager) DailyUsage() uint64 {
	return rm.dailyTracker.Usage()
}

// DailyLimitTracker tracks rolling 24-hour usage.
type DailyLimitTracker struct {
	mu    sync.Mutex
	swaps []swapRecord
	now   func() time.Time
}

type swapRecord struct {
	timestamp time.Time
	amount    uint64
}

func NewDailyLimitTracker() *DailyLimitTracker {
	return &DailyLimitTracker{now: time.Now}
}

func (t *DailyLimitTracker) Record(amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.swaps = append(t.swaps, swapRecord{timestamp: t.now(), amount: amount})
}

func (t *DailyLimitTracker) Usage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup()

	var total uint64
	for _, s := range t.swaps {
		total += s.amount
	}
	return total
}

// cleanup drops swaps older than 24 hours. Callers hold mu.
func (t *DailyLimitTracker) cleanup() {
	cutoff := t.now().Add(-24 * time.Hour)

	kept := t.swaps[:0]
	for _, s := range t.swaps {
		if s.timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.swaps = kept
}
