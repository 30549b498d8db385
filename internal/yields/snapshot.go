// Package yields aggregates SOL-denominated yields from Sanctum LSTs,
// Exponent markets and the JLP pool account into one ordered snapshot.
package yields

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Entry is one symbol's yield in percent, e.g. {"jitoSOL", 7.41}.
type Entry struct {
	Symbol  string          `json:"symbol"`
	Percent decimal.Decimal `json:"percent"`
}

// Snapshot keeps entries in report order.
type Snapshot struct {
	Entries []Entry `json:"entries"`
}

func (s *Snapshot) add(symbol string, pct decimal.Decimal) {
	s.Entries = append(s.Entries, Entry{Symbol: symbol, Percent: pct})
}

func (s Snapshot) Get(symbol string) (decimal.Decimal, bool) {
	for _, e := range s.Entries {
		if e.Symbol == symbol {
			return e.Percent, true
		}
	}
	return decimal.Zero, false
}

// Print writes one "SYMBOL: 12.34%" line per entry.
func (s Snapshot) Print(w io.Writer) error {
	for _, e := range s.Entries {
		if _, err := fmt.Fprintf(w, "%s: %s%%\n", e.Symbol, e.Percent.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

// CompoundToAPY converts a simple APR in percent to an APY compounded n times
// per period: ((1 + apr/100/n)^n - 1) * 100.
func CompoundToAPY(aprPct decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return aprPct
	}
	periods := decimal.NewFromInt(int64(n))
	base := decimal.NewFromInt(1).Add(aprPct.Div(hundred).Div(periods))
	return base.Pow(periods).Sub(decimal.NewFromInt(1)).Mul(hundred)
}
