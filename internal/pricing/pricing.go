// Package pricing holds the slippage arithmetic of the swap loop.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var bps = decimal.NewFromInt(10_000)

// SwapRate is out/in in whole-token units.
func SwapRate(inAmount, outAmount uint64, inDecimals, outDecimals int32) (decimal.Decimal, error) {
	if inAmount == 0 {
		return decimal.Zero, fmt.Errorf("pricing: inAmount is zero")
	}
	in := decimal.NewFromUint64(inAmount).Shift(-inDecimals)
	out := decimal.NewFromUint64(outAmount).Shift(-outDecimals)
	return out.Div(in), nil
}

// OracleRatio is price(in)/price(out), the fair number of output tokens per input token.
func OracleRatio(priceIn, priceOut decimal.Decimal) (decimal.Decimal, error) {
	if !priceIn.IsPositive() || !priceOut.IsPositive() {
		return decimal.Zero, fmt.Errorf("pricing: oracle prices must be positive (in=%s out=%s)", priceIn, priceOut)
	}
	return priceIn.Div(priceOut), nil
}

// SlippageBps returns (1 - swapRate/oracleRatio) * 10000. Positive means the
// swap pays worse than the oracle; negative means better.
func SlippageBps(swapRate, oracleRatio decimal.Decimal) (decimal.Decimal, error) {
	if !oracleRatio.IsPositive() {
		return decimal.Zero, fmt.Errorf("pricing: oracle ratio must be positive")
	}
	return decimal.NewFromInt(1).Sub(swapRate.Div(oracleRatio)).Mul(bps), nil
}

// WithinTolerance reports slippage <= maxBps.
func WithinTolerance(slippage decimal.Decimal, maxBps int) bool {
	return slippage.LessThanOrEqual(decimal.NewFromInt(int64(maxBps)))
}
