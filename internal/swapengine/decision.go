package swapengine

import (
	"fmt"

	"github.com/aman-zulfiqar/drift-toolkit/internal/pricing"
	"github.com/shopspring/decimal"
)

// Decision is the comparison of one quote against the oracle.
type Decision struct {
	SwapRate    decimal.Decimal
	OracleRatio decimal.Decimal
	SlippageBps decimal.Decimal
	Execute     bool
}

// Decide compares the quoted rate with price(in)/price(out).
func Decide(inAmount, outAmount uint64, inDecimals, outDecimals int32, priceIn, priceOut decimal.Decimal, maxSlippageBps int) (Decision, error) {
	rate, err := pricing.SwapRate(inAmount, outAmount, inDecimals, outDecimals)
	if err != nil {
		return Decision{}, err
	}
	ratio, err := pricing.OracleRatio(priceIn, priceOut)
	if err != nil {
		return Decision{}, err
	}
	slip, err := pricing.SlippageBps(rate, ratio)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		SwapRate:    rate,
		OracleRatio: ratio,
		SlippageBps: slip,
		Execute:     pricing.WithinTolerance(slip, maxSlippageBps),
	}, nil
}

// ChunkFor returns min(balance, chunk).
func ChunkFor(balance, chunk uint64) uint64 {
	if chunk == 0 || balance < chunk {
		return balance
	}
	return chunk
}

// ToRawAmount converts whole tokens to base units, e.g. 500 dSOL at 9 decimals.
func ToRawAmount(amount float64, decimals int32) (uint64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}
	raw := decimal.NewFromFloat(amount).Shift(decimals).Floor()
	if !raw.IsPositive() {
		return 0, fmt.Errorf("amount %v is below one base unit", amount)
	}
	if raw.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("amount %v overflows u64", amount)
	}
	return raw.BigInt().Uint64(), nil
}

func toWhole(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-decimals)
}
