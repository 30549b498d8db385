package drift

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	PricePrecision = decimal.New(1, 6)
	BasePrecision  = decimal.New(1, 9)
	QuotePrecision = decimal.New(1, 6)

	maxUint64 = decimal.RequireFromString("18446744073709551615")
)

// ConvertToPerpPrecision scales a base amount (e.g. 0.1 SOL) to BASE_PRECISION.
func ConvertToPerpPrecision(amount decimal.Decimal) (uint64, error) {
	return scale(amount, BasePrecision)
}

// ConvertToSpotPrecision scales a token amount by the mint's decimals.
func ConvertToSpotPrecision(amount decimal.Decimal, decimals int32) (uint64, error) {
	return scale(amount, decimal.New(1, decimals))
}

// PriceFromDecimal converts a USD price to PRICE_PRECISION.
func PriceFromDecimal(price decimal.Decimal) int64 {
	return price.Mul(PricePrecision).Truncate(0).IntPart()
}

// PriceToDecimal converts a PRICE_PRECISION integer to a USD price.
func PriceToDecimal(p int64) decimal.Decimal {
	return decimal.NewFromInt(p).Div(PricePrecision)
}

// QuoteToDecimal converts a QUOTE_PRECISION integer (e.g. volume) to USD.
func QuoteToDecimal(q uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(q), 0).Div(QuotePrecision)
}

func scale(amount decimal.Decimal, precision decimal.Decimal) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("drift: amount must be > 0, got %s", amount)
	}
	v := amount.Mul(precision).Truncate(0)
	if v.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("drift: amount %s overflows u64", amount)
	}
	if v.IsZero() {
		return 0, fmt.Errorf("drift: amount %s is below precision", amount)
	}
	return v.BigInt().Uint64(), nil
}
