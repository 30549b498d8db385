package drift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
)

type PerpMarket struct {
	Name        string
	MarketIndex uint16
	// PythFeedID is the Hermes feed used as the oracle price source.
	PythFeedID string
}

type SpotMarket struct {
	Symbol      string
	MarketIndex uint16
	Mint        string
	Decimals    int32
}

var perpMarkets = map[string]PerpMarket{
	"SOL-PERP": {Name: "SOL-PERP", MarketIndex: 0, PythFeedID: constants.PythFeedSOLUSD},
	"BTC-PERP": {Name: "BTC-PERP", MarketIndex: 1, PythFeedID: "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43"},
	"ETH-PERP": {Name: "ETH-PERP", MarketIndex: 2, PythFeedID: "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"},
}

var spotMarkets = map[string]SpotMarket{
	"USDC": {Symbol: "USDC", MarketIndex: 0, Mint: constants.MintUSDC, Decimals: 6},
	"SOL":  {Symbol: "SOL", MarketIndex: 1, Mint: constants.MintWSOL, Decimals: 9},
	"dSOL": {Symbol: "dSOL", MarketIndex: 17, Mint: constants.MintDSOL, Decimals: 9},
}

// LookupPerpMarket accepts "SOL-PERP" or "sol".
func LookupPerpMarket(name string) (PerpMarket, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasSuffix(key, "-PERP") {
		key += "-PERP"
	}
	m, ok := perpMarkets[key]
	if !ok {
		return PerpMarket{}, fmt.Errorf("drift: unknown perp market %q (known: %s)", name, strings.Join(PerpMarketNames(), ", "))
	}
	return m, nil
}

func LookupSpotMarket(symbol string) (SpotMarket, error) {
	for k, m := range spotMarkets {
		if strings.EqualFold(k, strings.TrimSpace(symbol)) {
			return m, nil
		}
	}
	return SpotMarket{}, fmt.Errorf("drift: unknown spot market %q", symbol)
}

func PerpMarketNames() []string {
	names := make([]string, 0, len(perpMarkets))
	for k := range perpMarkets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
