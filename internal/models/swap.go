package models

import "time"

// SwapEvent is one swap executed by the ntswap loop.
type SwapEvent struct {
	Signature   string    `json:"signature"`
	Timestamp   time.Time `json:"timestamp"`
	Pair        string    `json:"pair"`
	TokenIn     string    `json:"token_in"`
	TokenOut    string    `json:"token_out"`
	AmountIn    float64   `json:"amount_in"`
	AmountOut   float64   `json:"amount_out"`
	Price       float64   `json:"price"`        // out per in, from the quote
	OraclePrice float64   `json:"oracle_price"` // out per in, from the oracle
	SlippageBps float64   `json:"slippage_bps"`
	Dex         string    `json:"dex"` // e.g. "Jupiter"
}
