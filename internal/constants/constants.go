package constants

import "time"

// Program addresses
const (
	DriftProgramID = "dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH"
)

// Token mint addresses
const (
	MintWSOL = "So11111111111111111111111111111111111111112"
	MintDSOL = "Dso1bDeDjCQxTrWHqUUi63oBvV7Mdm6WaobLbQ7gnPQ"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// Token mint addresses to symbols
var TokenSymbols = map[string]string{
	MintWSOL: "SOL",
	MintDSOL: "dSOL",
	MintUSDC: "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "jitoSOL",
	"5oVNBeEEQvYi1cX3ir8Dx5n1P7pdxydbGF2X4TxVusJm": "INF",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
}

// Pyth price feed ids (hex, no 0x prefix)
const (
	PythFeedSOLUSD = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
)

// Redis keys
const (
	RedisKeyReportPrefix = "report:"
	FlagSwapPaused       = "ntswap.paused"
)

// Redis Pub/Sub channels
const (
	PubSubChannelOrderbookPrefix = "dlob:orderbook:"
)

// Cache lifetimes
const (
	ReportCacheTTL    = 30 * time.Second
	OrderbookCacheTTL = 5 * time.Second
)

// Limits
const (
	MaxRecentTrades = 100
	DLOBDepth       = 10
)

// SymbolFor returns the known symbol for mint, or the mint itself.
func SymbolFor(mint string) string {
	if s, ok := TokenSymbols[mint]; ok {
		return s
	}
	return mint
}
