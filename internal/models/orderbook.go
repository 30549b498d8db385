package models

import (
	"encoding/json"
	"time"
)

// OrderbookUpdate is one message from the DLOB websocket orderbook channel.
// Data is kept raw; the server's payload shape varies by channel.
type OrderbookUpdate struct {
	Channel    string          `json:"channel"`
	Market     string          `json:"market"`
	MarketType string          `json:"market_type"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       json.RawMessage `json:"data"`
}
