package models

import "time"

// TradeRecord is one fill row from the Drift data API tradeRecords CSV.
type TradeRecord struct {
	Ts                     time.Time `json:"ts"`
	TxSig                  string    `json:"tx_sig"`
	Slot                   uint64    `json:"slot"`
	MarketIndex            uint16    `json:"market_index"`
	MarketType             string    `json:"market_type"`
	Action                 string    `json:"action"`
	ActionExplanation      string    `json:"action_explanation"`
	Taker                  string    `json:"taker"`
	TakerOrderDirection    string    `json:"taker_order_direction"`
	Maker                  string    `json:"maker"`
	MakerOrderDirection    string    `json:"maker_order_direction"`
	BaseAssetAmountFilled  float64   `json:"base_asset_amount_filled"`
	QuoteAssetAmountFilled float64   `json:"quote_asset_amount_filled"`
	OraclePrice            float64   `json:"oracle_price"`
	TakerFee               float64   `json:"taker_fee"`
	MakerFee               float64   `json:"maker_fee"`
}

// Price is the fill price in quote per base.
func (t *TradeRecord) Price() float64 {
	if t.BaseAssetAmountFilled == 0 {
		return 0
	}
	return t.QuoteAssetAmountFilled / t.BaseAssetAmountFilled
}
