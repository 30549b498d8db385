package drift

import (
	"fmt"
	"strings"
)

type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeTriggerMarket
	OrderTypeTriggerLimit
	OrderTypeOracle
)

type MarketType uint8

const (
	MarketTypeSpot MarketType = iota
	MarketTypePerp
)

// String returns the lowercase name used by the Swift API ("perp", "spot").
func (m MarketType) String() string {
	if m == MarketTypePerp {
		return "perp"
	}
	return "spot"
}

type PositionDirection uint8

const (
	DirectionLong PositionDirection = iota
	DirectionShort
)

func (d PositionDirection) String() string {
	if d == DirectionShort {
		return "short"
	}
	return "long"
}

// ParseDirection accepts "long"/"short" (case-insensitive).
func ParseDirection(s string) (PositionDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return DirectionLong, nil
	case "short", "sell":
		return DirectionShort, nil
	}
	return 0, fmt.Errorf("drift: unknown direction %q", s)
}

type PostOnlyParam uint8

const (
	PostOnlyNone PostOnlyParam = iota
	PostOnlyMustPostOnly
	PostOnlyTryPostOnly
	PostOnlySlide
)

type OrderTriggerCondition uint8

const (
	TriggerAbove OrderTriggerCondition = iota
	TriggerBelow
	TriggerTriggeredAbove
	TriggerTriggeredBelow
)

// OrderParams mirrors the program's OrderParams argument. Pointer fields are
// borsh Options.
type OrderParams struct {
	OrderType         OrderType
	MarketType        MarketType
	Direction         PositionDirection
	UserOrderID       uint8
	BaseAssetAmount   uint64
	Price             uint64
	MarketIndex       uint16
	ReduceOnly        bool
	PostOnly          PostOnlyParam
	BitFlags          uint8
	MaxTs             *int64
	TriggerPrice      *uint64
	TriggerCondition  OrderTriggerCondition
	OraclePriceOffset *int32
	AuctionDuration   *uint8
	AuctionStartPrice *int64
	AuctionEndPrice   *int64
}

// SignedMsgTriggerOrderParams is an optional take-profit or stop-loss leg.
type SignedMsgTriggerOrderParams struct {
	TriggerPrice    uint64
	BaseAssetAmount uint64
}

// SignedMsgOrderParamsMessage is the payload a taker signs for Swift.
type SignedMsgOrderParamsMessage struct {
	Params       OrderParams
	SubAccountID uint16
	Slot         uint64
	UUID         [8]byte
	TakeProfit   *SignedMsgTriggerOrderParams
	StopLoss     *SignedMsgTriggerOrderParams
}

// MarketOrderArgs are the caller-chosen fields of a market order.
type MarketOrderArgs struct {
	MarketIndex       uint16
	MarketType        MarketType
	Direction         PositionDirection
	BaseAssetAmount   uint64
	AuctionStartPrice *int64
	AuctionEndPrice   *int64
	AuctionDuration   *uint8
	ReduceOnly        bool
}

// GetMarketOrderParams fills a MARKET order with the program defaults.
func GetMarketOrderParams(a MarketOrderArgs) OrderParams {
	return OrderParams{
		OrderType:         OrderTypeMarket,
		MarketType:        a.MarketType,
		Direction:         a.Direction,
		BaseAssetAmount:   a.BaseAssetAmount,
		MarketIndex:       a.MarketIndex,
		ReduceOnly:        a.ReduceOnly,
		PostOnly:          PostOnlyNone,
		TriggerCondition:  TriggerAbove,
		AuctionDuration:   a.AuctionDuration,
		AuctionStartPrice: a.AuctionStartPrice,
		AuctionEndPrice:   a.AuctionEndPrice,
	}
}
