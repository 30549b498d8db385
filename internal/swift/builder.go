package swift

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
)

type SlotReader interface {
	GetSlot(ctx context.Context) (uint64, error)
}

// BandSource yields auction start/end prices (PRICE_PRECISION) for a market.
type BandSource interface {
	Band(ctx context.Context, market drift.PerpMarket, dir drift.PositionDirection) (start, end int64, err error)
}

type OracleReader interface {
	LatestPrice(ctx context.Context, feedID string) (pyth.Price, error)
}

// OracleBand prices the auction off the market's oracle with a 1% band.
type OracleBand struct {
	Oracle OracleReader
}

func (o OracleBand) Band(ctx context.Context, market drift.PerpMarket, dir drift.PositionDirection) (int64, int64, error) {
	p, err := o.Oracle.LatestPrice(ctx, market.PythFeedID)
	if err != nil {
		return 0, 0, fmt.Errorf("oracle price for %s: %w", market.Name, err)
	}
	start, end := AuctionBand(drift.PriceFromDecimal(p.Price), dir)
	return start, end, nil
}

type BookReader interface {
	L2(ctx context.Context, marketName string, depth int) (*dlob.L2, error)
}

// OrderbookBand starts the auction at the best ask and ends at the best bid,
// ignoring vAMM levels.
type OrderbookBand struct {
	Book BookReader
}

func (o OrderbookBand) Band(ctx context.Context, market drift.PerpMarket, _ drift.PositionDirection) (int64, int64, error) {
	book, err := o.Book.L2(ctx, market.Name, constants.DLOBDepth)
	if err != nil {
		return 0, 0, err
	}
	bid, ask, err := book.BestBidAsk()
	if err != nil {
		return 0, 0, err
	}
	return ask, bid, nil
}

// OrderSpec describes a market order to be placed through Swift.
type OrderSpec struct {
	Market          drift.PerpMarket
	Direction       drift.PositionDirection
	BaseAssetAmount uint64
	SubAccountID    uint16
	AuctionDuration uint8
}

// BuildMessage prices the auction, attaches the current slot and a fresh uuid.
func BuildMessage(ctx context.Context, req OrderSpec, band BandSource, slots SlotReader) (drift.SignedMsgOrderParamsMessage, error) {
	if req.BaseAssetAmount == 0 {
		return drift.SignedMsgOrderParamsMessage{}, fmt.Errorf("swift: base asset amount must be > 0")
	}
	duration := req.AuctionDuration
	if duration == 0 {
		duration = DefaultAuctionDuration
	}

	start, end, err := band.Band(ctx, req.Market, req.Direction)
	if err != nil {
		return drift.SignedMsgOrderParamsMessage{}, err
	}

	slot, err := slots.GetSlot(ctx)
	if err != nil {
		return drift.SignedMsgOrderParamsMessage{}, fmt.Errorf("swift: get slot: %w", err)
	}

	params := drift.GetMarketOrderParams(drift.MarketOrderArgs{
		MarketIndex:       req.Market.MarketIndex,
		MarketType:        drift.MarketTypePerp,
		Direction:         req.Direction,
		BaseAssetAmount:   req.BaseAssetAmount,
		AuctionStartPrice: &start,
		AuctionEndPrice:   &end,
		AuctionDuration:   &duration,
	})

	return drift.SignedMsgOrderParamsMessage{
		Params:       params,
		SubAccountID: req.SubAccountID,
		Slot:         slot,
		UUID:         NewUUID(),
	}, nil
}
