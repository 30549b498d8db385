package swift

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// DefaultAuctionDuration is the auction length in slots.
const DefaultAuctionDuration uint8 = 50

// MessageSigner signs raw bytes with the taker key.
type MessageSigner interface {
	SignMessage(msg []byte) (solana.Signature, error)
	PublicKey() solana.PublicKey
}

// AuctionBand derives the auction start/end prices from an oracle price with
// a fixed 1% offset. Longs start at the oracle and end 1% above, shorts the reverse.
func AuctionBand(oraclePrice int64, dir drift.PositionDirection) (start, end int64) {
	low := oraclePrice
	high := oraclePrice * 101 / 100
	if dir == drift.DirectionLong {
		return low, high
	}
	return high, low
}

// NewUUID returns 8 random ASCII characters used to identify a signed order.
func NewUUID() [8]byte {
	var out [8]byte
	copy(out[:], strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return out
}

// SignedOrder is a signed message ready for submission. It cannot be mutated
// after signing.
type SignedOrder struct {
	marketIndex uint16
	marketType  drift.MarketType
	message     string // hex(discriminator || borsh)
	signature   solana.Signature
	taker       solana.PublicKey
	uuid        [8]byte
	slot        uint64
}

// Sign encodes msg, hex-encodes it and signs the hex bytes.
func Sign(msg drift.SignedMsgOrderParamsMessage, signer MessageSigner) (*SignedOrder, error) {
	if signer == nil {
		return nil, fmt.Errorf("swift: signer is required")
	}
	raw, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	hexMsg := hex.EncodeToString(raw)

	sig, err := signer.SignMessage([]byte(hexMsg))
	if err != nil {
		return nil, fmt.Errorf("swift: sign order message: %w", err)
	}

	return &SignedOrder{
		marketIndex: msg.Params.MarketIndex,
		marketType:  msg.Params.MarketType,
		message:     hexMsg,
		signature:   sig,
		taker:       signer.PublicKey(),
		uuid:        msg.UUID,
		slot:        msg.Slot,
	}, nil
}

func (o *SignedOrder) MarketIndex() uint16          { return o.marketIndex }
func (o *SignedOrder) MarketType() drift.MarketType { return o.marketType }
func (o *SignedOrder) Message() string              { return o.message }
func (o *SignedOrder) Signature() solana.Signature  { return o.signature }
func (o *SignedOrder) Taker() solana.PublicKey      { return o.taker }
func (o *SignedOrder) UUID() string                 { return string(o.uuid[:]) }
func (o *SignedOrder) Slot() uint64                 { return o.slot }

// Verify checks the signature against the hex message and taker key.
func (o *SignedOrder) Verify() bool {
	return o.signature.Verify(o.taker, []byte(o.message))
}

// OrderRequest is the JSON body of POST /orders.
type OrderRequest struct {
	MarketIndex uint16 `json:"market_index"`
	MarketType  string `json:"market_type"`
	Message     string `json:"message"`
	Signature   string `json:"signature"`
	TakerPubkey string `json:"taker_pubkey"`
}

func (o *SignedOrder) Request() OrderRequest {
	return OrderRequest{
		MarketIndex: o.marketIndex,
		MarketType:  o.marketType.String(),
		Message:     o.message,
		Signature:   base64.StdEncoding.EncodeToString(o.signature[:]),
		TakerPubkey: o.taker.String(),
	}
}

// DepositTradeRequest is the JSON body of POST /depositTrade.
type DepositTradeRequest struct {
	DepositTx  string       `json:"deposit_tx"`
	SwiftOrder OrderRequest `json:"swift_order"`
}
