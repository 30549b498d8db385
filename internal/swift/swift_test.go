package swift

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keySigner struct{ key solana.PrivateKey }

func (k keySigner) SignMessage(msg []byte) (solana.Signature, error) { return k.key.Sign(msg) }
func (k keySigner) PublicKey() solana.PublicKey                      { return k.key.PublicKey() }

type failingSigner struct{ keySigner }

func (failingSigner) SignMessage([]byte) (solana.Signature, error) {
	return solana.Signature{}, errors.New("hsm offline")
}

type fixedSlot uint64

func (s fixedSlot) GetSlot(context.Context) (uint64, error) { return uint64(s), nil }

type fixedOracle decimal.Decimal

func (o fixedOracle) LatestPrice(context.Context, string) (pyth.Price, error) {
	return pyth.Price{Price: decimal.Decimal(o)}, nil
}

type fixedBook struct{ book *dlob.L2 }

func (f fixedBook) L2(context.Context, string, int) (*dlob.L2, error) { return f.book, nil }

func newSigner() keySigner { return keySigner{key: solana.NewWallet().PrivateKey} }

func solPerp(t *testing.T) drift.PerpMarket {
	m, err := drift.LookupPerpMarket("SOL-PERP")
	require.NoError(t, err)
	return m
}

func TestAuctionBand(t *testing.T) {
	start, end := AuctionBand(150_000_000, drift.DirectionLong)
	assert.Equal(t, int64(150_000_000), start)
	assert.Equal(t, int64(151_500_000), end)

	start, end = AuctionBand(150_000_000, drift.DirectionShort)
	assert.Equal(t, int64(151_500_000), start)
	assert.Equal(t, int64(150_000_000), end)

	// integer division truncates
	_, end = AuctionBand(199, drift.DirectionLong)
	assert.Equal(t, int64(200), end)
}

func TestNewUUID(t *testing.T) {
	a, b := NewUUID(), NewUUID()
	assert.NotEqual(t, a, b)
	for _, c := range a {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}

func TestSign_VerifiesOverHexMessage(t *testing.T) {
	signer := newSigner()
	msg, err := BuildMessage(context.Background(), OrderSpec{
		Market:          solPerp(t),
		Direction:       drift.DirectionLong,
		BaseAssetAmount: 100_000_000,
	}, OracleBand{Oracle: fixedOracle(decimal.RequireFromString("150"))}, fixedSlot(777))
	require.NoError(t, err)

	order, err := Sign(msg, signer)
	require.NoError(t, err)
	assert.True(t, order.Verify())
	assert.Equal(t, uint64(777), order.Slot())
	assert.Equal(t, signer.PublicKey(), order.Taker())

	raw, err := hex.DecodeString(order.Message())
	require.NoError(t, err)
	decoded, err := drift.DecodeSignedMsgOrderParamsMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), *decoded.Params.AuctionStartPrice)
	assert.Equal(t, int64(151_500_000), *decoded.Params.AuctionEndPrice)
	assert.Equal(t, DefaultAuctionDuration, *decoded.Params.AuctionDuration)
	assert.Equal(t, order.UUID(), string(decoded.UUID[:]))

	sig := order.Signature()
	assert.True(t, sig.Verify(signer.PublicKey(), []byte(order.Message())))
	assert.False(t, sig.Verify(signer.PublicKey(), raw))
}

func TestSign_PropagatesSignerError(t *testing.T) {
	msg := drift.SignedMsgOrderParamsMessage{Params: drift.OrderParams{BaseAssetAmount: 1}}
	_, err := Sign(msg, failingSigner{newSigner()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hsm offline")

	_, err = Sign(msg, nil)
	assert.Error(t, err)
}

func TestOrderbookBand(t *testing.T) {
	book := &dlob.L2{
		Bids: []dlob.Level{{Price: decimal.NewFromInt(149_000_000), Source: "vamm"}, {Price: decimal.NewFromInt(148_000_000)}},
		Asks: []dlob.Level{{Price: decimal.NewFromInt(151_000_000)}},
	}
	start, end, err := OrderbookBand{Book: fixedBook{book}}.Band(context.Background(), solPerp(t), drift.DirectionLong)
	require.NoError(t, err)
	assert.Equal(t, int64(151_000_000), start)
	assert.Equal(t, int64(148_000_000), end)

	_, _, err = OrderbookBand{Book: fixedBook{&dlob.L2{}}}.Band(context.Background(), solPerp(t), drift.DirectionLong)
	assert.ErrorIs(t, err, dlob.ErrNoLiquidity)
}

func TestBuildMessage_RejectsZeroSize(t *testing.T) {
	_, err := BuildMessage(context.Background(), OrderSpec{Market: solPerp(t)},
		OracleBand{Oracle: fixedOracle(decimal.NewFromInt(1))}, fixedSlot(1))
	assert.Error(t, err)
}

func TestSubmitOrder(t *testing.T) {
	signer := newSigner()
	order, err := Sign(drift.SignedMsgOrderParamsMessage{
		Params: drift.GetMarketOrderParams(drift.MarketOrderArgs{MarketType: drift.MarketTypePerp, BaseAssetAmount: 1}),
		UUID:   NewUUID(),
	}, signer)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint16(0), req.MarketIndex)
		assert.Equal(t, "perp", req.MarketType)
		assert.Equal(t, order.Message(), req.Message)
		assert.Equal(t, signer.PublicKey().String(), req.TakerPubkey)

		sig, err := base64.StdEncoding.DecodeString(req.Signature)
		require.NoError(t, err)
		assert.Len(t, sig, 64)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, 0).SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"ok"}`, string(resp.Body))
}

func TestSubmitOrder_Error(t *testing.T) {
	order, err := Sign(drift.SignedMsgOrderParamsMessage{}, newSigner())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("stale slot"))
	}))
	defer srv.Close()

	_, err = NewClient(srv.URL, 0).SubmitOrder(context.Background(), order)
	var subErr *SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Contains(t, subErr.Error(), "stale slot")
}

func TestSubmitDepositTrade(t *testing.T) {
	order, err := Sign(drift.SignedMsgOrderParamsMessage{}, newSigner())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/depositTrade", r.URL.Path)
		var req DepositTradeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AQID", req.DepositTx)
		assert.Equal(t, order.Message(), req.SwiftOrder.Message)
		_, _ = w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	resp, err := c.SubmitDepositTrade(context.Background(), "AQID", order)
	require.NoError(t, err)
	assert.JSONEq(t, `"accepted"`, string(resp.Body))

	_, err = c.SubmitDepositTrade(context.Background(), "", order)
	assert.Error(t, err)
}
