package dlob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lvl(price int64, source string) Level {
	return Level{Price: decimal.NewFromInt(price), Size: decimal.NewFromInt(1), Source: source}
}

func TestFirstNonAMM(t *testing.T) {
	l, ok := FirstNonAMM([]Level{lvl(1, "vamm"), lvl(2, "dlob"), lvl(3, "")})
	require.True(t, ok)
	assert.Equal(t, int64(2), l.Price.IntPart())

	l, ok = FirstNonAMM([]Level{lvl(5, "")})
	require.True(t, ok)
	assert.Equal(t, int64(5), l.Price.IntPart())

	_, ok = FirstNonAMM([]Level{lvl(1, "vamm")})
	assert.False(t, ok)

	_, ok = FirstNonAMM(nil)
	assert.False(t, ok)
}

func TestBestBidAsk(t *testing.T) {
	book := &L2{
		Bids: []Level{lvl(149_900_000, "vamm"), lvl(149_800_000, "dlob")},
		Asks: []Level{lvl(150_100_000, "serum")},
	}
	bid, ask, err := book.BestBidAsk()
	require.NoError(t, err)
	assert.Equal(t, int64(149_800_000), bid)
	assert.Equal(t, int64(150_100_000), ask)

	book.Asks = []Level{lvl(150_000_000, "vamm")}
	_, _, err = book.BestBidAsk()
	assert.ErrorIs(t, err, ErrNoLiquidity)
}

func TestL2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/l2", r.URL.Path)
		assert.Equal(t, "SOL-PERP", r.URL.Query().Get("marketName"))
		assert.Equal(t, "10", r.URL.Query().Get("depth"))
		_, _ = w.Write([]byte(`{"bids":[{"price":"149900000","size":"1000000000","source":"vamm"},{"price":149800000,"size":"5","source":"dlob"}],"asks":[{"price":"150100000","size":"2","source":"dlob"}],"slot":42}`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL, 0).L2(context.Background(), "SOL-PERP", 10)
	require.NoError(t, err)
	assert.Equal(t, "SOL-PERP", book.MarketName)
	assert.Equal(t, uint64(42), book.Slot)
	require.Len(t, book.Bids, 2)

	bid, ask, err := book.BestBidAsk()
	require.NoError(t, err)
	assert.Equal(t, int64(149_800_000), bid)
	assert.Equal(t, int64(150_100_000), ask)
}

func TestL2_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).L2(context.Background(), "SOL-PERP", 10)
	assert.Error(t, err)
}
