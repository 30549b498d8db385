package trades

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `ts,txSig,slot,marketIndex,marketType,action,taker,takerOrderDirection,maker,baseAssetAmountFilled,quoteAssetAmountFilled,oraclePrice,takerFee,extra
1717200000,sigA,270000000,0,perp,fill,TakerA,long,MakerA,2.5,375.25,150.1,0.13,x
1717200060,sigB,270000100,1,perp,fill,TakerB,short,,0.01,680,68000,0.24,
`

func TestParseCSV(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	a := recs[0]
	assert.Equal(t, time.Unix(1717200000, 0).UTC(), a.Ts)
	assert.Equal(t, "sigA", a.TxSig)
	assert.Equal(t, uint64(270000000), a.Slot)
	assert.Equal(t, "long", a.TakerOrderDirection)
	assert.Equal(t, 2.5, a.BaseAssetAmountFilled)
	assert.InDelta(t, 150.1, a.Price(), 1e-9)
	assert.Zero(t, a.MakerFee, "missing column stays zero")

	assert.Equal(t, uint16(1), recs[1].MarketIndex)
	assert.Empty(t, recs[1].Maker)
}

func TestParseCSV_EmptyAndBad(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = ParseCSV(strings.NewReader("ts,slot\n1,notanumber\n"))
	assert.Error(t, err)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))

	again, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, recs, again)
}

func TestDaysAndURL(t *testing.T) {
	start, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	end, err := ParseDate("2024-03-01")
	require.NoError(t, err)

	days, err := Days(start, end)
	require.NoError(t, err)
	require.Len(t, days, 3, "leap day included")
	assert.Equal(t, "https://data.api.drift.trade/user/ACC/tradeRecords/2024/20240229",
		DayURL("https://data.api.drift.trade/", "ACC", days[1]))

	_, err = Days(end, start)
	assert.Error(t, err)
	_, err = ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestFetchRange_SkipsFailedDays(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "20240101"):
			_, _ = io.WriteString(w, sampleCSV)
		case strings.HasSuffix(r.URL.Path, "20240102"):
			http.NotFound(w, r)
		case strings.HasSuffix(r.URL.Path, "20240103"):
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			_, _ = io.WriteString(w, "ts,txSig\n")
		}
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewClient(srv.URL, 0, logger)

	start, _ := ParseDate("2024-01-01")
	end, _ := ParseDate("2024-01-04")
	recs, err := c.FetchRange(context.Background(), "ACC", start, end)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Len(t, paths, 4)
	assert.Equal(t, "/user/ACC/tradeRecords/2024/20240101", paths[0])
}
