package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	projectrpc "github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/vaults"
	"github.com/aman-zulfiqar/drift-toolkit/internal/yields"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-memory storage.SwapCache
type memCache struct {
	mu      sync.Mutex
	swaps   []*models.SwapEvent
	reports map[string][]byte
	pingErr error
}

func newMemCache() *memCache { return &memCache{reports: map[string][]byte{}} }

func (m *memCache) RecordSwap(_ context.Context, s *models.SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps = append([]*models.SwapEvent{s}, m.swaps...)
	return nil
}

func (m *memCache) GetRecentSwaps(_ context.Context, limit int64) ([]*models.SwapEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int64(len(m.swaps)) < limit {
		limit = int64(len(m.swaps))
	}
	return m.swaps[:limit], nil
}

func (m *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.reports[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (m *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = b
	return nil
}

func (m *memCache) Ping(context.Context) error { return m.pingErr }
func (m *memCache) Close() error               { return nil }

type fakeYields struct {
	calls int
	err   error
}

func (f *fakeYields) Fetch(context.Context) (yields.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return yields.Snapshot{}, f.err
	}
	return yields.Snapshot{Entries: []yields.Entry{
		{Symbol: "jitoSOL", Percent: decimal.RequireFromString("7.41")},
		{Symbol: "JLP", Percent: decimal.RequireFromString("21.5")},
	}}, nil
}

type fakeVaults struct{}

func (fakeVaults) Reports(context.Context) ([]vaults.Report, error) {
	return []vaults.Report{{Name: "SOL Basis", Pubkey: "vault1", APYs: map[string]float64{"90d": 12.3}, MaxDrawdownPct: 1.5}}, nil
}

type fakeOrderbook struct{ latest map[string]*models.OrderbookUpdate }

func (f fakeOrderbook) LatestOrderbook(_ context.Context, market string) (*models.OrderbookUpdate, error) {
	return f.latest[market], nil
}

type fakeL2 struct{ err error }

func (f fakeL2) L2(_ context.Context, market string, _ int) (*dlob.L2, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dlob.L2{MarketName: market, Slot: 7}, nil
}

type noAccounts struct{}

func (noAccounts) GetAccountInfo(context.Context, string) (*projectrpc.AccountInfo, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, h *Handlers, cfg ServerConfig) http.Handler {
	t.Helper()
	if h.Logger == nil {
		h.Logger = logrus.New()
		h.Logger.SetOutput(io.Discard)
	}
	srv, err := NewServer(ServerDeps{Handlers: h, Config: cfg})
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	cache := newMemCache()
	h := newTestHandler(t, &Handlers{Cache: cache}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "ok", resp.Components["redis"])

	cache.pingErr = errors.New("connection refused")
	rec = do(t, h, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKey(t *testing.T) {
	h := newTestHandler(t, &Handlers{Yields: &fakeYields{}}, ServerConfig{APIKey: "secret"})

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/yields", "", "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/yields", "", "X-API-Key", "secret").Code)
	// health and metrics stay open for probes and scrapers
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "").Code)
}

func TestYields_Cached(t *testing.T) {
	src := &fakeYields{}
	h := newTestHandler(t, &Handlers{Yields: src, Cache: newMemCache(), ReportTTL: time.Minute}, ServerConfig{})

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/v1/yields", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp YieldsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Yields.Entries, 2)
		assert.Equal(t, "jitoSOL", resp.Yields.Entries[0].Symbol)
		assert.True(t, resp.Yields.Entries[1].Percent.Equal(decimal.RequireFromString("21.5")))
	}
	assert.Equal(t, 1, src.calls)
}

func TestYields_UpstreamError(t *testing.T) {
	h := newTestHandler(t, &Handlers{Yields: &fakeYields{err: errors.New("sanctum down")}, DevMode: true}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/yields", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "sanctum down")
}

func TestVaults(t *testing.T) {
	h := newTestHandler(t, &Handlers{Vaults: fakeVaults{}}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/vaults", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VaultsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 12.3, resp.Items[0].APYs["90d"])
}

func TestVolume(t *testing.T) {
	h := newTestHandler(t, &Handlers{Volume: noAccounts{}}, ServerConfig{})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/volume/not-a-key", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/volume/"+solana.NewWallet().PublicKey().String(), "").Code)
}

func TestOrderbook(t *testing.T) {
	streamed := &models.OrderbookUpdate{Channel: "orderbook", Market: "SOL-PERP", Data: json.RawMessage(`{"bids":[]}`)}
	h := newTestHandler(t, &Handlers{
		Orderbook: fakeOrderbook{latest: map[string]*models.OrderbookUpdate{"SOL-PERP": streamed}},
		DLOB:      fakeL2{},
	}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/orderbook/sol-perp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u models.OrderbookUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "orderbook", u.Channel)

	// nothing streamed for ETH-PERP, falls back to /l2
	rec = do(t, h, http.MethodGet, "/v1/orderbook/eth-perp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var book dlob.L2
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, "ETH-PERP", book.MarketName)
	assert.Equal(t, uint64(7), book.Slot)
}

func TestOrderbook_DLOBError(t *testing.T) {
	h := newTestHandler(t, &Handlers{DLOB: fakeL2{err: errors.New("timeout")}}, ServerConfig{})
	assert.Equal(t, http.StatusBadGateway, do(t, h, http.MethodGet, "/v1/orderbook/SOL-PERP", "").Code)
}

func TestRecentSwaps(t *testing.T) {
	cache := newMemCache()
	for _, sig := range []string{"a", "b", "c"} {
		require.NoError(t, cache.RecordSwap(context.Background(), &models.SwapEvent{Signature: sig}))
	}
	h := newTestHandler(t, &Handlers{Cache: cache}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/swaps/recent?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []*models.SwapEvent `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "c", resp.Items[0].Signature)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/swaps/recent?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/swaps/recent?limit=abc", "").Code)
}

func TestUnconfiguredBackends(t *testing.T) {
	h := newTestHandler(t, &Handlers{}, ServerConfig{})

	for _, target := range []string{
		"/v1/yields", "/v1/vaults", "/v1/swaps/recent", "/v1/trades/recent",
		"/v1/flags", "/v1/quote?amount=1", "/v1/orderbook/SOL-PERP",
		"/v1/volume/" + solana.NewWallet().PublicKey().String(),
	} {
		assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, target, "").Code, target)
	}
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/v1/ai/ask", `{"question":"volume?"}`).Code)
}

func TestFlagWrites_NeedKeyOrDevMode(t *testing.T) {
	body := `{"key":"ntswap.paused","enabled":true}`

	open := newTestHandler(t, &Handlers{}, ServerConfig{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, open, http.MethodGet, "/v1/flags", "").Code)
	// unmounted: the router answers before any handler runs
	unrouted := []int{http.StatusNotFound, http.StatusMethodNotAllowed}
	assert.Contains(t, unrouted, do(t, open, http.MethodPost, "/v1/flags", body).Code)
	assert.Contains(t, unrouted, do(t, open, http.MethodPut, "/v1/flags/ntswap.paused", body).Code)
	assert.Contains(t, unrouted, do(t, open, http.MethodDelete, "/v1/flags/ntswap.paused", "").Code)

	dev := newTestHandler(t, &Handlers{DevMode: true}, ServerConfig{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, dev, http.MethodPost, "/v1/flags", body).Code)

	keyed := newTestHandler(t, &Handlers{}, ServerConfig{APIKey: "secret"})
	assert.Equal(t, http.StatusUnauthorized, do(t, keyed, http.MethodPost, "/v1/flags", body).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, keyed, http.MethodPost, "/v1/flags", body, "X-API-Key", "secret").Code)
}

func TestQuote(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"inAmount":"1000000000","outAmount":"1030000000","swapMode":"ExactIn"}`))
	}))
	defer upstream.Close()

	h := newTestHandler(t, &Handlers{Jupiter: jupiter.NewClient(upstream.URL, "")}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v1/quote?amount=1000000000&slippageBps=20&dexes=Orca,+Raydium", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var q jupiter.QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "1030000000", q.OutAmount)
	assert.Contains(t, gotQuery, "inputMint=Dso1bDeDjCQxTrWHqUUi63oBvV7Mdm6WaobLbQ7gnPQ")
	assert.Contains(t, gotQuery, "slippageBps=20")
	assert.Contains(t, gotQuery, "dexes=Orca%2CRaydium")
	assert.Contains(t, rec.Body.String(), `"inputSymbol":"dSOL"`)
	assert.Contains(t, rec.Body.String(), `"outputSymbol":"SOL"`)

	rec = do(t, h, http.MethodGet, "/v1/quote?amount=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "invalid amount", e.Error)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/quote", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/quote?amount=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/quote?amount=1&swapMode=Both", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/quote?amount=1&outputMint="+constants.MintDSOL, "").Code)
}

func TestJSONErrorHandler_NotFound(t *testing.T) {
	h := newTestHandler(t, &Handlers{}, ServerConfig{})

	rec := do(t, h, http.MethodGet, "/v2/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestJSONErrorHandler_DevDetails(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	for _, dev := range []bool{false, true} {
		e := echo.New()
		e.HTTPErrorHandler = JSONErrorHandler(logger, dev)
		e.GET("/boom", func(echo.Context) error { return errors.New("ledger exploded") })

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "internal server error", resp.Error)
		if dev {
			assert.Contains(t, rec.Body.String(), "ledger exploded")
		} else {
			assert.Nil(t, resp.Details)
		}
	}
}
