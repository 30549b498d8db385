package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/cache"
	"github.com/aman-zulfiqar/drift-toolkit/internal/flags"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/aman-zulfiqar/drift-toolkit/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key-integration"

func setupIntegrationTest(t *testing.T) (string, *redis.Client) {
	// Check if Redis is available
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	// Clear test DB
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Cache:     cache.NewRedisCacheFromClient(redisClient, logger),
			Flags:     flagStore,
			Orderbook: cache.NewPubSubManager(redisClient, logger),
			DevMode:   true,
			Logger:    logger,
			ReportTTL: time.Minute,
		},
		Config: server.ServerConfig{DevMode: true, APIKey: testAPIKey},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = redisClient.FlushDB(context.Background()).Err()
		_ = redisClient.Close()
	})

	return ts.URL, redisClient
}

func makeRequest(t *testing.T, method, url string, body interface{}, expectedStatus int) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	base, _ := setupIntegrationTest(t)

	resp := makeRequest(t, http.MethodGet, base+"/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.OK)
	assert.Equal(t, "ok", response.Components["redis"])
}

func TestIntegration_FlagsCRUD(t *testing.T) {
	base, _ := setupIntegrationTest(t)

	// Pause the swap loop
	upsertPayload := map[string]interface{}{"key": "ntswap.paused", "value": true, "note": "maintenance"}
	resp := makeRequest(t, http.MethodPost, base+"/v1/flags", upsertPayload, http.StatusOK)
	defer resp.Body.Close()

	var upsertResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&upsertResponse))
	assert.Equal(t, "ntswap.paused", upsertResponse.Key)
	assert.True(t, upsertResponse.Value)
	assert.Equal(t, "maintenance", upsertResponse.Note)
	assert.NotZero(t, upsertResponse.UpdatedAt)

	// Get flag
	resp = makeRequest(t, http.MethodGet, base+"/v1/flags/ntswap.paused", nil, http.StatusOK)
	defer resp.Body.Close()

	var getResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&getResponse))
	assert.True(t, getResponse.Value)

	// Resume
	resp = makeRequest(t, http.MethodPut, base+"/v1/flags/ntswap.paused", map[string]interface{}{"value": false}, http.StatusOK)
	defer resp.Body.Close()

	var updateResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updateResponse))
	assert.False(t, updateResponse.Value)

	// List flags
	resp = makeRequest(t, http.MethodGet, base+"/v1/flags", nil, http.StatusOK)
	defer resp.Body.Close()

	var listResponse struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResponse))
	require.Len(t, listResponse.Items, 1)
	assert.Equal(t, "ntswap.paused", listResponse.Items[0].Key)

	// Delete flag, then verify deletion
	resp = makeRequest(t, http.MethodDelete, base+"/v1/flags/ntswap.paused", nil, http.StatusNoContent)
	defer resp.Body.Close()
	resp = makeRequest(t, http.MethodGet, base+"/v1/flags/ntswap.paused", nil, http.StatusNotFound)
	defer resp.Body.Close()
}

func TestIntegration_FlagsValidation(t *testing.T) {
	base, _ := setupIntegrationTest(t)

	for _, key := range []string{"", "invalid:key"} {
		resp := makeRequest(t, http.MethodPost, base+"/v1/flags", map[string]interface{}{"key": key, "value": true}, http.StatusBadRequest)

		var errorResponse server.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorResponse))
		resp.Body.Close()
		assert.Equal(t, "invalid key", errorResponse.Error)
	}
}

func TestIntegration_RecentSwaps(t *testing.T) {
	base, redisClient := setupIntegrationTest(t)

	c := cache.NewRedisCacheFromClient(redisClient, nil)
	require.NoError(t, c.RecordSwap(context.Background(), &models.SwapEvent{
		Signature: "test_sig", Pair: "dSOL/SOL", TokenIn: "dSOL", TokenOut: "SOL",
		AmountIn: 500, AmountOut: 514.2, SlippageBps: 4.1, Dex: "Jupiter",
	}))

	resp := makeRequest(t, http.MethodGet, base+"/v1/swaps/recent?limit=5", nil, http.StatusOK)
	defer resp.Body.Close()

	var swapsResponse struct {
		Items []*models.SwapEvent `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&swapsResponse))
	require.Len(t, swapsResponse.Items, 1)
	assert.Equal(t, "test_sig", swapsResponse.Items[0].Signature)
	assert.Equal(t, 4.1, swapsResponse.Items[0].SlippageBps)

	// Invalid limit
	resp = makeRequest(t, http.MethodGet, base+"/v1/swaps/recent?limit=500", nil, http.StatusBadRequest)
	defer resp.Body.Close()
}

func TestIntegration_OrderbookFromStream(t *testing.T) {
	base, redisClient := setupIntegrationTest(t)

	ps := cache.NewPubSubManager(redisClient, nil)
	require.NoError(t, ps.PublishOrderbook(context.Background(), &models.OrderbookUpdate{
		Channel: "orderbook", Market: "SOL-PERP", MarketType: "perp",
		Data: json.RawMessage(`{"bids":[{"price":"150000000","size":"1"}]}`),
	}))

	resp := makeRequest(t, http.MethodGet, base+"/v1/orderbook/sol-perp", nil, http.StatusOK)
	defer resp.Body.Close()

	var u models.OrderbookUpdate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	assert.Equal(t, "SOL-PERP", u.Market)

	// no stream data and no DLOB fallback
	resp = makeRequest(t, http.MethodGet, base+"/v1/orderbook/eth-perp", nil, http.StatusNotFound)
	defer resp.Body.Close()
}

func TestIntegration_Authentication(t *testing.T) {
	base, _ := setupIntegrationTest(t)
	client := &http.Client{Timeout: 5 * time.Second}

	// Without API key
	resp, err := client.Get(base + "/v1/flags")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, resp.StatusCode)

	// With invalid API key
	req, err := http.NewRequest(http.MethodGet, base+"/v1/flags", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "invalid-key")

	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	base, _ := setupIntegrationTest(t)

	const numRequests = 50
	const numGoroutines = 10

	results := make(chan int, numRequests)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < numRequests/numGoroutines; j++ {
				req, _ := http.NewRequest(http.MethodGet, base+"/v1/health", nil)
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					results <- 0
					continue
				}
				resp.Body.Close()
				results <- resp.StatusCode
			}
		}()
	}

	for i := 0; i < numRequests; i++ {
		assert.Equal(t, http.StatusOK, <-results)
	}
}

func TestIntegration_AIRateLimiting(t *testing.T) {
	base, _ := setupIntegrationTest(t)

	// burst of 2, AI not configured
	for i := 0; i < 2; i++ {
		resp := makeRequest(t, http.MethodPost, base+"/v1/ai/ask", map[string]string{"question": "volume?"}, http.StatusServiceUnavailable)
		resp.Body.Close()
	}
	resp := makeRequest(t, http.MethodPost, base+"/v1/ai/ask", map[string]string{"question": "volume?"}, http.StatusTooManyRequests)
	resp.Body.Close()
}
