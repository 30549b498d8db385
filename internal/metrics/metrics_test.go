package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	SwapIterations.WithLabelValues("quote_error").Inc()
	LastSlippageBps.Set(12.5)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["ntswap_iterations_total"])
	assert.True(t, names["ntswap_last_slippage_bps"])
}

func TestHandlerServesMetrics(t *testing.T) {
	SwapsExecuted.WithLabelValues("scan", "skipped").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ntswap_swaps_total")
}
