package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SwapIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ntswap_iterations_total", Help: "Polling loop iterations by outcome"},
		[]string{"outcome"},
	)
	SwapsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ntswap_swaps_total", Help: "Swaps attempted by mode and result"},
		[]string{"mode", "result"},
	)
	LastSlippageBps = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ntswap_last_slippage_bps", Help: "Slippage of the most recent quote vs oracle"},
	)
	SourceBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ntswap_source_balance", Help: "Source asset balance in whole tokens"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_requests_total", Help: "Dashboard API requests"},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(SwapIterations, SwapsExecuted, LastSlippageBps, SourceBalance, HTTPRequests)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
