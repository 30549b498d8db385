package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Paths reachable without an API key.
var publicPaths = map[string]bool{"/metrics": true, "/v1/health": true}

// RegisterRoutes mounts the dashboard API on e.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler(h.log(), h.DevMode)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		middleware.BodyLimit("64K"),
		CountRequests,
		SetJSONContentType,
		SetNoCacheHeaders,
	)
	if cfg.APIKey != "" {
		want := []byte(cfg.APIKey)
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper:   func(c echo.Context) bool { return publicPaths[c.Path()] },
			Validator: func(key string, _ echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), want) == 1, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	// dashboards
	v1.GET("/yields", h.GetYields)
	v1.GET("/vaults", h.GetVaults)
	v1.GET("/volume/:address", h.GetVolume)
	v1.GET("/orderbook/:market", h.GetOrderbook)
	v1.GET("/quote", h.Quote)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/trades/recent", h.RecentTrades)

	// Each LLM call costs money; one question per 5s per client, burst 2.
	ask := v1.Group("/ai", middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: rate.Every(5 * time.Second), Burst: 2, ExpiresIn: 2 * time.Minute},
	)))
	ask.POST("/ask", h.AIAsk)

	fl := v1.Group("/flags")
	fl.GET("", h.FlagsList)
	fl.GET("/:key", h.FlagsGet)
	// Flag writes can pause the live swap loop; without a key they exist
	// only in dev mode.
	if cfg.APIKey != "" || h.DevMode {
		fl.POST("", h.FlagsUpsert)
		fl.PUT("/:key", h.FlagsUpdate)
		fl.DELETE("/:key", h.FlagsDelete)
	} else {
		h.log().Warn("API_KEY unset: flag write routes disabled")
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})
}

// CountRequests increments api_requests_total by route template and status.
func CountRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) && !c.Response().Committed {
			code = he.Code
		}
		metrics.HTTPRequests.WithLabelValues(c.Path(), strconv.Itoa(code)).Inc()
		return err
	}
}
