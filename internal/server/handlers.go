package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/ai"
	"github.com/aman-zulfiqar/drift-toolkit/internal/flags"
	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/storage"
	"github.com/aman-zulfiqar/drift-toolkit/internal/volume"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers.
// Every backend is optional; a missing one turns its routes into 503s.
type Handlers struct {
	Cache        storage.SwapCache    // Redis-backed recent swaps + report cache
	Trades       storage.TradeStore   // ClickHouse-backed trade records
	Flags        *flags.Store         // Redis-backed feature flags store
	AI           *ai.Agent            // AI agent for natural language queries
	AIBaseConfig ai.AgentConfig       // Base configuration for AI agents
	DevMode      bool                 // Enable detailed error responses in development
	Logger       *logrus.Logger       // Structured logger
	Jupiter      *jupiter.Client      // Jupiter Quote API client
	Yields       YieldSource          // Yield aggregator
	Vaults       VaultSource          // Vault APY client
	Volume       volume.AccountReader // Solana RPC for UserStats lookups
	Orderbook    OrderbookReader      // Latest streamed orderbook (Redis)
	DLOB         L2Source             // DLOB REST fallback for orderbooks
	ReportTTL    time.Duration        // Report cache lifetime (0 disables caching)
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// unavailable reports an unconfigured backend
func (h *Handlers) unavailable(c echo.Context, what string) error {
	return h.err(c, http.StatusServiceUnavailable, what+" is not configured", nil)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// parseLimit reads the limit query parameter (default 100, range 1-200)
func parseLimit(c echo.Context) (int, map[string]any) {
	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, map[string]any{"limit": "must be an integer"}
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return 0, map[string]any{"limit": "min 1 max 200"}
	}
	return limit, nil
}

// Health pings every configured backend
// Returns 503 when any of them is down so load balancers can react
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, Components: map[string]string{}}
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			resp.OK = false
			resp.Components[name] = err.Error()
			return
		}
		resp.Components[name] = "ok"
	}
	if h.Cache != nil {
		check("redis", h.Cache.Ping)
	}
	if h.Trades != nil {
		check("clickhouse", h.Trades.Ping)
	}

	if !resp.OK {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// RecentSwaps returns the most recent swaps executed by the vault swap loop
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Cache == nil {
		return h.unavailable(c, "cache")
	}
	limit, details := parseLimit(c)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		h.log().WithError(err).Error("failed to get recent swaps")
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// RecentTrades returns the latest Drift trade records from ClickHouse
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.Trades == nil {
		return h.unavailable(c, "trade store")
	}
	limit, details := parseLimit(c)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	items, err := h.Trades.RecentTrades(ctx, limit)
	if err != nil {
		h.log().WithError(err).Error("failed to get recent trades")
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value, req.Note)
	if errors.Is(err, flags.ErrNoteTooLong) {
		return h.err(c, http.StatusBadRequest, "note too long", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.log().WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value, req.Note)
	if errors.Is(err, flags.ErrNoteTooLong) {
		return h.err(c, http.StatusBadRequest, "note too long", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.log().WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.unavailable(c, "flags")
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about trade data using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.unavailable(c, "ai")
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		cfg.Logger = h.log()
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		agent = a
		defer func() {
			_ = a.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, Rows: res.Rows, TookMs: time.Since(start).Milliseconds()})
}
