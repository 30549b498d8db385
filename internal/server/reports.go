package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/aman-zulfiqar/drift-toolkit/internal/vaults"
	"github.com/aman-zulfiqar/drift-toolkit/internal/volume"
	"github.com/aman-zulfiqar/drift-toolkit/internal/yields"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// YieldSource is satisfied by *yields.Aggregator
type YieldSource interface {
	Fetch(ctx context.Context) (yields.Snapshot, error)
}

// VaultSource is satisfied by *vaults.Client
type VaultSource interface {
	Reports(ctx context.Context) ([]vaults.Report, error)
}

// OrderbookReader is satisfied by *cache.PubSubManager
type OrderbookReader interface {
	LatestOrderbook(ctx context.Context, market string) (*models.OrderbookUpdate, error)
}

// L2Source is satisfied by *dlob.Client
type L2Source interface {
	L2(ctx context.Context, marketName string, depth int) (*dlob.L2, error)
}

// cachedReport serves key from the report cache, falling back to fetch and
// storing the result. Cache failures are logged and never fail the request.
func cachedReport[T any](ctx context.Context, h *Handlers, key string, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	useCache := h.Cache != nil && h.ReportTTL > 0

	if useCache {
		ok, err := h.Cache.GetJSON(ctx, key, &out)
		if err != nil {
			h.log().WithError(err).WithField("key", key).Warn("report cache read failed")
		} else if ok {
			return out, nil
		}
	}

	out, err := fetch(ctx)
	if err != nil {
		return out, err
	}

	if useCache {
		if err := h.Cache.SetJSON(ctx, key, out, h.ReportTTL); err != nil {
			h.log().WithError(err).WithField("key", key).Warn("report cache write failed")
		}
	}
	return out, nil
}

// GetYields returns the LST / Exponent / JLP yield snapshot
func (h *Handlers) GetYields(c echo.Context) error {
	if h.Yields == nil {
		return h.unavailable(c, "yields")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	resp, err := cachedReport(ctx, h, "yields", func(ctx context.Context) (YieldsResponse, error) {
		snap, err := h.Yields.Fetch(ctx)
		if err != nil {
			return YieldsResponse{}, err
		}
		return YieldsResponse{Yields: snap, FetchedAt: time.Now().UTC()}, nil
	})
	if err != nil {
		h.log().WithError(err).Error("failed to fetch yields")
		return h.err(c, http.StatusBadGateway, "failed to fetch yields", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetVaults returns APY and drawdown for every vault with data
func (h *Handlers) GetVaults(c echo.Context) error {
	if h.Vaults == nil {
		return h.unavailable(c, "vaults")
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	resp, err := cachedReport(ctx, h, "vaults", func(ctx context.Context) (VaultsResponse, error) {
		items, err := h.Vaults.Reports(ctx)
		if err != nil {
			return VaultsResponse{}, err
		}
		return VaultsResponse{Items: items, FetchedAt: time.Now().UTC()}, nil
	})
	if err != nil {
		h.log().WithError(err).Error("failed to fetch vaults")
		return h.err(c, http.StatusBadGateway, "failed to fetch vaults", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetVolume returns 30-day maker/taker volume for one authority
func (h *Handlers) GetVolume(c echo.Context) error {
	if h.Volume == nil {
		return h.unavailable(c, "rpc")
	}
	authority, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.Param("address")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "must be a base58 public key"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := cachedReport(ctx, h, "volume:"+authority.String(), func(ctx context.Context) (*volume.Result, error) {
		return volume.Fetch(ctx, h.Volume, authority)
	})
	if err != nil {
		if errors.Is(err, volume.ErrNoUserStats) {
			return h.err(c, http.StatusNotFound, "no user stats for address", nil)
		}
		h.log().WithError(err).WithField("authority", authority.String()).Error("failed to fetch volume")
		return h.err(c, http.StatusBadGateway, "failed to fetch volume", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

// GetOrderbook returns the latest streamed orderbook for a market, falling back
// to a DLOB /l2 snapshot when the stream has nothing fresh
func (h *Handlers) GetOrderbook(c echo.Context) error {
	market := strings.ToUpper(strings.TrimSpace(c.Param("market")))
	if market == "" {
		return h.err(c, http.StatusBadRequest, "invalid market", nil)
	}
	if h.Orderbook == nil && h.DLOB == nil {
		return h.unavailable(c, "orderbook")
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if h.Orderbook != nil {
		u, err := h.Orderbook.LatestOrderbook(ctx, market)
		if err != nil {
			h.log().WithError(err).WithField("market", market).Warn("latest orderbook read failed")
		} else if u != nil {
			return c.JSON(http.StatusOK, u)
		}
	}
	if h.DLOB == nil {
		return h.err(c, http.StatusNotFound, "no orderbook for market", nil)
	}

	book, err := h.DLOB.L2(ctx, market, constants.DLOBDepth)
	if err != nil {
		h.log().WithError(err).WithFields(logrus.Fields{"market": market}).Error("dlob l2 failed")
		return h.err(c, http.StatusBadGateway, "failed to fetch orderbook", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, book)
}
