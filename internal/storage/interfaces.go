package storage

import (
	"context"
	"io"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
)

// SwapCache defines the interface for caching swap and report data
type SwapCache interface {
	// RecordSwap pushes an executed swap onto the recent list and publishes it
	RecordSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps, newest first
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// GetJSON loads a cached report; ok is false on a miss
	GetJSON(ctx context.Context, key string, out any) (ok bool, err error)

	// SetJSON caches a report for ttl
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// TradeStore defines the interface for persistent trade and swap storage
type TradeStore interface {
	// InsertTrades batch-inserts trade records
	InsertTrades(ctx context.Context, trades []models.TradeRecord) error

	// RecentTrades returns the latest trade records, newest first
	RecentTrades(ctx context.Context, limit int) ([]models.TradeRecord, error)

	// InsertSwap stores one executed swap
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// OrderbookHandler processes orderbook updates
type OrderbookHandler func(*models.OrderbookUpdate)

// OrderbookPublisher fans orderbook updates out to subscribers
type OrderbookPublisher interface {
	PublishOrderbook(ctx context.Context, update *models.OrderbookUpdate) error
}

// StreamProvider defines the interface for orderbook streaming
type StreamProvider interface {
	// Start streams updates until ctx is done
	Start(ctx context.Context, handler OrderbookHandler) error

	// Stop stops the stream provider
	Stop() error
}
