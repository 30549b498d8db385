package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/aman-zulfiqar/drift-toolkit/internal/storage"
	"github.com/sirupsen/logrus"
)

// L2Fetcher is the part of dlob.Client the poller needs.
type L2Fetcher interface {
	L2(ctx context.Context, marketName string, depth int) (*dlob.L2, error)
}

// L2Poller implements StreamProvider by polling the DLOB /l2 endpoint.
// It is the fallback when the websocket is unavailable.
type L2Poller struct {
	client       L2Fetcher
	market       string
	depth        int
	pollInterval time.Duration
	logger       *logrus.Logger

	mu       sync.RWMutex
	lastSlot uint64
	running  bool
}

// L2PollerConfig holds configuration for the L2 poller
type L2PollerConfig struct {
	Client       L2Fetcher
	Market       string
	Depth        int
	PollInterval time.Duration
	Logger       *logrus.Logger
}

// NewL2Poller creates a new L2 poller
func NewL2Poller(cfg L2PollerConfig) *L2Poller {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Market == "" {
		cfg.Market = "SOL-PERP"
	}
	if cfg.Depth <= 0 {
		cfg.Depth = constants.DLOBDepth
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &L2Poller{
		client:       cfg.Client,
		market:       strings.ToUpper(cfg.Market),
		depth:        cfg.Depth,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}
}

// Start begins polling for orderbook snapshots
func (p *L2Poller) Start(ctx context.Context, handler storage.OrderbookHandler) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.WithFields(logrus.Fields{
		"interval": p.pollInterval,
		"market":   p.market,
	}).Info("starting L2 polling")

	for {
		if err := p.poll(ctx, handler); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).Error("poll error")
		}

		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return ctx.Err()

		case <-ticker.C:
			if !p.isRunning() {
				return nil
			}
		}
	}
}

// Stop stops the poller
func (p *L2Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *L2Poller) isRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// poll fetches one snapshot and forwards it unless the slot has not advanced.
func (p *L2Poller) poll(ctx context.Context, handler storage.OrderbookHandler) error {
	book, err := p.client.L2(ctx, p.market, p.depth)
	if err != nil {
		return fmt.Errorf("failed to get l2: %w", err)
	}

	p.mu.Lock()
	if book.Slot != 0 && book.Slot == p.lastSlot {
		p.mu.Unlock()
		p.logger.WithField("slot", book.Slot).Debug("orderbook unchanged")
		return nil
	}
	p.lastSlot = book.Slot
	p.mu.Unlock()

	data, err := json.Marshal(book)
	if err != nil {
		return err
	}

	handler(&models.OrderbookUpdate{
		Channel:    "l2",
		Market:     p.market,
		MarketType: "perp",
		ReceivedAt: time.Now().UTC(),
		Data:       data,
	})
	return nil
}
