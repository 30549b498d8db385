package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/aman-zulfiqar/drift-toolkit/internal/storage"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultDLOBWSURL    = "wss://dlob.drift.trade/ws"
	defaultMinBackoff   = time.Second
	defaultMaxBackoff   = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// DLOBStream implements StreamProvider over the DLOB server websocket.
type DLOBStream struct {
	url        string
	market     string
	marketType string
	channel    string
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *logrus.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
}

// DLOBStreamConfig holds configuration for the DLOB stream
type DLOBStreamConfig struct {
	URL        string
	Market     string
	MarketType string
	Channel    string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *logrus.Logger
}

type subscribeMessage struct {
	Type       string `json:"type"`
	MarketType string `json:"marketType"`
	Channel    string `json:"channel"`
	Market     string `json:"market"`
}

// wireMessage is the envelope the server sends; data is usually a JSON string.
type wireMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

func NewDLOBStream(cfg DLOBStreamConfig) *DLOBStream {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.URL == "" {
		cfg.URL = defaultDLOBWSURL
	}
	if cfg.Market == "" {
		cfg.Market = "SOL-PERP"
	}
	if cfg.MarketType == "" {
		cfg.MarketType = "perp"
	}
	if cfg.Channel == "" {
		cfg.Channel = "orderbook"
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = defaultMaxBackoff
	}

	return &DLOBStream{
		url:        cfg.URL,
		market:     strings.ToUpper(cfg.Market),
		marketType: cfg.MarketType,
		channel:    cfg.Channel,
		minBackoff: cfg.MinBackoff,
		maxBackoff: cfg.MaxBackoff,
		logger:     cfg.Logger,
	}
}

// Start connects, subscribes and delivers updates until ctx is done or Stop
// is called. Dropped connections are redialed with exponential backoff.
func (d *DLOBStream) Start(ctx context.Context, handler storage.OrderbookHandler) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("stream already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.WithFields(logrus.Fields{
		"url":    d.url,
		"market": d.market,
	}).Info("starting DLOB stream")

	backoff := d.minBackoff
	for {
		connected, err := d.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.isRunning() {
			return nil
		}
		if connected {
			backoff = d.minBackoff
		}

		d.logger.WithError(err).WithField("retry_in", backoff).Warn("DLOB stream disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
	}
}

// Stop closes the active connection and ends Start.
func (d *DLOBStream) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

func (d *DLOBStream) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// session runs one connection. connected reports whether the subscribe
// message was sent, which resets the backoff.
func (d *DLOBStream) session(ctx context.Context, handler storage.OrderbookHandler) (connected bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		_ = conn.Close()
		return false, nil
	}
	d.conn = conn
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.conn = nil
		d.mu.Unlock()
		_ = conn.Close()
	}()

	// unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := conn.WriteJSON(subscribeMessage{
		Type:       "subscribe",
		MarketType: d.marketType,
		Channel:    d.channel,
		Market:     d.market,
	}); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	d.logger.WithField("market", d.market).Info("subscribed to DLOB orderbook")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}

		update, err := d.decode(raw)
		if err != nil {
			d.logger.WithError(err).Debug("skipping DLOB message")
			continue
		}
		if update != nil {
			handler(update)
		}
	}
}

func (d *DLOBStream) decode(raw []byte) (*models.OrderbookUpdate, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if msg.Error != "" {
		return nil, errors.New(msg.Error)
	}
	// subscription acks carry no data
	if len(msg.Data) == 0 {
		return nil, nil
	}

	data := msg.Data
	var inner string
	if err := json.Unmarshal(msg.Data, &inner); err == nil {
		if !json.Valid([]byte(inner)) {
			return nil, fmt.Errorf("data is not json")
		}
		data = json.RawMessage(inner)
	}

	channel := msg.Channel
	if channel == "" {
		channel = d.channel
	}
	return &models.OrderbookUpdate{
		Channel:    channel,
		Market:     d.market,
		MarketType: d.marketType,
		ReceivedAt: time.Now().UTC(),
		Data:       data,
	}, nil
}
