package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PubSubManager fans DLOB orderbook updates out over Redis and keeps the
// latest one per market for the API.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

func OrderbookChannel(market string) string {
	return constants.PubSubChannelOrderbookPrefix + strings.ToUpper(market)
}

func latestOrderbookKey(market string) string {
	return "dlob:latest:" + strings.ToUpper(market)
}

// PublishOrderbook publishes to dlob:orderbook:<market> and stores the
// update as the market's latest snapshot.
func (p *PubSubManager) PublishOrderbook(ctx context.Context, update *models.OrderbookUpdate) error {
	if update.Market == "" {
		return fmt.Errorf("orderbook update without market")
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, OrderbookChannel(update.Market), data)
	pipe.Set(ctx, latestOrderbookKey(update.Market), data, constants.OrderbookCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// LatestOrderbook returns the last published update, or nil when none is fresh.
func (p *PubSubManager) LatestOrderbook(ctx context.Context, market string) (*models.OrderbookUpdate, error) {
	b, err := p.client.Get(ctx, latestOrderbookKey(market)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.OrderbookUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SubscribeOrderbook delivers updates for market until ctx is done.
func (p *PubSubManager) SubscribeOrderbook(ctx context.Context, market string, handler func(*models.OrderbookUpdate)) error {
	channel := OrderbookChannel(market)
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u models.OrderbookUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				p.logger.WithError(err).Warn("error unmarshaling orderbook update")
				continue
			}
			handler(&u)
		}
	}
}
