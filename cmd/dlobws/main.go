package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/cache"
	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/aman-zulfiqar/drift-toolkit/internal/storage"
	"github.com/aman-zulfiqar/drift-toolkit/internal/stream"
	"github.com/redis/go-redis/v9"
)

// main prints DLOB orderbook updates for one market as JSON lines. With
// REDIS_ADDR set every update is also published to dlob:orderbook:<market>.
func main() {
	market := flag.String("market", "SOL-PERP", "perp market to subscribe to")
	poll := flag.Duration("poll", 0, "poll DLOB /l2 at this interval instead of using the websocket")
	follow := flag.Bool("follow", false, "print updates published to Redis by another dlobws instead of connecting to DLOB")
	flag.Parse()

	perp, err := drift.LookupPerpMarket(*market)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.ParseErr(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pubsub *cache.PubSubManager
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rclient.Close()
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		pubsub = cache.NewPubSubManager(rclient, logger)
	}

	enc := json.NewEncoder(os.Stdout)
	printUpdate := func(u *models.OrderbookUpdate) {
		if err := enc.Encode(u); err != nil {
			logger.WithError(err).Warn("failed to print update")
		}
	}

	if *follow {
		if pubsub == nil {
			logger.Fatal("-follow requires REDIS_ADDR")
		}
		if err := pubsub.SubscribeOrderbook(ctx, perp.Name, printUpdate); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Fatal("subscription failed")
		}
		return
	}

	var provider storage.StreamProvider
	if *poll > 0 {
		provider = stream.NewL2Poller(stream.L2PollerConfig{
			Client:       dlob.NewClient(cfg.DLOBURL, cfg.HTTPTimeout),
			Market:       perp.Name,
			PollInterval: *poll,
			Logger:       logger,
		})
	} else {
		provider = stream.NewDLOBStream(stream.DLOBStreamConfig{
			URL:    cfg.DLOBWSURL,
			Market: perp.Name,
			Logger: logger,
		})
	}

	var publisher storage.OrderbookPublisher
	if pubsub != nil {
		publisher = pubsub
	}
	handler := func(u *models.OrderbookUpdate) {
		printUpdate(u)
		if publisher == nil {
			return
		}
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := publisher.PublishOrderbook(pctx, u); err != nil {
			logger.WithError(err).Warn("failed to publish orderbook update")
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = provider.Stop()
	}()

	if err := provider.Start(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("orderbook stream failed")
	}
}
