package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/ai"
	"github.com/aman-zulfiqar/drift-toolkit/internal/cache"
	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/flags"
	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/server"
	"github.com/aman-zulfiqar/drift-toolkit/internal/vaults"
	"github.com/aman-zulfiqar/drift-toolkit/internal/yields"
	"github.com/redis/go-redis/v9"
)

// main is the entry point for the dashboard API server
// It wires every configured backend and serves until SIGINT/SIGTERM
func main() {
	// load .env BEFORE anything reads os.Getenv
	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Require("API_ADDR"); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Cancelled on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &server.Handlers{
		DevMode:   cfg.DevMode,
		Logger:    logger,
		Jupiter:   jupiter.NewClient(cfg.JupiterURL, cfg.JupiterAPIKey),
		DLOB:      dlob.NewClient(cfg.DLOBURL, cfg.HTTPTimeout),
		ReportTTL: constants.ReportCacheTTL,
	}

	// Redis: recent swaps, report cache, feature flags, streamed orderbooks
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()

		flagStore, err := flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		h.Cache = cache.NewRedisCacheFromClient(rclient, logger)
		h.Flags = flagStore
		h.Orderbook = cache.NewPubSubManager(rclient, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, swaps, flags and report caching are disabled")
	}

	// ClickHouse: trade records
	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer store.Close()
		h.Trades = store
	}

	// Solana RPC: volume lookups and the JLP yield
	var rpcClient *rpc.Client
	if cfg.RPCUrl != "" {
		rpcClient = rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.RPCTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Commitment:   cfg.Commitment,
			RateLimit:    cfg.RPCRateLimit,
			Logger:       logger,
		})
		h.Volume = rpcClient
		h.Yields = yields.NewAggregator(yields.Config{
			SanctumURL:  cfg.SanctumURL,
			ExponentURL: cfg.ExponentURL,
			JLPAccount:  cfg.JLPAccount,
			Strict:      cfg.StrictAccounts,
		}, rpcClient, cfg.HTTPTimeout, logger)
	}

	if cfg.VaultConfigsURL != "" && cfg.VaultAPYsURL != "" {
		h.Vaults = vaults.NewClient(cfg.VaultConfigsURL, cfg.VaultAPYsURL, cfg.HTTPTimeout)
	}

	// AI agent for natural language queries (optional)
	h.AIBaseConfig = ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		BaseURL:            cfg.AIBaseURL,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		agent, err := ai.NewAgent(ctx, h.AIBaseConfig)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			h.AI = agent
			defer agent.Close()
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("shutdown error")
		}
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
