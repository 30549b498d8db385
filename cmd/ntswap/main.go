package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/cache"
	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/flags"
	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/metrics"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/swapengine"
	"github.com/aman-zulfiqar/drift-toolkit/internal/wallet"
	"github.com/gagliardetto/solana-go"
)

// main runs the vault swap loop: dSOL is quoted in chunks against Jupiter and
// swapped to SOL whenever the quote is within MAX_SLIPPAGE_BPS of the oracle.
func main() {
	scan := flag.Bool("scan", false, "log would-be swaps without executing, even with PRIVATE_KEY set")
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: ntswap [-scan]")
		os.Exit(2)
	}

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Require(cfg.SwapLoopRequired()...); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	scanMode := *scan || cfg.ScanMode()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authority, err := solana.PublicKeyFromBase58(cfg.VaultAuthority)
	if err != nil {
		logger.WithError(err).Fatal("invalid VAULT_AUTHORITY")
	}
	inMint, err := solana.PublicKeyFromBase58(cfg.InputMint)
	if err != nil {
		logger.WithError(err).Fatal("invalid INPUT_MINT")
	}
	outMint, err := solana.PublicKeyFromBase58(cfg.OutputMint)
	if err != nil {
		logger.WithError(err).Fatal("invalid OUTPUT_MINT")
	}
	chunk, err := swapengine.ToRawAmount(cfg.ChunkSize, int32(cfg.InputDecimals))
	if err != nil {
		logger.WithError(err).Fatal("invalid CHUNK_SIZE_DSOL")
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Commitment:   cfg.Commitment,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})
	jup := jupiter.NewClient(cfg.JupiterURL, cfg.JupiterAPIKey)

	balance := swapengine.ATABalance{RPC: rpcClient, Owner: authority, Mint: inMint}
	var swapper swapengine.Swapper
	if !scanMode {
		w, err := wallet.NewWallet(wallet.WalletConfig{
			RPC:               rpcClient,
			PrivateKey:        cfg.PrivateKey,
			DefaultCommitment: cfg.Commitment,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to load wallet")
		}
		logger.WithField("signer", w.Address()).Info("wallet loaded")
		ex := swapengine.NewExecutor(jup, w)
		if balance, err = swapengine.LiveBalance(rpcClient, authority, inMint, ex); err != nil {
			logger.WithError(err).Fatal("PRIVATE_KEY must belong to VAULT_AUTHORITY")
		}
		swapper = ex
	}

	deps := swapengine.Deps{
		Balance: balance,
		Quoter: swapengine.JupiterQuoter{
			Client:      jup,
			InputMint:   inMint,
			OutputMint:  outMint,
			SlippageBps: uint16(cfg.MaxSlippageBps),
		},
		Oracle: swapengine.PythOracle{
			Client:  pyth.NewClient(cfg.PythHermesURL, cfg.HTTPTimeout),
			FeedIn:  cfg.OracleFeedIn,
			FeedOut: cfg.OracleFeedOut,
		},
		Swapper: swapper,
		Logger:  logger,
	}

	if cfg.DailyLimit > 0 || cfg.MaxPriceImpactBps > 0 {
		var limit uint64
		if cfg.DailyLimit > 0 {
			limit, err = swapengine.ToRawAmount(cfg.DailyLimit, int32(cfg.InputDecimals))
			if err != nil {
				logger.WithError(err).Fatal("invalid DAILY_LIMIT_DSOL")
			}
		}
		deps.Risk = swapengine.NewRiskManager(swapengine.RiskConfig{
			DailyLimit:        limit,
			MaxPriceImpactBps: uint16(cfg.MaxPriceImpactBps),
		})
	}

	// Redis carries the pause flag and the recent-swaps list; ClickHouse the
	// swap history. Both are optional.
	var recorder cache.SwapRecorder
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rc.Close()

		flagStore, err := flags.NewStore(rc.Client())
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		deps.Gate = flags.PauseGate{Flags: flagStore, Key: constants.FlagSwapPaused, Logger: logger}
		recorder.Redis = rc
	}
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer ch.Close()
		if err := ch.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("failed to ensure ClickHouse schema")
		}
		recorder.ClickHouse = ch
	}
	if recorder.Redis != nil || recorder.ClickHouse != nil {
		deps.Recorder = recorder
	}

	if cfg.MetricsAddr != "" {
		ms := metrics.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Shutdown(shutdownCtx)
		}()
		logger.WithField("addr", cfg.MetricsAddr).Info("metrics listening")
	}

	engine, err := swapengine.NewEngine(swapengine.LoopConfig{
		InputMint:      inMint,
		OutputMint:     outMint,
		InputSymbol:    constants.SymbolFor(cfg.InputMint),
		OutputSymbol:   constants.SymbolFor(cfg.OutputMint),
		InputDecimals:  int32(cfg.InputDecimals),
		OutputDecimals: int32(cfg.OutputDecimals),
		ChunkSize:      chunk,
		MaxSlippageBps: cfg.MaxSlippageBps,
		Sleep:          cfg.Sleep,
		ScanMode:       scanMode,
	}, deps)
	if err != nil {
		logger.WithError(err).Fatal("failed to init swap engine")
	}

	if err := engine.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutting down")
			return
		}
		logger.WithError(err).Fatal("swap loop failed")
	}
}
