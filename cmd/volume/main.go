package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/volume"
)

// main prints 30-day maker and taker volume for every address in ADDRS, or
// the addresses given as arguments.
func main() {
	flag.Parse()

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.ParseErr(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	addrs := cfg.Addrs
	if flag.NArg() > 0 {
		addrs = strings.Join(flag.Args(), ",")
	}
	authorities, err := volume.ParseAddressList(addrs)
	if err != nil {
		logger.WithError(err).Error("set ADDRS or pass addresses as arguments")
		os.Exit(2)
	}
	if err := cfg.Require("RPC_URL"); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Commitment:   cfg.Commitment,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})

	failed := 0
	for _, authority := range authorities {
		res, err := volume.Fetch(ctx, rpcClient, authority)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("interrupted")
				os.Exit(1)
			}
			entry := logger.WithError(err).WithField("authority", authority.String())
			if errors.Is(err, volume.ErrNoUserStats) {
				entry.Warn("no Drift account, skipping")
			} else {
				entry.Error("failed to fetch volume")
			}
			failed++
			continue
		}
		if err := volume.Print(os.Stdout, res); err != nil {
			logger.WithError(err).Fatal("failed to print volume")
		}
	}
	if failed == len(authorities) {
		logger.Fatal("no volumes fetched")
	}
}
