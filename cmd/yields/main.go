package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/yields"
)

// main prints LST, Exponent and JLP yields as "SYMBOL: 12.34%".
func main() {
	strict := flag.Bool("strict", false, "fail on any provider error (also STRICT_ACCOUNTS)")
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: yields [-strict]")
		os.Exit(2)
	}

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

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

	agg := yields.NewAggregator(yields.Config{
		SanctumURL:  cfg.SanctumURL,
		ExponentURL: cfg.ExponentURL,
		JLPAccount:  cfg.JLPAccount,
		Strict:      *strict || cfg.StrictAccounts,
	}, rpcClient, cfg.HTTPTimeout, logger)

	snap, err := agg.Fetch(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to fetch yields")
	}
	if err := snap.Print(os.Stdout); err != nil {
		logger.WithError(err).Fatal("failed to print yields")
	}
}
