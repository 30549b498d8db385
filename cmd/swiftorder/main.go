package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/dlob"
	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/swift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	market := flag.String("market", "SOL-PERP", "perp market, e.g. SOL-PERP")
	size := flag.String("size", "0.1", "base asset amount in whole units")
	direction := flag.String("direction", "long", "long | short")
	priceSource := flag.String("price-source", "oracle", "oracle | orderbook")
	subAccount := flag.Uint("subaccount", 0, "taker sub-account id")
	dryRun := flag.Bool("dry-run", false, "print the signed request instead of submitting it")
	flag.Parse()

	usage := func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
		flag.Usage()
		os.Exit(2)
	}

	perp, err := drift.LookupPerpMarket(*market)
	if err != nil {
		usage(err.Error())
	}
	dir, err := drift.ParseDirection(*direction)
	if err != nil {
		usage(err.Error())
	}
	amount, err := decimal.NewFromString(*size)
	if err != nil || !amount.IsPositive() {
		usage("-size must be a positive number")
	}
	base, err := drift.ConvertToPerpPrecision(amount)
	if err != nil {
		usage(err.Error())
	}
	if *subAccount > 0xffff {
		usage("-subaccount out of range")
	}

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Require("RPC_URL"); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	var band swift.BandSource
	switch *priceSource {
	case "oracle":
		band = swift.OracleBand{Oracle: pyth.NewClient(cfg.PythHermesURL, cfg.HTTPTimeout)}
	case "orderbook":
		band = swift.OrderbookBand{Book: dlob.NewClient(cfg.DLOBURL, cfg.HTTPTimeout)}
	default:
		usage("-price-source must be oracle or orderbook")
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

	// Without PRIVATE_KEY the order is signed by a throwaway key.
	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPC:            rpcClient,
		PrivateKey:     cfg.PrivateKey,
		AllowEphemeral: true,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to load wallet")
	}
	if w.Ephemeral() {
		logger.WithField("taker", w.Address()).Warn("PRIVATE_KEY not set, signing with an ephemeral key")
	}

	msg, err := swift.BuildMessage(ctx, swift.OrderSpec{
		Market:          perp,
		Direction:       dir,
		BaseAssetAmount: base,
		SubAccountID:    uint16(*subAccount),
	}, band, rpcClient)
	if err != nil {
		logger.WithError(err).Fatal("failed to build order")
	}

	order, err := swift.Sign(msg, w)
	if err != nil {
		logger.WithError(err).Fatal("failed to sign order")
	}

	logger.WithFields(logrus.Fields{
		"market":      perp.Name,
		"direction":   dir.String(),
		"base":        amount.String(),
		"slot":        msg.Slot,
		"start_price": drift.PriceToDecimal(*msg.Params.AuctionStartPrice).String(),
		"end_price":   drift.PriceToDecimal(*msg.Params.AuctionEndPrice).String(),
		"source":      *priceSource,
	}).Info("order signed")

	if *dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(order.Request()); err != nil {
			logger.WithError(err).Fatal("failed to print request")
		}
		return
	}

	resp, err := swift.NewClient(cfg.SwiftURL, cfg.HTTPTimeout).SubmitOrder(ctx, order)
	if err != nil {
		logger.WithError(err).Fatal("order submission failed")
	}
	fmt.Printf("Order response: %s\n", resp.Body)
}
