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
	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/pyth"
	"github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/aman-zulfiqar/drift-toolkit/internal/spl"
	"github.com/aman-zulfiqar/drift-toolkit/internal/swift"
	"github.com/aman-zulfiqar/drift-toolkit/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// main deposits USDC into the taker's Drift account and places a Swift market
// order in the same request.
func main() {
	market := flag.String("market", "SOL-PERP", "perp market to trade")
	size := flag.String("size", "0.1", "base asset amount in whole units")
	direction := flag.String("direction", "long", "long | short")
	deposit := flag.String("deposit", "1", "USDC to deposit before the order fills")
	oracle := flag.String("deposit-oracle", "", "oracle account of the USDC spot market (default: read from chain)")
	simulate := flag.Bool("simulate", false, "simulate the deposit tx before submitting")
	dryRun := flag.Bool("dry-run", false, "print the request instead of submitting it")
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
	base, err := parseAmount(*size, drift.ConvertToPerpPrecision)
	if err != nil {
		usage("-size: " + err.Error())
	}
	usdc, err := drift.LookupSpotMarket("USDC")
	if err != nil {
		usage(err.Error())
	}
	depositRaw, err := parseAmount(*deposit, func(d decimal.Decimal) (uint64, error) {
		return drift.ConvertToSpotPrecision(d, usdc.Decimals)
	})
	if err != nil {
		usage("-deposit: " + err.Error())
	}
	var oracleKey solana.PublicKey
	if *oracle != "" {
		if oracleKey, err = solana.PublicKeyFromBase58(*oracle); err != nil {
			usage("-deposit-oracle: " + err.Error())
		}
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

	if oracleKey.IsZero() {
		if oracleKey, err = spotMarketOracle(ctx, rpcClient, usdc.MarketIndex); err != nil {
			logger.WithError(err).Fatal("failed to resolve USDC oracle")
		}
	}

	// The Drift user account is not initialised here.
	user, err := drift.UserPDA(w.PublicKey(), 0)
	if err != nil {
		logger.WithError(err).Fatal("failed to derive user account")
	}
	if ok, err := w.AccountExists(ctx, user); err != nil {
		logger.WithError(err).Warn("could not check Drift user account")
	} else if !ok {
		logger.WithField("user", user.String()).Warn("Drift user account does not exist, the deposit will fail")
	}

	msg, err := swift.BuildMessage(ctx, swift.OrderSpec{
		Market:          perp,
		Direction:       dir,
		BaseAssetAmount: base,
	}, swift.OracleBand{Oracle: pyth.NewClient(cfg.PythHermesURL, cfg.HTTPTimeout)}, rpcClient)
	if err != nil {
		logger.WithError(err).Fatal("failed to build order")
	}
	order, err := swift.Sign(msg, w)
	if err != nil {
		logger.WithError(err).Fatal("failed to sign order")
	}

	takerATA, err := spl.FindAssociatedTokenAddress(w.PublicKey(), solana.MustPublicKeyFromBase58(usdc.Mint))
	if err != nil {
		logger.WithError(err).Fatal("failed to derive USDC token account")
	}
	ix, err := drift.NewDepositInstruction(drift.DepositAccounts{
		Authority:        w.PublicKey(),
		MarketIndex:      usdc.MarketIndex,
		UserTokenAccount: takerATA,
		Oracle:           oracleKey,
	}, depositRaw, false)
	if err != nil {
		logger.WithError(err).Fatal("failed to build deposit instruction")
	}
	tx, err := w.BuildSignedTransaction(ctx, []solana.Instruction{ix})
	if err != nil {
		logger.WithError(err).Fatal("failed to sign deposit tx")
	}
	if *simulate {
		sim, err := w.SimulateTransaction(ctx, tx)
		if err != nil {
			entry := logger.WithError(err)
			if sim != nil {
				entry = entry.WithField("logs", sim.Logs)
			}
			entry.Fatal("deposit simulation failed")
		}
		logger.WithField("units", sim.UnitsConsumed).Info("deposit simulation ok")
	}
	depositTx, err := wallet.EncodeTransaction(tx)
	if err != nil {
		logger.WithError(err).Fatal("failed to encode deposit tx")
	}

	logger.WithFields(logrus.Fields{
		"market":    perp.Name,
		"direction": dir.String(),
		"deposit":   *deposit,
		"token_acc": takerATA.String(),
		"slot":      msg.Slot,
	}).Info("deposit and order signed")

	if *dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(swift.DepositTradeRequest{DepositTx: depositTx, SwiftOrder: order.Request()}); err != nil {
			logger.WithError(err).Fatal("failed to print request")
		}
		return
	}

	resp, err := swift.NewClient(cfg.SwiftURL, cfg.HTTPTimeout).SubmitDepositTrade(ctx, depositTx, order)
	if err != nil {
		logger.WithError(err).Fatal("deposit trade submission failed")
	}
	fmt.Printf("Order response: %s\n", resp.Body)
}

// spotMarketOracle reads the oracle pubkey from the spot market account.
func spotMarketOracle(ctx context.Context, client *rpc.Client, marketIndex uint16) (solana.PublicKey, error) {
	pda, err := drift.SpotMarketPDA(marketIndex)
	if err != nil {
		return solana.PublicKey{}, err
	}
	info, err := client.GetAccountInfo(ctx, pda.String())
	if err != nil {
		return solana.PublicKey{}, err
	}
	if info == nil {
		return solana.PublicKey{}, fmt.Errorf("spot market %d not found", marketIndex)
	}
	data, err := info.Bytes()
	if err != nil {
		return solana.PublicKey{}, err
	}
	header, err := drift.DecodeSpotMarketHeader(data)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return header.Oracle, nil
}

func parseAmount(s string, scale func(decimal.Decimal) (uint64, error)) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("must be > 0")
	}
	return scale(d)
}
