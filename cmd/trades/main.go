package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/cache"
	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/trades"
	"github.com/sirupsen/logrus"
)

// main downloads daily trade record CSVs for one user account. Rows go to
// stdout, or into ClickHouse when CLICKHOUSE_ADDR is set.
func main() {
	account := flag.String("account", "", "Drift user account (sub-account PDA)")
	startFlag := flag.String("start", "", "first day, YYYY-MM-DD")
	endFlag := flag.String("end", "", "last day, YYYY-MM-DD (default: today)")
	flag.Parse()

	usage := func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
		flag.Usage()
		os.Exit(2)
	}

	if strings.TrimSpace(*account) == "" {
		usage("-account is required")
	}
	start, err := trades.ParseDate(*startFlag)
	if err != nil {
		usage(err.Error())
	}
	end := time.Now().UTC()
	if *endFlag != "" {
		if end, err = trades.ParseDate(*endFlag); err != nil {
			usage(err.Error())
		}
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

	client := trades.NewClient(cfg.TradesURLPrefix, cfg.HTTPTimeout, logger)
	records, err := client.FetchRange(ctx, *account, start, end)
	if err != nil {
		logger.WithError(err).Fatal("failed to fetch trade records")
	}
	logger.WithFields(logrus.Fields{
		"account": *account,
		"rows":    len(records),
	}).Info("trade records fetched")

	if cfg.ClickHouseAddr == "" {
		if err := trades.WriteCSV(os.Stdout, records); err != nil {
			logger.WithError(err).Fatal("failed to write csv")
		}
		return
	}

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

	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to ensure ClickHouse schema")
	}
	if err := store.InsertTrades(ctx, records); err != nil {
		logger.WithError(err).Fatal("failed to insert trade records")
	}
	logger.WithField("rows", len(records)).Info("trade records stored")
}
