package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
	"github.com/aman-zulfiqar/drift-toolkit/internal/vaults"
)

func main() {
	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Require("VAULT_CONFIGS_URL", "VAULT_APYS_URL"); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, err := vaults.NewClient(cfg.VaultConfigsURL, cfg.VaultAPYsURL, cfg.HTTPTimeout).Reports(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to fetch vault reports")
	}
	if len(reports) == 0 {
		logger.Warn("no vaults with APY data")
		return
	}
	if err := vaults.Print(os.Stdout, reports); err != nil {
		logger.WithError(err).Fatal("failed to print vault reports")
	}
}
