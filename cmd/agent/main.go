package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/reqledger/go-req-ledger/internal/adapter"
	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/server"
	"github.com/reqledger/go-req-ledger/internal/service"
	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewFileLogger("req-ledger-agent")

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if cfg.App.Version == "" && buildVersion != "" {
		cfg.App.Version = buildVersion
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storages, err := store.NewStorages(cfg.Storage, log.WithComponent("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	tokens := auth.NewTokenStore()

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Sync, cfg.Adapter, tokens, log.WithComponent("adapter"))
	if err != nil {
		log.Fatal().Err(err).Msg("create server adapter")
	}

	bus := events.NewBus()
	cryptor := crypto.NewCryptor(cfg.App.EncryptionPassphrase)

	services, err := service.NewServices(ctx, storages, serverAdapter, tokens, cryptor, bus, nil, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create services")
	}
	defer services.Monitor.Close()

	adminServer := server.NewAdminServer(cfg.Admin, services, tokens, bus, log.WithComponent("admin"))
	if adminServer != nil {
		go adminServer.Run()
	}

	background := workers.NewWorkers(log,
		workers.NewSchedulerWorker(services.Scheduler),
		workers.NewSweepWorker(services.Monitor, cfg.Monitor.SweepInterval, log.WithComponent("sweep")),
	)

	log.Info().Str("version", cfg.App.Version).Msg("req-ledger agent started")
	background.Run(ctx)

	if adminServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		adminServer.Shutdown(shutdownCtx)
	}

	log.Info().Msg("req-ledger agent stopped")
}

func printBuildInfo() {
	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}

	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))
}
