package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardpot/potsync/internal/api"
	"github.com/cardpot/potsync/internal/config"
	"github.com/cardpot/potsync/internal/domain"
	"github.com/cardpot/potsync/internal/provider"
	"github.com/cardpot/potsync/internal/reconciliation"
	"github.com/cardpot/potsync/internal/repository"
	"github.com/cardpot/potsync/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[main] potsyncd starting...")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] config validation: %v", err)
	}

	log.Printf("[main] initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("[main] init db: %v", err)
	}
	defer db.Close()

	// Repositories.
	accountRepo := repository.NewAccountRepo(db)
	cooldownRepo := repository.NewCooldownRepo(db)
	resultRepo := repository.NewResultRepo(db)
	settingRepo := repository.NewSettingRepo(db)

	// Upsert configured accounts so the config file is the source of truth
	// for which cards are under sync.
	for _, ac := range cfg.Accounts {
		acc := &domain.MonitoredAccount{
			ID:              ac.ID,
			Provider:        domain.ProviderKind(ac.Provider),
			PotID:           ac.PotID,
			OverrideEnabled: ac.OverrideEnabled,
			AccessToken:     ac.AccessToken,
		}
		if err := accountRepo.Upsert(acc); err != nil {
			log.Fatalf("[main] seed account %s: %v", ac.ID, err)
		}
	}
	log.Printf("[main] monitoring %d account(s)", len(cfg.Accounts))

	// Provider adapters.
	monzo := provider.NewMonzoClient(cfg.MonzoAPIURL, cfg.MonzoAccessToken, cfg.CallTimeout)
	truelayer := provider.NewTrueLayerClient(cfg.TrueLayerAPIURL, cfg.CallTimeout)
	balances := func(kind domain.ProviderKind) provider.BalanceSource {
		switch kind {
		case domain.ProviderAmex, domain.ProviderBarclaycard, domain.ProviderHalifax, domain.ProviderNatWest:
			return truelayer
		default:
			return nil
		}
	}

	// Engine.
	engine := reconciliation.NewService(monzo, balances, cooldownRepo, resultRepo, settingRepo,
		cfg.CooldownDuration, cfg.CallTimeout)

	// Context for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.CallTimeout)
	if err := monzo.Ping(pingCtx); err != nil {
		log.Printf("[main] WARNING: monzo ping failed: %v", err)
	}
	pingCancel()

	// Scheduler.
	sched := scheduler.New(ctx, engine, accountRepo, cfg.SyncInterval, cfg.RetryAttempts, cfg.RetryBackoff)
	if err := sched.Start(); err != nil {
		log.Fatalf("[main] start scheduler: %v", err)
	}
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[main] RUN_ON_START enabled, syncing all accounts now")
		go sched.RunNow()
	}

	// HTTP API.
	router := api.NewRouter(accountRepo, cooldownRepo, resultRepo, settingRepo, engine)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("[main] listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server failed: %v", err)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[main] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
	log.Println("[main] potsyncd stopped")
}
