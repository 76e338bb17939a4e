package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardpot/potsync/internal/reconciliation"
	"github.com/cardpot/potsync/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	accountRepo *repository.AccountRepo,
	cooldownRepo *repository.CooldownRepo,
	resultRepo *repository.ResultRepo,
	settingRepo *repository.SettingRepo,
	engine *reconciliation.Service,
) http.Handler {
	h := &Handlers{
		accountRepo:  accountRepo,
		cooldownRepo: cooldownRepo,
		resultRepo:   resultRepo,
		settingRepo:  settingRepo,
		engine:       engine,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Accounts.
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}/status", h.GetAccountStatus)
		r.Post("/accounts/{id}/sync", h.SyncAccountNow)

		// Sync history.
		r.Get("/results", h.ListResults)

		// Settings.
		r.Get("/settings/sync", h.GetSyncSetting)
		r.Put("/settings/sync", h.SetSyncSetting)
	})

	return r
}
