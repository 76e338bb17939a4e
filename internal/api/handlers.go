package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cardpot/potsync/internal/domain"
	"github.com/cardpot/potsync/internal/reconciliation"
	"github.com/cardpot/potsync/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	accountRepo  *repository.AccountRepo
	cooldownRepo *repository.CooldownRepo
	resultRepo   *repository.ResultRepo
	settingRepo  *repository.SettingRepo
	engine       *reconciliation.Service
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- ListAccounts ---

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := h.accountRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if accs == nil {
		accs = []domain.MonitoredAccount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accs,
		"total":    len(accs),
	})
}

// --- GetAccountStatus ---

type accountStatus struct {
	Account      *domain.MonitoredAccount `json:"account"`
	Cooldown     *domain.CooldownRecord   `json:"cooldown"`
	LatestResult *domain.SyncResult       `json:"latest_result,omitempty"`
}

func (h *Handlers) GetAccountStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	acc, err := h.accountRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "account not monitored: "+id)
		return
	}

	rec, err := h.cooldownRepo.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	latest, err := h.resultRepo.Latest(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, accountStatus{Account: acc, Cooldown: rec, LatestResult: latest})
}

// --- SyncAccountNow ---

func (h *Handlers) SyncAccountNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	acc, err := h.accountRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "account not monitored: "+id)
		return
	}

	res := h.engine.SyncAccount(r.Context(), acc)
	status := http.StatusOK
	if res.Outcome == domain.OutcomeError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// --- ListResults ---

func (h *Handlers) ListResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.resultRepo.List(q.Get("account_id"), parseIntDefault(q.Get("limit"), 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []domain.SyncResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

// --- Settings ---

func (h *Handlers) GetSyncSetting(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.settingRepo.SyncEnabled()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// SetSyncSetting flips the sync kill switch, e.g. to re-enable sync after an
// insufficient-funds pause.
func (h *Handlers) SetSyncSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := h.settingRepo.SetSyncEnabled(req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[api] sync enabled set to %v", req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
