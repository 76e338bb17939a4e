package domain

import "time"

type Outcome string

const (
	OutcomeNoop             Outcome = "NO_OP"
	OutcomeDeposited        Outcome = "DEPOSITED"
	OutcomeWithdrew         Outcome = "WITHDREW"
	OutcomeArmedCooldown    Outcome = "ARMED_COOLDOWN"
	OutcomeResolvedCooldown Outcome = "RESOLVED_COOLDOWN"
	OutcomeError            Outcome = "ERROR"
)

// SyncResult summarises one reconciliation pass for one account.
type SyncResult struct {
	ID          int64     `json:"id,omitempty"`
	AccountID   string    `json:"account_id"`
	Outcome     Outcome   `json:"outcome"`
	Amount      Money     `json:"amount"`
	CardBalance Money     `json:"card_balance"`
	PotBalance  Money     `json:"pot_balance"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
