package domain

import "time"

type CooldownStatus string

const (
	CooldownIdle  CooldownStatus = "IDLE"
	CooldownArmed CooldownStatus = "ARMED"
)

// CooldownRecord is the engine's sole mutable state for one monitored
// account. While armed it protects a pot shortfall from being topped up until
// the card statement has had time to settle; the last-observed balances are
// persisted explicitly so the next tick never depends on polling order.
type CooldownRecord struct {
	AccountID       string         `json:"account_id"`
	Status          CooldownStatus `json:"status"`
	ArmedAt         *time.Time     `json:"armed_at,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	LastCardBalance Money          `json:"last_card_balance"`
	LastPotBalance  Money          `json:"last_pot_balance"`
	Shortfall       Money          `json:"shortfall"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewCooldownRecord returns the idle record created the first time an account
// is monitored.
func NewCooldownRecord(accountID string) *CooldownRecord {
	return &CooldownRecord{AccountID: accountID, Status: CooldownIdle}
}

// Active reports whether a cooldown is armed and its deadline has not passed.
func (r *CooldownRecord) Active(now time.Time) bool {
	return r.Status == CooldownArmed && r.ExpiresAt != nil && now.Before(*r.ExpiresAt)
}

// Expired reports whether an armed cooldown has passed its deadline and is
// due for expiry processing.
func (r *CooldownRecord) Expired(now time.Time) bool {
	return r.Status == CooldownArmed && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Arm starts a cooldown protecting the given shortfall.
func (r *CooldownRecord) Arm(now time.Time, duration time.Duration, card, pot Money) {
	expires := now.Add(duration)
	r.Status = CooldownArmed
	r.ArmedAt = &now
	r.ExpiresAt = &expires
	r.LastCardBalance = card
	r.LastPotBalance = pot
	r.Shortfall = card - pot
}

// Disarm returns the record to idle with the given balances as the new
// baseline.
func (r *CooldownRecord) Disarm(card, pot Money) {
	r.Status = CooldownIdle
	r.ArmedAt = nil
	r.ExpiresAt = nil
	r.LastCardBalance = card
	r.LastPotBalance = pot
	r.Shortfall = 0
}
