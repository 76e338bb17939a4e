package reconciliation

import (
	"fmt"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

type action int

const (
	actionNone action = iota
	actionDeposit
	actionWithdraw
)

// decision is the outcome of evaluating one observation pair against the
// cooldown record. record is the next state to persist; saveRecord is false
// when the tick must leave the stored record untouched.
type decision struct {
	action     action
	amount     domain.Money
	outcome    domain.Outcome
	detail     string
	record     domain.CooldownRecord
	saveRecord bool
}

// decide runs the per-tick state machine. It is a pure function of the two
// balances observed together, the current record, the override flag and the
// clock; it issues at most one movement and never both directions.
//
// Branch order matters: a pot surplus is corrected before anything else, an
// armed cooldown is evaluated before idle handling, and a cooldown is armed
// only when the pot dropped since the last observation without the card
// rising by at least as much.
func decide(rec domain.CooldownRecord, card, pot domain.Money, override bool, cooldownDuration time.Duration, now time.Time) (decision, error) {
	delta := card - pot

	// Pot holds more than the card owes: withdraw the surplus. An armed
	// cooldown protects the opposite direction and is left alone.
	if delta < 0 {
		d := decision{
			action:  actionWithdraw,
			amount:  -delta,
			outcome: domain.OutcomeWithdrew,
			detail:  fmt.Sprintf("pot exceeds card by %s", (-delta).Pounds()),
			record:  rec,
		}
		if rec.Status == domain.CooldownIdle {
			// After the withdrawal the pot equals the card.
			d.record.LastCardBalance = card
			d.record.LastPotBalance = card
			d.saveRecord = true
		}
		return d, nil
	}

	if rec.Active(now) {
		if rec.Shortfall < 0 {
			return decision{}, fmt.Errorf("armed record for %s has shortfall %d: %w",
				rec.AccountID, rec.Shortfall, domain.ErrConsistency)
		}

		// Spending that happened during the window is funded immediately
		// under override; the protected shortfall stays queued for expiry.
		if override {
			newSpend := card - rec.LastCardBalance
			if newSpend > 0 {
				amount := newSpend
				// Cap at the live gap: if a previous override deposit moved
				// money but its record update was lost, the pot already
				// reflects it and the cap stops a second funding.
				if amount > delta {
					amount = delta
				}
				if amount > 0 {
					d := decision{
						action:     actionDeposit,
						amount:     amount,
						outcome:    domain.OutcomeDeposited,
						detail:     fmt.Sprintf("override deposit, card rose %s to %s", newSpend.Pounds(), card.Pounds()),
						record:     rec,
						saveRecord: true,
					}
					d.record.LastCardBalance = card
					return d, nil
				}
			}
		}

		return decision{
			outcome: domain.OutcomeNoop,
			detail:  fmt.Sprintf("cooldown active until %s", rec.ExpiresAt.Format(time.RFC3339)),
			record:  rec,
		}, nil
	}

	if rec.Expired(now) {
		// Expiry settles whatever gap remains; override deposits made during
		// the window have already raised the pot, so delta is net of them.
		d := decision{
			outcome: domain.OutcomeResolvedCooldown,
			record:  rec,
		}
		if delta > 0 {
			d.action = actionDeposit
			d.amount = delta
			d.detail = fmt.Sprintf("cooldown expired, settling shortfall of %s", delta.Pounds())
			d.record.Disarm(card, card)
		} else {
			d.detail = "cooldown expired, no shortfall remaining"
			d.record.Disarm(card, pot)
		}
		d.saveRecord = true
		return d, nil
	}

	// Idle path.
	if delta == 0 {
		d := decision{
			outcome:    domain.OutcomeNoop,
			detail:     "balances in sync",
			record:     rec,
			saveRecord: rec.LastCardBalance != card || rec.LastPotBalance != pot,
		}
		d.record.LastCardBalance = card
		d.record.LastPotBalance = pot
		return d, nil
	}

	// delta > 0. The pot dropping on its own — without a matching card rise —
	// is not spending and must not be topped up straight away; a manual
	// withdrawal or a bill paid directly from the pot would otherwise be
	// silently refunded.
	potDrop := rec.LastPotBalance - pot
	cardRise := card - rec.LastCardBalance
	if potDrop > 0 && cardRise < potDrop {
		d := decision{
			outcome: domain.OutcomeArmedCooldown,
			amount:  delta,
			detail: fmt.Sprintf("pot dropped %s without matching spend, arming cooldown for %s",
				potDrop.Pounds(), cooldownDuration),
			record:     rec,
			saveRecord: true,
		}
		d.record.Arm(now, cooldownDuration, card, pot)
		if d.record.Shortfall <= 0 {
			return decision{}, fmt.Errorf("arming with shortfall %d: %w", d.record.Shortfall, domain.ErrConsistency)
		}
		return d, nil
	}

	// New spending: top up immediately.
	d := decision{
		action:     actionDeposit,
		amount:     delta,
		outcome:    domain.OutcomeDeposited,
		detail:     fmt.Sprintf("card spend detected, depositing %s", delta.Pounds()),
		record:     rec,
		saveRecord: true,
	}
	d.record.LastCardBalance = card
	d.record.LastPotBalance = card
	return d, nil
}
