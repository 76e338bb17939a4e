package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

// CooldownRepo is the durable Cooldown Store. It is owned exclusively by the
// engine; concurrent passes for the same account are serialized above this
// layer, so plain read-modify-write is safe here.
type CooldownRepo struct {
	db *sql.DB
}

func NewCooldownRepo(db *sql.DB) *CooldownRepo {
	return &CooldownRepo{db: db}
}

// Load returns the cooldown record for an account, creating an idle record
// on first sight.
func (r *CooldownRepo) Load(accountID string) (*domain.CooldownRecord, error) {
	row := r.db.QueryRow(
		`SELECT account_id, status, armed_at, expires_at,
			last_card_balance, last_pot_balance, shortfall, updated_at
		 FROM cooldowns WHERE account_id = ?`, accountID,
	)

	rec := &domain.CooldownRecord{}
	var status string
	var armedAt, expiresAt sql.NullString
	var updatedAt string
	err := row.Scan(&rec.AccountID, &status, &armedAt, &expiresAt,
		&rec.LastCardBalance, &rec.LastPotBalance, &rec.Shortfall, &updatedAt)
	if err == sql.ErrNoRows {
		rec = domain.NewCooldownRecord(accountID)
		if err := r.Save(rec); err != nil {
			return nil, fmt.Errorf("create record: %w", err)
		}
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	rec.Status = domain.CooldownStatus(status)
	rec.ArmedAt = parseNullTime(armedAt)
	rec.ExpiresAt = parseNullTime(expiresAt)
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

// Save persists the record, replacing any previous state for the account.
func (r *CooldownRepo) Save(rec *domain.CooldownRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(
		`INSERT INTO cooldowns
			(account_id, status, armed_at, expires_at,
			 last_card_balance, last_pot_balance, shortfall, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)
		 ON CONFLICT(account_id) DO UPDATE SET
			status = excluded.status,
			armed_at = excluded.armed_at,
			expires_at = excluded.expires_at,
			last_card_balance = excluded.last_card_balance,
			last_pot_balance = excluded.last_pot_balance,
			shortfall = excluded.shortfall,
			updated_at = excluded.updated_at`,
		rec.AccountID, string(rec.Status),
		formatNullTime(rec.ArmedAt), formatNullTime(rec.ExpiresAt),
		int64(rec.LastCardBalance), int64(rec.LastPotBalance), int64(rec.Shortfall),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
