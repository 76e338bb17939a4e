package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// GetByID returns the monitored account, or nil if it is not monitored.
func (r *AccountRepo) GetByID(id string) (*domain.MonitoredAccount, error) {
	row := r.db.QueryRow(
		`SELECT id, provider, pot_id, override_enabled, access_token, created_at
		 FROM accounts WHERE id = ?`, id,
	)
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

// List returns all monitored accounts ordered by creation time.
func (r *AccountRepo) List() ([]domain.MonitoredAccount, error) {
	rows, err := r.db.Query(
		`SELECT id, provider, pot_id, override_enabled, access_token, created_at
		 FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accs []domain.MonitoredAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accs = append(accs, *acc)
	}
	return accs, rows.Err()
}

// Upsert stores or replaces a monitored account and ensures its cooldown
// record exists.
func (r *AccountRepo) Upsert(acc *domain.MonitoredAccount) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO accounts (id, provider, pot_id, override_enabled, access_token, created_at)
		 VALUES (?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			pot_id = excluded.pot_id,
			override_enabled = excluded.override_enabled,
			access_token = excluded.access_token`,
		acc.ID, string(acc.Provider), acc.PotID, boolToInt(acc.OverrideEnabled),
		acc.AccessToken, acc.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT OR IGNORE INTO cooldowns (account_id, status, updated_at)
		 VALUES (?,?,?)`,
		acc.ID, string(domain.CooldownIdle), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("seed cooldown record: %w", err)
	}
	return nil
}

// Delete unmonitors an account; its cooldown record is discarded with it.
func (r *AccountRepo) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM accounts WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.MonitoredAccount, error) {
	var acc domain.MonitoredAccount
	var provider, createdAt string
	var override int
	if err := row.Scan(&acc.ID, &provider, &acc.PotID, &override, &acc.AccessToken, &createdAt); err != nil {
		return nil, err
	}
	acc.Provider = domain.ProviderKind(provider)
	acc.OverrideEnabled = override != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		acc.CreatedAt = t
	}
	return &acc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
