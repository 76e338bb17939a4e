package repository

import (
	"database/sql"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Insert appends one pass result to the history.
func (r *ResultRepo) Insert(res *domain.SyncResult) error {
	out, err := r.db.Exec(
		`INSERT INTO sync_results
			(account_id, outcome, amount, card_balance, pot_balance, error_kind, detail, completed_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		res.AccountID, string(res.Outcome), int64(res.Amount),
		int64(res.CardBalance), int64(res.PotBalance),
		nullIfEmpty(res.ErrorKind), nullIfEmpty(res.Detail),
		res.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	if id, err := out.LastInsertId(); err == nil {
		res.ID = id
	}
	return nil
}

// Latest returns the most recent result for an account, or nil if the
// account has never been synced.
func (r *ResultRepo) Latest(accountID string) (*domain.SyncResult, error) {
	rows, err := r.db.Query(
		`SELECT id, account_id, outcome, amount, card_balance, pot_balance, error_kind, detail, completed_at
		 FROM sync_results WHERE account_id = ?
		 ORDER BY id DESC LIMIT 1`, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

// List returns recent results, newest first, optionally filtered by account.
func (r *ResultRepo) List(accountID string, limit int) ([]domain.SyncResult, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if accountID != "" {
		rows, err = r.db.Query(
			`SELECT id, account_id, outcome, amount, card_balance, pot_balance, error_kind, detail, completed_at
			 FROM sync_results WHERE account_id = ? ORDER BY id DESC LIMIT ?`,
			accountID, limit,
		)
	} else {
		rows, err = r.db.Query(
			`SELECT id, account_id, outcome, amount, card_balance, pot_balance, error_kind, detail, completed_at
			 FROM sync_results ORDER BY id DESC LIMIT ?`, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

// Prune deletes history older than the cutoff and returns the rows removed.
func (r *ResultRepo) Prune(cutoff time.Time) (int64, error) {
	out, err := r.db.Exec(
		"DELETE FROM sync_results WHERE completed_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return out.RowsAffected()
}

func scanResults(rows *sql.Rows) ([]domain.SyncResult, error) {
	var results []domain.SyncResult
	for rows.Next() {
		var res domain.SyncResult
		var outcome, completedAt string
		var errKind, detail sql.NullString
		if err := rows.Scan(&res.ID, &res.AccountID, &outcome, &res.Amount,
			&res.CardBalance, &res.PotBalance, &errKind, &detail, &completedAt); err != nil {
			return nil, err
		}
		res.Outcome = domain.Outcome(outcome)
		res.ErrorKind = errKind.String
		res.Detail = detail.String
		if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
			res.CompletedAt = t
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
