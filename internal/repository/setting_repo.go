package repository

import (
	"database/sql"
	"strconv"
)

// SettingRepo stores small key/value flags, notably the sync kill switch that
// is flipped off when the funding account cannot cover a required deposit.
type SettingRepo struct {
	db *sql.DB
}

const SettingSyncEnabled = "enable_sync"

func NewSettingRepo(db *sql.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SettingRepo) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?,?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SyncEnabled reports the kill switch state. Missing means enabled.
func (r *SettingRepo) SyncEnabled() (bool, error) {
	v, err := r.Get(SettingSyncEnabled)
	if err != nil {
		return false, err
	}
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true, nil
	}
	return b, nil
}

func (r *SettingRepo) SetSyncEnabled(enabled bool) error {
	return r.Set(SettingSyncEnabled, strconv.FormatBool(enabled))
}
