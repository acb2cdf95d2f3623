package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SettingsRepository = (*SQLiteSettingsRepository)(nil)

type SQLiteSettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// GetSettings returns the stored settings record. An empty map means nothing
// has been saved yet.
func (r *SQLiteSettingsRepository) GetSettings() (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	record := make(map[string]bool)
	for rows.Next() {
		var key string
		var value bool
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		record[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return record, nil
}

func (r *SQLiteSettingsRepository) GetSetting(key string) (*Setting, error) {
	var setting Setting
	err := r.db.QueryRow(`
		SELECT key, value, updated_at
		FROM settings
		WHERE key = ?
	`, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return &setting, nil
}

func (r *SQLiteSettingsRepository) GetLastUpdated() (*time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRow(`
		SELECT updated_at
		FROM settings
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings timestamp: %w", err)
	}

	return &updatedAt, nil
}

// SaveSettings replaces the stored record in one transaction.
func (r *SQLiteSettingsRepository) SaveSettings(record map[string]bool) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare settings insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, value := range record {
		if _, err := stmt.Exec(key, value, now); err != nil {
			return fmt.Errorf("failed to save setting '%s': %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	return nil
}
