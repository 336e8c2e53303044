package settings

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

// PostgresStore persists settings in the settings table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Value returns the raw value for an alias, or empty string when unset.
func (s *PostgresStore) Value(ctx context.Context, alias string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("settings store: nil db")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `
SELECT value FROM settings WHERE alias = $1`, alias).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Int returns the integer value for an alias, or fallback when unset or
// not a number.
func (s *PostgresStore) Int(ctx context.Context, alias string, fallback int) (int, error) {
	value, err := s.Value(ctx, alias)
	if err != nil {
		return fallback, err
	}
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}

// SetValue upserts a setting.
func (s *PostgresStore) SetValue(ctx context.Context, alias, value string) error {
	if s == nil || s.db == nil {
		return errors.New("settings store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (alias, value) VALUES ($1, $2)
ON CONFLICT (alias) DO UPDATE SET value = EXCLUDED.value`, alias, value)
	return err
}

// SetBool upserts a boolean flag.
func (s *PostgresStore) SetBool(ctx context.Context, alias string, enabled bool) error {
	value := FalseValue
	if enabled {
		value = TrueValue
	}
	return s.SetValue(ctx, alias, value)
}
