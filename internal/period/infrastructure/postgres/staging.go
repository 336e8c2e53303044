package postgres

import (
	"context"
	"database/sql"
	"errors"

	period "settlement-periods/internal/period/domain"
)

// Staging is the Postgres temp staging area. Temp tables mirror the
// permanent ones and are scoped to one period.
type Staging struct {
	db *sql.DB
}

// NewStaging constructs a staging area.
func NewStaging(db *sql.DB) *Staging {
	return &Staging{db: db}
}

// CopyPropertiesToTemp replaces the period's temp properties with a bulk
// copy of the current account properties.
func (s *Staging) CopyPropertiesToTemp(ctx context.Context, periodID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("staging: nil db")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM temp_properties WHERE period_id = $1`, periodID); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `
INSERT INTO temp_properties (period_id, account_id, alias, value, created_at)
SELECT $1, account_id, alias, value, NOW()
FROM account_properties`, periodID)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	copied, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return copied, nil
}

// PurgeTempTransactions bulk-deletes the period's staged transactions.
func (s *Staging) PurgeTempTransactions(ctx context.Context, periodID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("staging: nil db")
	}
	result, err := s.db.ExecContext(ctx, `
DELETE FROM temp_transactions WHERE period_id = $1`, periodID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Promote copies all staged rows for the period into the permanent tables
// inside one transaction. Staged rows are copied, not moved; nothing
// becomes permanent unless everything does.
func (s *Staging) Promote(ctx context.Context, periodID int64) error {
	if s == nil || s.db == nil {
		return errors.New("staging: nil db")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions (period_id, account_id, kind, amount, created_at)
SELECT period_id, account_id, kind, amount, NOW()
FROM temp_transactions
WHERE period_id = $1`, periodID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO period_properties (period_id, account_id, alias, value, created_at)
SELECT period_id, account_id, alias, value, NOW()
FROM temp_properties
WHERE period_id = $1`, periodID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// TempTransactions returns the period's staged transactions ordered by id.
func (s *Staging) TempTransactions(ctx context.Context, periodID int64) ([]period.TempTransaction, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("staging: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, period_id, account_id, kind, amount, created_at
FROM temp_transactions
WHERE period_id = $1
ORDER BY id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.TempTransaction
	for rows.Next() {
		var tx period.TempTransaction
		if err := rows.Scan(&tx.ID, &tx.PeriodID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// TempProperties returns the period's staged properties ordered by account.
func (s *Staging) TempProperties(ctx context.Context, periodID int64) ([]period.TempProperty, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("staging: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, period_id, account_id, alias, value, created_at
FROM temp_properties
WHERE period_id = $1
ORDER BY account_id ASC, id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.TempProperty
	for rows.Next() {
		var prop period.TempProperty
		if err := rows.Scan(&prop.ID, &prop.PeriodID, &prop.AccountID, &prop.Alias, &prop.Value, &prop.CreatedAt); err != nil {
			return nil, err
		}
		prop.CreatedAt = prop.CreatedAt.UTC()
		result = append(result, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Transactions returns the period's permanent transactions ordered by id.
func (s *Staging) Transactions(ctx context.Context, periodID int64) ([]period.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("staging: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, period_id, account_id, kind, amount, created_at
FROM transactions
WHERE period_id = $1
ORDER BY id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.Transaction
	for rows.Next() {
		var tx period.Transaction
		if err := rows.Scan(&tx.ID, &tx.PeriodID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Properties returns the period's permanent properties ordered by account.
func (s *Staging) Properties(ctx context.Context, periodID int64) ([]period.Property, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("staging: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, period_id, account_id, alias, value, created_at
FROM period_properties
WHERE period_id = $1
ORDER BY account_id ASC, id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.Property
	for rows.Next() {
		var prop period.Property
		if err := rows.Scan(&prop.ID, &prop.PeriodID, &prop.AccountID, &prop.Alias, &prop.Value, &prop.CreatedAt); err != nil {
			return nil, err
		}
		prop.CreatedAt = prop.CreatedAt.UTC()
		result = append(result, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CurrentProperties returns the live account balance rows.
func (s *Staging) CurrentProperties(ctx context.Context) ([]period.AccountProperty, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("staging: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT account_id, alias, value
FROM account_properties
ORDER BY account_id ASC, alias ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.AccountProperty
	for rows.Next() {
		var prop period.AccountProperty
		if err := rows.Scan(&prop.AccountID, &prop.Alias, &prop.Value); err != nil {
			return nil, err
		}
		result = append(result, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
