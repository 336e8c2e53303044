package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// Computer is the default settlement computation: it aggregates the
// period's accumulated transactions per account into staged settlement
// rows and folds the totals into the staged balances. The whole run is one
// transaction; a failure leaves the temp tables exactly as the copy step
// left them.
type Computer struct {
	db *sql.DB
}

// NewComputer constructs a computer.
func NewComputer(db *sql.DB) *Computer {
	return &Computer{db: db}
}

// Compute implements the settlement computation over the staged data.
func (c *Computer) Compute(ctx context.Context, periodID int64) error {
	if c == nil || c.db == nil {
		return errors.New("computer: nil db")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO temp_transactions (period_id, account_id, kind, amount, created_at)
SELECT period_id, account_id, 'settlement', SUM(amount), NOW()
FROM transactions
WHERE period_id = $1
GROUP BY period_id, account_id`, periodID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE temp_properties tp
SET value = tp.value + agg.total
FROM (
	SELECT account_id, SUM(amount) AS total
	FROM transactions
	WHERE period_id = $1
	GROUP BY account_id
) agg
WHERE tp.period_id = $1
	AND tp.account_id = agg.account_id
	AND tp.alias = 'balance'`, periodID); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
