package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-periods/internal/observability/metrics"
	period "settlement-periods/internal/period/domain"
)

// periodAdmissionLockKey serializes period admission checks. The single
// active period invariant is enforced under this transaction-level advisory
// lock rather than best-effort read checks.
const periodAdmissionLockKey = 0x5045524f44 // "PEROD"

// Repository persists periods and their status logs.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the period as open and writes the initial from=to=open log
// row. Admission (no other active period) is checked inside the same
// transaction under an advisory lock.
func (r *Repository) Create(ctx context.Context, p *period.Period, userID *int64) error {
	if r == nil || r.db == nil {
		return errors.New("period repo: nil db")
	}
	if p == nil {
		return errors.New("period repo: nil period")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, periodAdmissionLockKey); err != nil {
		_ = tx.Rollback()
		return err
	}

	var active bool
	err = tx.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM periods WHERE status NOT IN ($1, $2)
)`, period.StatusClosed, period.StatusError).Scan(&active)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if active {
		_ = tx.Rollback()
		return period.ErrActiveExists
	}

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, `
INSERT INTO periods (number, date_from, date_to, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id`, p.Number, p.DateFrom, p.DateTo, period.StatusOpen, now).Scan(&p.ID)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return period.ErrDuplicateNumber
		}
		return err
	}
	p.Status = period.StatusOpen
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := insertStatusLog(ctx, tx, p.ID, period.StatusOpen, period.StatusOpen, userID, now); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetByID fetches a period, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, number, date_from, date_to, status, created_at, updated_at
FROM periods
WHERE id = $1
LIMIT 1`, id)
	return scanPeriod(row)
}

// FindLast returns the most recently created period.
func (r *Repository) FindLast(ctx context.Context) (*period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, number, date_from, date_to, status, created_at, updated_at
FROM periods
ORDER BY id DESC
LIMIT 1`)
	return scanPeriod(row)
}

// SubPeriodFrom returns the period countSub positions before currentID in
// descending id order.
func (r *Repository) SubPeriodFrom(ctx context.Context, currentID int64, countSub int) (*period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, number, date_from, date_to, status, created_at, updated_at
FROM periods
WHERE id <= $1
ORDER BY id DESC
OFFSET $2
LIMIT 1`, currentID, countSub)
	return scanPeriod(row)
}

// FindIDByDate returns the id of the period whose range contains t, or 0.
func (r *Repository) FindIDByDate(ctx context.Context, t time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("period repo: nil db")
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
SELECT id FROM periods
WHERE date_from <= $1 AND date_to >= $1
LIMIT 1`, t).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// ExistsActive reports whether any period is neither closed nor error.
func (r *Repository) ExistsActive(ctx context.Context) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("period repo: nil db")
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM periods WHERE status NOT IN ($1, $2)
)`, period.StatusClosed, period.StatusError).Scan(&exists)
	return exists, err
}

// UpdateStatus validates and applies a transition, appending the log row in
// the same transaction. A same-status update is a no-op.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, to period.Status, userID *int64) (*period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	p, err := lockPeriod(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	from := p.Status
	if err := p.Transition(to); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if from == p.Status {
		_ = tx.Rollback()
		return p, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE periods SET status = $1, updated_at = $2 WHERE id = $3`, p.Status, now, id); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := insertStatusLog(ctx, tx, id, from, p.Status, userID, now); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	metrics.IncTransition(string(from), string(p.Status))
	return p, nil
}

// ResetToOpen purges the period's temp transactions and flips review ->
// open in one transaction.
func (r *Repository) ResetToOpen(ctx context.Context, id int64, userID *int64) (*period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	p, err := lockPeriod(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	from := p.Status
	if err := p.Transition(period.StatusOpen); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM temp_transactions WHERE period_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE periods SET status = $1, updated_at = $2 WHERE id = $3`, p.Status, now, id); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := insertStatusLog(ctx, tx, id, from, p.Status, userID, now); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	metrics.IncTransition(string(from), string(p.Status))
	return p, nil
}

// ListByStatusPriority lists periods ordered by the fixed status ranking,
// then created_at descending.
func (r *Repository) ListByStatusPriority(ctx context.Context, filter period.ListFilter) ([]period.Period, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}

	var conditions []string
	var args []any
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.DateFromAfter.IsZero() {
		conditions = append(conditions, "date_from >= "+arg(filter.DateFromAfter))
	}
	if !filter.DateToBefore.IsZero() {
		conditions = append(conditions, "date_to <= "+arg(filter.DateToBefore))
	}
	if !filter.CreatedAtFrom.IsZero() {
		conditions = append(conditions, "created_at >= "+arg(filter.CreatedAtFrom))
	}
	if !filter.CreatedAtTo.IsZero() {
		conditions = append(conditions, "created_at <= "+arg(filter.CreatedAtTo))
	}
	if filter.NumberSubstring != "" {
		conditions = append(conditions, "LOWER(number) LIKE "+arg("%"+strings.ToLower(filter.NumberSubstring)+"%"))
	}
	if len(filter.Statuses) > 0 {
		var placeholders []string
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, arg(string(s)))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	}

	query := `
SELECT id, number, date_from, date_to, status, created_at, updated_at
FROM periods`
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY " + statusPriorityCase() + " ASC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			result = append(result, *p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// StatusLogs returns the period's audit trail newest-first.
func (r *Repository) StatusLogs(ctx context.Context, periodID int64) ([]period.StatusLog, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, period_id, status_from, status_to, user_id, created_at
FROM period_status_logs
WHERE period_id = $1
ORDER BY id DESC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []period.StatusLog
	for rows.Next() {
		var entry period.StatusLog
		var userID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.PeriodID, &entry.StatusFrom, &entry.StatusTo, &userID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			value := userID.Int64
			entry.UserID = &value
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func lockPeriod(ctx context.Context, tx *sql.Tx, id int64) (*period.Period, error) {
	row := tx.QueryRowContext(ctx, `
SELECT id, number, date_from, date_to, status, created_at, updated_at
FROM periods
WHERE id = $1
FOR UPDATE`, id)
	p, err := scanPeriod(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, period.ErrNotFound
	}
	return p, nil
}

func insertStatusLog(ctx context.Context, tx *sql.Tx, periodID int64, from, to period.Status, userID *int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO period_status_logs (period_id, status_from, status_to, user_id, created_at)
VALUES ($1, $2, $3, $4, $5)`, periodID, from, to, userID, at)
	return err
}

// statusPriorityCase builds the CASE expression that maps each status to
// its position in the display ranking.
func statusPriorityCase() string {
	var b strings.Builder
	b.WriteString("CASE status ")
	for i, s := range period.StatusPriorityOrder {
		fmt.Fprintf(&b, "WHEN '%s' THEN %d ", s, i)
	}
	fmt.Fprintf(&b, "ELSE %d END", len(period.StatusPriorityOrder))
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (*period.Period, error) {
	var p period.Period
	err := row.Scan(&p.ID, &p.Number, &p.DateFrom, &p.DateTo, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.DateFrom = p.DateFrom.UTC()
	p.DateTo = p.DateTo.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
