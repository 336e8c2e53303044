package application

import (
	"context"
	"time"

	"settlement-periods/internal/jobs"
	period "settlement-periods/internal/period/domain"
)

// Repository persists periods and their status-log trail. Implementations
// apply status flips and their audit rows in one transaction.
type Repository interface {
	// Create inserts the period as open and writes the initial
	// from=to=open log row. It fails with period.ErrActiveExists while
	// another period is neither closed nor error.
	Create(ctx context.Context, p *period.Period, userID *int64) error

	GetByID(ctx context.Context, id int64) (*period.Period, error)
	FindLast(ctx context.Context) (*period.Period, error)

	// SubPeriodFrom returns the period countSub positions before currentID
	// in descending id order.
	SubPeriodFrom(ctx context.Context, currentID int64, countSub int) (*period.Period, error)

	// FindIDByDate returns the id of the period whose date range contains t,
	// or 0 when none does.
	FindIDByDate(ctx context.Context, t time.Time) (int64, error)

	// ExistsActive reports whether any period is neither closed nor error.
	ExistsActive(ctx context.Context) (bool, error)

	// UpdateStatus validates and applies a status transition, appending the
	// status-log row in the same transaction. A same-status update is a
	// no-op and writes no log row. userID is nil for system transitions.
	UpdateStatus(ctx context.Context, id int64, to period.Status, userID *int64) (*period.Period, error)

	// ResetToOpen purges the period's staged temp transactions and flips
	// review -> open in one transaction.
	ResetToOpen(ctx context.Context, id int64, userID *int64) (*period.Period, error)

	// ListByStatusPriority lists periods ordered by the fixed status
	// ranking, then created_at descending.
	ListByStatusPriority(ctx context.Context, filter period.ListFilter) ([]period.Period, error)

	// StatusLogs returns the period's audit trail newest-first.
	StatusLogs(ctx context.Context, periodID int64) ([]period.StatusLog, error)
}

// Staging is the disposable period-scoped copy of business records reviewed
// before permanent commit.
type Staging interface {
	// CopyPropertiesToTemp replaces the period's temp properties with a bulk
	// copy of the current account properties and returns the copied count.
	CopyPropertiesToTemp(ctx context.Context, periodID int64) (int64, error)

	// PurgeTempTransactions bulk-deletes the period's staged transactions.
	PurgeTempTransactions(ctx context.Context, periodID int64) (int64, error)

	// Promote copies all staged rows for the period into the permanent
	// tables inside one transaction; nothing becomes permanent on failure.
	Promote(ctx context.Context, periodID int64) error

	TempTransactions(ctx context.Context, periodID int64) ([]period.TempTransaction, error)
	TempProperties(ctx context.Context, periodID int64) ([]period.TempProperty, error)
}

// Computer runs the settlement computation over the staged data and the
// period's transactions. Implementations must be atomic: on error the staged
// rows they touched are rolled back and left reviewable for postmortem.
type Computer interface {
	Compute(ctx context.Context, periodID int64) error
}

// ComputerFunc adapts a function to the Computer interface.
type ComputerFunc func(ctx context.Context, periodID int64) error

// Compute implements Computer.
func (f ComputerFunc) Compute(ctx context.Context, periodID int64) error {
	return f(ctx, periodID)
}

// Dispatcher enqueues jobs for asynchronous execution.
type Dispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// QueueControl pauses or resumes other queue consumers, used to stop them
// for the duration of a period computation.
type QueueControl interface {
	Toggle(ctx context.Context, enabled bool, reason string) error
}

// SettingsStore is the global key/value configuration store.
type SettingsStore interface {
	Int(ctx context.Context, alias string, fallback int) (int, error)
	SetValue(ctx context.Context, alias, value string) error
	SetBool(ctx context.Context, alias string, enabled bool) error
}

// StatusText is the best-effort progress side channel polled by the UI
// during long computation. Absence is not an error.
type StatusText interface {
	Put(periodID int64, text string, ttl time.Duration)
	Get(periodID int64) (string, bool)
}
