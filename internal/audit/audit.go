package audit

import (
	"context"
	"time"
)

// User action labels emitted by the period endpoints.
const (
	ActionPeriodCreate = "period.create"
	ActionCompute      = "period.compute"
	ActionSubmit       = "period.submit"
	ActionReset        = "period.reset"
	ActionExport       = "period.export"
)

// Entry represents one user-action log entry. This trail is independent of
// the period status log: it records who asked for what, not what happened
// to the period.
type Entry struct {
	ID        int64
	UserID    *int64
	Action    string
	Label     string
	PeriodID  int64
	CreatedAt time.Time
}

// Logger writes user-action entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}
