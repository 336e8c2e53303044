package period

import "time"

// Status is the lifecycle state of a settlement period.
type Status string

const (
	StatusOpen      Status = "open"
	StatusPending   Status = "pending"
	StatusComputing Status = "computing"
	StatusReview    Status = "review"
	StatusSubmitted Status = "submitted"
	StatusClosing   Status = "closing"
	StatusCanceled  Status = "canceled"
	StatusError     Status = "error"
	StatusClosed    Status = "closed"
)

// StatusPriorityOrder is the fixed display ranking of statuses. Listing
// screens order by this ranking first, recency second.
var StatusPriorityOrder = []Status{
	StatusOpen,
	StatusPending,
	StatusComputing,
	StatusReview,
	StatusSubmitted,
	StatusClosing,
	StatusCanceled,
	StatusError,
	StatusClosed,
}

// StatusPriority returns the position of a status in the display ranking.
// Unknown statuses sort last.
func StatusPriority(s Status) int {
	for i, candidate := range StatusPriorityOrder {
		if candidate == s {
			return i
		}
	}
	return len(StatusPriorityOrder)
}

// Valid reports whether s is part of the status vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusComputing, StatusReview,
		StatusSubmitted, StatusClosing, StatusCanceled, StatusError, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether s ends the lifecycle for the period instance.
// Recovery from error is a manual operator action.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusError
}

// CanTransition reports whether from -> to is a legal transition. canceled
// is part of the vocabulary but no transition produces it.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusPending
	case StatusPending:
		return to == StatusComputing
	case StatusComputing:
		return to == StatusReview || to == StatusError
	case StatusReview:
		return to == StatusSubmitted || to == StatusOpen
	case StatusSubmitted:
		return to == StatusClosing
	case StatusClosing:
		return to == StatusClosed || to == StatusError
	case StatusCanceled, StatusError, StatusClosed:
		return false
	}
	return false
}

// Period is one bounded settlement cycle.
type Period struct {
	ID        int64
	Number    string
	DateFrom  time.Time
	DateTo    time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsClosed reports whether the period left the active lifecycle.
func (p *Period) IsClosed() bool {
	return p.Status == StatusError || p.Status == StatusClosed
}

// Active reports whether the period still holds the single active slot.
func (p *Period) Active() bool {
	return !p.IsClosed()
}

// FullPeriod formats the inclusive date range for display.
func (p *Period) FullPeriod() string {
	from := p.DateFrom
	to := p.DateTo
	switch {
	case !from.IsZero() && !to.IsZero():
		return from.Format("2006-01-02") + " - " + to.Format("2006-01-02")
	case !from.IsZero():
		return from.Format("2006-01-02")
	case !to.IsZero():
		return to.Format("2006-01-02")
	}
	return ""
}

// Transition validates and applies a status change on the in-memory period.
// Persisting the change and its audit row is the repository's job.
func (p *Period) Transition(to Status) error {
	if !to.Valid() {
		return ErrInvalidTransition
	}
	if p.Status == to {
		return nil
	}
	if !CanTransition(p.Status, to) {
		return ErrInvalidTransition
	}
	p.Status = to
	return nil
}

// StatusLog is one append-only audit row for an observed status change.
// The first row of a period has StatusFrom == StatusTo == open. UserID is
// nil for system-triggered transitions.
type StatusLog struct {
	ID         int64
	PeriodID   int64
	StatusFrom Status
	StatusTo   Status
	UserID     *int64
	CreatedAt  time.Time
}
