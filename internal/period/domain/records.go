package period

import "time"

// Transaction is a permanent settled transaction owned by a period.
type Transaction struct {
	ID        int64
	PeriodID  int64
	AccountID int64
	Kind      string
	Amount    float64
	CreatedAt time.Time
}

// TempTransaction is a staged transaction produced by the compute step.
// Rows mirror Transaction and live only until submit or reset.
type TempTransaction struct {
	ID        int64
	PeriodID  int64
	AccountID int64
	Kind      string
	Amount    float64
	CreatedAt time.Time
}

// Property is a permanent settled balance row owned by a period.
type Property struct {
	ID        int64
	PeriodID  int64
	AccountID int64
	Alias     string
	Value     float64
	CreatedAt time.Time
}

// TempProperty is the staged mirror of Property, bulk-copied from current
// account properties when a compute run starts.
type TempProperty struct {
	ID        int64
	PeriodID  int64
	AccountID int64
	Alias     string
	Value     float64
	CreatedAt time.Time
}

// AccountProperty is a live account balance row, not yet owned by any
// period. The compute step copies these into temp properties.
type AccountProperty struct {
	AccountID int64
	Alias     string
	Value     float64
}

// ListFilter narrows period listings. Zero values mean "no constraint".
type ListFilter struct {
	DateFromAfter   time.Time
	DateToBefore    time.Time
	CreatedAtFrom   time.Time
	CreatedAtTo     time.Time
	NumberSubstring string
	Statuses        []Status
}
