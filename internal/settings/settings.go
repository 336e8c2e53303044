package settings

import "context"

// Well-known setting aliases.
const (
	PeriodDurationDaysAlias = "period_duration_in_days"
	PeriodComputingAlias    = "period_computing"
	ToEnableWorkersAlias    = "to_enable_workers"
)

// Stored boolean values.
const (
	TrueValue  = "1"
	FalseValue = "0"
)

// Store reads and writes global settings.
type Store interface {
	Int(ctx context.Context, alias string, fallback int) (int, error)
	Value(ctx context.Context, alias string) (string, error)
	SetValue(ctx context.Context, alias, value string) error
	SetBool(ctx context.Context, alias string, enabled bool) error
}

// BoolValue maps a stored value to a boolean flag.
func BoolValue(value string) bool {
	return value == TrueValue
}
