package period

import "errors"

var (
	// ErrNotFound is returned when a period does not exist.
	ErrNotFound = errors.New("period: not found")
	// ErrNotOpen is returned when compute is requested on a period that is not open.
	ErrNotOpen = errors.New("period: must be open")
	// ErrNotInReview is returned when submit or reset is requested outside review.
	ErrNotInReview = errors.New("period: must be in review")
	// ErrActiveExists is returned when creating a period while another one is active.
	ErrActiveExists = errors.New("period: close opening periods first")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("period: invalid status transition")
	// ErrDuplicateNumber is returned when the period number is already taken.
	ErrDuplicateNumber = errors.New("period: number already exists")
)
