package billing

import "errors"

var (
	// ErrNoPlan means the user has no price entry at or before the
	// rate's as-of instant. The user is skipped and reported; the run
	// continues.
	ErrNoPlan = errors.New("no price plan for user")

	// ErrRunInProgress means another run for the same period holds the
	// run lock.
	ErrRunInProgress = errors.New("billing run already in progress for period")
)
