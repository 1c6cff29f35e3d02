package progression

import "errors"

var (
	// ErrNegativeXP is the panic value for XP totals below zero. Totals only
	// grow, so a negative value means an upstream bug.
	ErrNegativeXP = errors.New("progression: negative XP total")

	// ErrUnknownActivity is returned for activities outside the XP catalog.
	ErrUnknownActivity = errors.New("progression: unknown activity")
)
