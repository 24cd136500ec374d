package trading

import "errors"

// Sentinel errors for invalid state transitions. Callers match them with
// errors.Is; returned errors wrap them with the offending index.
var (
	ErrPositionOpen     = errors.New("position already open")
	ErrPositionClosed   = errors.New("position already closed")
	ErrNoOpenPosition   = errors.New("no open position")
	ErrExitBeforeEntry  = errors.New("exit index before entry index")
	ErrSameSide         = errors.New("entry and exit have the same side")
	ErrNonChronological = errors.New("trade index before previous trade")
	ErrInvalidAmount    = errors.New("amount must be positive")
)
