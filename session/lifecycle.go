package session

import (
	"time"

	"github.com/vocdoni/ciphervote/types"
)

// StateAt derives the lifecycle state of a session at the given time. The
// session window is [start, end).
func StateAt(now, start, end time.Time, finalized bool) types.State {
	switch {
	case finalized:
		return types.StateFinalized
	case now.Before(start):
		return types.StatePending
	case now.Before(end):
		return types.StateActive
	default:
		return types.StateEnded
	}
}

// State returns the current state of the session according to the engine
// clock.
func (e *Engine) State(sess *types.Session) types.State {
	return StateAt(e.clock.Now(), sess.Start(), sess.End(), sess.Finalized)
}
