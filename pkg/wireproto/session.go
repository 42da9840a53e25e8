package wireproto

import (
	"fmt"
	"sync"
)

// SessionState is the per-session connection FSM from spec.md §9:
// initial -> connected -> joining -> joined -> ended. A session moves
// forward only, except that AbortJoin returns a joining session to
// connected; ended is terminal.
type SessionState string

const (
	StateInitial   SessionState = "initial"
	StateConnected SessionState = "connected"
	StateJoining   SessionState = "joining"
	StateJoined    SessionState = "joined"
	StateEnded     SessionState = "ended"
)

// SessionFSM guards one session's state and, once joined, the single
// landID it is allowed to route action/event/leave traffic to.
type SessionFSM struct {
	mu     sync.Mutex
	state  SessionState
	landID string
}

// NewSessionFSM starts a session in the initial state.
func NewSessionFSM() *SessionFSM {
	return &SessionFSM{state: StateInitial}
}

func (f *SessionFSM) State() SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LandID returns the Land this session has joined, empty if none yet.
func (f *SessionFSM) LandID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.landID
}

// MarkConnected records that the transport handshake completed.
func (f *SessionFSM) MarkConnected() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateInitial {
		return fmt.Errorf("wireproto: cannot connect from state %s", f.state)
	}
	f.state = StateConnected
	return nil
}

// BeginJoin records that a join request was accepted for processing.
func (f *SessionFSM) BeginJoin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConnected {
		return fmt.Errorf("wireproto: cannot begin join from state %s", f.state)
	}
	f.state = StateJoining
	return nil
}

// MarkJoined records a successful joinResponse and binds the session to
// landID for the rest of its lifetime (spec.md's single-Land-per-session
// model).
func (f *SessionFSM) MarkJoined(landID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateJoining {
		return fmt.Errorf("wireproto: cannot mark joined from state %s", f.state)
	}
	f.state = StateJoined
	f.landID = landID
	return nil
}

// AbortJoin reverts a failed join back to connected so the session may
// retry against a different Land.
func (f *SessionFSM) AbortJoin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateJoining {
		return fmt.Errorf("wireproto: cannot abort join from state %s", f.state)
	}
	f.state = StateConnected
	return nil
}

// MarkEnded is terminal and idempotent; it always succeeds.
func (f *SessionFSM) MarkEnded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEnded
	f.landID = ""
}

// RequireJoined returns a WireError unless the session is joined to
// exactly landID. This is the strict routing check spec.md §9 demands:
// no "route to whatever the session is joined to if unspecified" and no
// broadcasting to an ambiguous target.
func (f *SessionFSM) RequireJoined(landID string) *WireError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateJoined {
		return NewWireError(CodeNotJoined, "session has not joined a land")
	}
	if landID == "" || landID != f.landID {
		return NewWireError(CodeViewNotFound, "landID does not match this session's joined land")
	}
	return nil
}
