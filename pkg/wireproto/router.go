package wireproto

import "sync"

// Router owns every live session's FSM and enforces spec.md §9's strict
// routing rule: a routed envelope (action/event/leave) is authorized only
// when its landID exactly matches the landID the session joined. There is
// no fallback broadcast for an ambiguous or stale landID — it is dropped
// and reported back as an error envelope.
//
// Router only decides authorize-or-reject; actually delivering an
// authorized envelope to a Land's op queue is pkg/land's and pkg/realm's
// job, so this package stays free of a land import.
type Router struct {
	mu       sync.Mutex
	sessions map[string]*SessionFSM
}

// NewRouter creates an empty session registry.
func NewRouter() *Router {
	return &Router{sessions: make(map[string]*SessionFSM)}
}

// Open registers a new session, already past the transport handshake.
func (r *Router) Open(sessionID string) *SessionFSM {
	fsm := NewSessionFSM()
	_ = fsm.MarkConnected()

	r.mu.Lock()
	r.sessions[sessionID] = fsm
	r.mu.Unlock()
	return fsm
}

// Close ends a session and removes it from the registry.
func (r *Router) Close(sessionID string) {
	r.mu.Lock()
	fsm, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		fsm.MarkEnded()
	}
}

// Get looks up a session's FSM.
func (r *Router) Get(sessionID string) (*SessionFSM, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fsm, ok := r.sessions[sessionID]
	return fsm, ok
}

// Authorize validates an inbound envelope against the session's FSM and,
// for routed kinds, the strict landID match. Callers must not forward the
// envelope anywhere when this returns non-nil.
func (r *Router) Authorize(sessionID string, env Envelope) *WireError {
	fsm, ok := r.Get(sessionID)
	if !ok {
		return NewWireError(CodeNotJoined, "no active session")
	}

	switch env.Kind {
	case KindJoin:
		if fsm.State() == StateEnded {
			return NewWireError(CodeNotJoined, "session has ended")
		}
		return nil

	case KindAction:
		if env.Action == nil {
			return NewWireError(CodeUnknownError, "missing action payload")
		}
		return fsm.RequireJoined(env.Action.LandID)

	case KindLeave:
		if env.Leave == nil {
			return NewWireError(CodeUnknownError, "missing leave payload")
		}
		return fsm.RequireJoined(env.Leave.LandID)

	case KindEvent:
		if env.ClientEvent == nil {
			return NewWireError(CodeUnknownError, "missing client event payload")
		}
		return fsm.RequireJoined(env.ClientEvent.LandID)

	default:
		return NewWireError(CodeUnknownError, "envelope kind is not client-routable")
	}
}
