package land

import (
	"statetree/pkg/detrand"
)

type targetKind int

const (
	targetSession targetKind = iota
	targetPlayer
	targetAll
	targetAllExcept
)

type fanoutTarget struct {
	kind      targetKind
	sessionID string
	playerID  string
}

// serverEventEffect is one queued outbound server event, captured during a
// handler's execution and flushed by the keeper once the handler returns
// without error, in emission order.
type serverEventEffect struct {
	target         fanoutTarget
	typeIdentifier string
	payload        interface{}
}

// Context is the per-op handle given to lifecycle hooks and handlers. It
// exposes the injected services bag, the Land's deterministic RNG, the
// origin session/player of the current op, and the four server-event
// fan-out targets. Handlers must not retain a Context past their own
// return.
type Context struct {
	sessionID string
	playerID  string
	tickID    uint64

	services Services
	rand     *detrand.Rand

	effects *[]serverEventEffect
}

// SessionID is the session that originated the current op, empty for Tick
// and Admin ops.
func (c *Context) SessionID() string { return c.sessionID }

// PlayerID is the player that originated the current op.
func (c *Context) PlayerID() string { return c.playerID }

// TickID is the Land's monotonic tick counter as of this op.
func (c *Context) TickID() uint64 { return c.tickID }

// Services returns the Land's injected collaborator bag.
func (c *Context) Services() Services { return c.services }

// Rand returns the Land's deterministic RNG.
func (c *Context) Rand() *detrand.Rand { return c.rand }

// EmitToSession queues a server event for exactly one session, delivered
// only if it is still joined when the fan-out runs.
func (c *Context) EmitToSession(sessionID, typeIdentifier string, payload interface{}) {
	*c.effects = append(*c.effects, serverEventEffect{
		target:         fanoutTarget{kind: targetSession, sessionID: sessionID},
		typeIdentifier: typeIdentifier,
		payload:        payload,
	})
}

// EmitToPlayer queues a server event for every session currently joined
// under playerID in this Land.
func (c *Context) EmitToPlayer(playerID, typeIdentifier string, payload interface{}) {
	*c.effects = append(*c.effects, serverEventEffect{
		target:         fanoutTarget{kind: targetPlayer, playerID: playerID},
		typeIdentifier: typeIdentifier,
		payload:        payload,
	})
}

// EmitToAll queues a server event for every joined session.
func (c *Context) EmitToAll(typeIdentifier string, payload interface{}) {
	*c.effects = append(*c.effects, serverEventEffect{
		target:         fanoutTarget{kind: targetAll},
		typeIdentifier: typeIdentifier,
		payload:        payload,
	})
}

// EmitToAllExcept queues a server event for every joined session other
// than originSessionID.
func (c *Context) EmitToAllExcept(originSessionID, typeIdentifier string, payload interface{}) {
	*c.effects = append(*c.effects, serverEventEffect{
		target:         fanoutTarget{kind: targetAllExcept, sessionID: originSessionID},
		typeIdentifier: typeIdentifier,
		payload:        payload,
	})
}
