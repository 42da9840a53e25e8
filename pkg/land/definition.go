// Package land implements the LandKeeper runtime: a single-writer actor
// loop that owns one room's state tree, serializes Join/Leave/Action/
// ClientEvent/Tick operations against it, and drives the per-session sync
// pass after each one.
package land

import (
	"time"

	"statetree/pkg/statefield"
	"statetree/pkg/wireproto"
)

// AccessOutcome is the result of a Definition's CanJoin predicate.
type AccessOutcome int

const (
	AccessAllow AccessOutcome = iota
	AccessDeny
	AccessReplaceOldest
)

// AccessDecision is what CanJoin returns. Reason is only meaningful for
// AccessDeny, where it is surfaced verbatim in joinResponse.reason.
type AccessDecision struct {
	Outcome AccessOutcome
	Reason  string
}

// Allow, Deny and ReplaceOldest are the three constructors a Definition's
// CanJoin implementation uses.
func Allow() AccessDecision                { return AccessDecision{Outcome: AccessAllow} }
func Deny(reason string) AccessDecision    { return AccessDecision{Outcome: AccessDeny, Reason: reason} }
func ReplaceOldest() AccessDecision        { return AccessDecision{Outcome: AccessReplaceOldest} }

// ActionHandler handles one registered action type. It mutates state
// in-place and returns a success payload or a WireError; on a non-nil
// error the keeper rolls the state back to what it was before the
// handler ran.
type ActionHandler func(state interface{}, payload []byte, ctx *Context) (response interface{}, err *wireproto.WireError)

// ClientEventHandler handles one registered client event type. There is
// no response; a panic is logged and discarded, never surfaced to the
// originating session.
type ClientEventHandler func(state interface{}, payload []byte, ctx *Context)

// TickHandler runs once per tick interval.
type TickHandler func(state interface{}, ctx *Context)

// Services is the per-Land, read-only-after-creation bag of injected
// collaborators (loggers, metrics, external clients). Land handlers reach
// it through Context.Services().
type Services map[string]interface{}

// Definition is an immutable, declarative description of one kind of
// Land. It carries no state of its own; a Keeper instantiates state from
// NewState and mutates it for the life of the room.
type Definition struct {
	LandType string

	// TickInterval is the period between Tick ops. Zero disables ticking.
	TickInterval time.Duration

	Fields statefield.Table

	Actions      map[string]ActionHandler
	ClientEvents map[string]ClientEventHandler
	// ServerEvents lists the type identifiers this Land may emit, used only
	// to validate fan-out calls fail loudly on a typo rather than silently
	// encoding an unregistered event.
	ServerEvents map[string]struct{}

	Tick TickHandler

	MaxPlayers  int
	AllowPublic bool
	CanJoin     func(playerID string, metadata map[string]interface{}, state interface{}) AccessDecision

	AfterCreate   func(state interface{}, services Services)
	OnJoin        func(state interface{}, ctx *Context)
	OnLeave       func(state interface{}, ctx *Context)
	AfterFinalize func(state interface{}, ctx *Context)

	// NewState constructs a fresh state value for a new Land instance.
	NewState func() interface{}

	// CloneState produces a cheap copy of state used for the
	// rollback-on-panic guarantee: the keeper clones before every handler
	// invocation and restores from the clone if the handler panics or
	// returns an error.
	CloneState func(state interface{}) interface{}

	// LandDefinitionID identifies this schema's version for replay
	// compatibility checks. It should change whenever Fields or handler
	// semantics change incompatibly with prior recordings.
	LandDefinitionID string
}

// Validate checks the structural requirements a Definition must satisfy
// before a Keeper can be built from it. Failures here are fatal
// configuration errors caught at Land creation, never at message time.
func (d *Definition) Validate() error {
	if d.LandType == "" {
		return errInvalidLandType
	}
	if d.NewState == nil {
		return newConfigError("land %q: NewState is required", d.LandType)
	}
	if d.CloneState == nil {
		return newConfigError("land %q: CloneState is required", d.LandType)
	}
	if err := d.Fields.Validate(); err != nil {
		return newConfigError("land %q: %v", d.LandType, err)
	}
	return nil
}
