package land

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"statetree/pkg/detrand"
	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"

	"github.com/sirupsen/logrus"
)

// Keeper is the single-writer actor loop for one Land instance.
type Keeper struct {
	def        *Definition
	landID     string
	instanceID string
	encoding   string

	state  interface{}
	tickID uint64

	queue *opQueue

	joined      map[string]*SessionInfo
	joinOrder   []string
	sessionSync map[string]*statesync.SessionSync

	services Services
	rand     *detrand.Rand
	recorder Recorder
	log      *logrus.Entry

	transport Transport

	pendingEffects []serverEventEffect

	idleTicks        int
	idleDestroyTicks int
	tickDisabled     bool

	// sessionCount mirrors len(joined) through an atomic so the realm
	// registry can publish LandSummary data without reading the
	// single-writer's own map from another goroutine, per spec.md §5's
	// "read by the transport adapter via immutable snapshots" rule.
	sessionCount int32

	stopCh    chan struct{}
	stoppedCh chan struct{}

	// OnIdleDestroy, if set, is called from the processing goroutine once
	// idleDestroyTicks consecutive empty ticks pass with no joined
	// sessions. The realm registry uses this to reclaim the Land.
	OnIdleDestroy func(landID string)

	// stepDone, if set, receives one StepResult after every committed op.
	// pkg/replay's Runner uses this to drive a Keeper synchronously,
	// op-by-op, bypassing the transport entirely per spec.md §4.7.
	stepDone chan StepResult
}

// StepResult is delivered on KeeperConfig.StepDone after each op commits,
// used by the reevaluation runner to pace its replay one op at a time and
// read back the resulting state hash.
type StepResult struct {
	TickID uint64
	Hash   string
}

// KeeperConfig bundles the construction-time parameters a realm supplies.
type KeeperConfig struct {
	Definition       *Definition
	LandID           string
	InstanceID       string
	Encoding         string
	Services         Services
	Transport        Transport
	Recorder         Recorder
	IdleDestroyTicks int
	Seed             int64 // 0 means derive from LandID
	Logger           *logrus.Entry

	// StepDone, if non-nil, switches the Keeper into step-synchronized
	// mode: after each op commits, a StepResult is sent on this channel
	// before the next queued op is processed. Used by pkg/replay; leave
	// nil for normal live operation.
	StepDone chan StepResult
}

// NewKeeper validates the definition and constructs a Keeper ready to Run.
func NewKeeper(cfg KeeperConfig) (*Keeper, error) {
	if err := cfg.Definition.Validate(); err != nil {
		return nil, err
	}

	var rng *detrand.Rand
	if cfg.Seed != 0 {
		rng = detrand.NewWithSeed(cfg.Seed)
	} else {
		rng = detrand.New(cfg.LandID)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.WithField("component", "land.Keeper")
	}

	k := &Keeper{
		def:              cfg.Definition,
		landID:           cfg.LandID,
		instanceID:       cfg.InstanceID,
		encoding:         cfg.Encoding,
		state:            cfg.Definition.NewState(),
		queue:            newOpQueue(),
		joined:           make(map[string]*SessionInfo),
		sessionSync:      make(map[string]*statesync.SessionSync),
		services:         cfg.Services,
		rand:             rng,
		recorder:         cfg.Recorder,
		log:              logger.WithField("landID", cfg.LandID),
		transport:        cfg.Transport,
		idleDestroyTicks: cfg.IdleDestroyTicks,
		stopCh:           make(chan struct{}),
		stoppedCh:        make(chan struct{}),
		stepDone:         cfg.StepDone,
	}
	return k, nil
}

// LandID returns this Keeper's canonical routing ID.
func (k *Keeper) LandID() string { return k.landID }

// SessionCount returns the number of currently joined sessions. Safe for
// concurrent use from outside the single-writer loop.
func (k *Keeper) SessionCount() int { return int(atomic.LoadInt32(&k.sessionCount)) }

// EnqueueJoin submits a Join op.
func (k *Keeper) EnqueueJoin(sessionID, requestID, playerIDHint, deviceID string, metadata map[string]interface{}) {
	k.queue.push(op{kind: opJoin, sessionID: sessionID, requestID: requestID, playerIDHint: playerIDHint, deviceID: deviceID, metadata: metadata})
}

// EnqueueLeave submits a Leave op.
func (k *Keeper) EnqueueLeave(sessionID, reason string) {
	k.queue.push(op{kind: opLeave, sessionID: sessionID, leaveReason: reason})
}

// EnqueueAction submits an Action op.
func (k *Keeper) EnqueueAction(sessionID, requestID, typeIdentifier string, payload []byte) {
	k.queue.push(op{kind: opAction, sessionID: sessionID, requestID: requestID, typeIdentifier: typeIdentifier, payload: payload})
}

// EnqueueClientEvent submits a ClientEvent op.
func (k *Keeper) EnqueueClientEvent(sessionID, typeIdentifier string, payload []byte) {
	k.queue.push(op{kind: opClientEvent, sessionID: sessionID, typeIdentifier: typeIdentifier, payload: payload})
}

// EnqueueTick submits a Tick op manually, bypassing the wall-clock ticker.
// pkg/replay uses this to drive a Keeper through a recorded sequence of
// ticks one at a time instead of waiting on def.TickInterval.
func (k *Keeper) EnqueueTick() {
	k.queue.push(op{kind: opTick})
}

// ForceKick submits an admin kick and blocks for its completion.
func (k *Keeper) ForceKick(sessionID, reason string) error {
	return k.runAdmin(&adminRequest{kind: AdminForceKick, sessionID: sessionID, reason: reason})
}

// ResetTick clears the tickDisabled latch a panicking tick handler sets,
// per spec.md §4.4: "disables further tick processing until an admin
// action resets it."
func (k *Keeper) ResetTick() error {
	return k.runAdmin(&adminRequest{kind: AdminResetTick})
}

// GetStateSnapshot submits an admin get-state and returns a cloned copy
// of the Land's current state.
func (k *Keeper) GetStateSnapshot() (interface{}, error) {
	req := &adminRequest{kind: AdminGetState}
	done := make(chan AdminResult, 1)
	req.done = done
	k.queue.push(op{kind: opAdmin, admin: req})
	result := <-done
	return result.State, result.Err
}

func (k *Keeper) runAdmin(req *adminRequest) error {
	done := make(chan AdminResult, 1)
	req.done = done
	k.queue.push(op{kind: opAdmin, admin: req})
	result := <-done
	return result.Err
}

// Run drives the processing loop until Stop is called and the queue
// empties. It blocks the calling goroutine; callers invoke it with `go`.
func (k *Keeper) Run() {
	defer close(k.stoppedCh)

	var ticker *time.Ticker
	if k.def.TickInterval > 0 {
		ticker = time.NewTicker(k.def.TickInterval)
		defer ticker.Stop()
		go k.feedTicks(ticker)
	}

	if k.def.AfterCreate != nil {
		k.def.AfterCreate(k.state, k.services)
	}

	for {
		o, ok := k.queue.pop()
		if !ok {
			return
		}
		k.processOp(o)
	}
}

func (k *Keeper) feedTicks(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
			k.queue.push(op{kind: opTick})
		case <-k.stopCh:
			return
		}
	}
}

// Stop signals shutdown, waits grace for the queue to drain, then closes
// it; remaining unprocessed ops are discarded, and the caller of a
// discarded admin op receives an error. Blocks until Run returns.
func (k *Keeper) Stop(grace time.Duration) {
	close(k.stopCh)
	if grace > 0 {
		time.Sleep(grace)
	}
	k.queue.close()
	for _, o := range k.queue.drain() {
		if o.admin != nil {
			o.admin.done <- AdminResult{Err: fmt.Errorf("land %s stopped before the admin op ran", k.landID)}
		}
	}
	<-k.stoppedCh

	if k.def.AfterFinalize != nil {
		ctx := k.newContext("", "")
		k.def.AfterFinalize(k.state, ctx)
	}
}

func (k *Keeper) processOp(o op) {
	k.pendingEffects = k.pendingEffects[:0]

	switch o.kind {
	case opJoin:
		k.handleJoin(o)
	case opLeave:
		k.handleLeave(o)
	case opAction:
		k.handleAction(o)
	case opClientEvent:
		k.handleClientEvent(o)
	case opTick:
		k.tickID++
		k.handleTick()
	case opAdmin:
		k.handleAdmin(o.admin)
	}

	k.syncPass()

	var hash string
	if k.recorder != nil || k.stepDone != nil {
		hash = detrand.StateHash(statesync.Snapshot(k.def.Fields, k.state, statesync.ViewerAdmin))
	}
	if k.recorder != nil {
		k.record(o, hash)
	}
	if k.stepDone != nil {
		k.stepDone <- StepResult{TickID: k.tickID, Hash: hash}
	}

	k.checkIdle()
}

func (k *Keeper) newContext(sessionID, playerID string) *Context {
	return &Context{
		sessionID: sessionID,
		playerID:  playerID,
		tickID:    k.tickID,
		services:  k.services,
		rand:      k.rand,
		effects:   &k.pendingEffects,
	}
}

func (k *Keeper) handleJoin(o op) {
	if _, already := k.joined[o.sessionID]; already {
		k.transport.SendJoinResponse(o.sessionID, wireproto.JoinResponse{
			RequestID: o.requestID,
			Success:   false,
			Reason:    wireproto.NewWireError(wireproto.CodeJoinAlreadyJoined, "session already joined this land"),
		})
		return
	}

	playerID := o.playerIDHint
	if playerID == "" {
		playerID = o.sessionID
	}

	decision := AccessDecision{Outcome: AccessAllow}
	if k.def.CanJoin != nil {
		decision = k.def.CanJoin(playerID, o.metadata, k.state)
	}

	switch decision.Outcome {
	case AccessDeny:
		k.transport.SendJoinResponse(o.sessionID, wireproto.JoinResponse{
			RequestID: o.requestID,
			Success:   false,
			Reason:    wireproto.NewWireError(wireproto.CodeJoinDenied, decision.Reason),
		})
		return
	case AccessReplaceOldest:
		if len(k.joinOrder) > 0 {
			k.removeSession(k.joinOrder[0], "replaced by a newer join")
		}
	default:
		if k.def.MaxPlayers > 0 && len(k.joined) >= k.def.MaxPlayers {
			k.transport.SendJoinResponse(o.sessionID, wireproto.JoinResponse{
				RequestID: o.requestID,
				Success:   false,
				Reason:    wireproto.NewWireError(wireproto.CodeJoinRoomFull, "land has reached maxPlayers"),
			})
			return
		}
	}

	info := &SessionInfo{SessionID: o.sessionID, PlayerID: playerID, JoinedAt: time.Now()}
	k.joined[o.sessionID] = info
	k.joinOrder = append(k.joinOrder, o.sessionID)
	k.sessionSync[o.sessionID] = statesync.NewSessionSync(statesync.ViewerFor(playerID))
	atomic.StoreInt32(&k.sessionCount, int32(len(k.joined)))

	if k.def.OnJoin != nil {
		k.def.OnJoin(k.state, k.newContext(o.sessionID, playerID))
	}

	k.transport.SendJoinResponse(o.sessionID, wireproto.JoinResponse{
		RequestID:      o.requestID,
		Success:        true,
		LandType:       k.def.LandType,
		LandInstanceID: k.instanceID,
		LandID:         k.landID,
		PlayerID:       playerID,
		PlayerSlot:     len(k.joinOrder) - 1,
		Encoding:       k.encoding,
	})
}

func (k *Keeper) handleLeave(o op) {
	k.removeSession(o.sessionID, o.leaveReason)
}

func (k *Keeper) removeSession(sessionID, reason string) {
	info, ok := k.joined[sessionID]
	if !ok {
		return
	}

	if k.def.OnLeave != nil {
		k.def.OnLeave(k.state, k.newContext(sessionID, info.PlayerID))
	}

	delete(k.joined, sessionID)
	delete(k.sessionSync, sessionID)
	for i, id := range k.joinOrder {
		if id == sessionID {
			k.joinOrder = append(k.joinOrder[:i], k.joinOrder[i+1:]...)
			break
		}
	}
	atomic.StoreInt32(&k.sessionCount, int32(len(k.joined)))

	k.transport.CloseSession(sessionID, reason)
}

func (k *Keeper) handleAction(o op) {
	info, joined := k.joined[o.sessionID]
	if !joined {
		k.transport.SendError(o.sessionID, wireproto.NewWireError(wireproto.CodeNotJoined, "session has not joined a land"), o.requestID)
		return
	}

	handler, registered := k.def.Actions[o.typeIdentifier]
	if !registered {
		k.transport.SendActionResponse(o.sessionID, wireproto.ActionResponse{
			RequestID: o.requestID,
			Success:   false,
			Err:       wireproto.NewWireError(wireproto.CodeActionNotRegistered, o.typeIdentifier),
		})
		return
	}

	preState := k.def.CloneState(k.state)
	ctx := k.newContext(o.sessionID, info.PlayerID)
	response, handlerErr := k.invokeAction(handler, o.payload, ctx)

	if handlerErr != nil {
		k.state = preState
		k.pendingEffects = k.pendingEffects[:0]
		k.transport.SendActionResponse(o.sessionID, wireproto.ActionResponse{
			RequestID: o.requestID,
			Success:   false,
			Err:       handlerErr,
		})
		return
	}

	k.transport.SendActionResponse(o.sessionID, wireproto.ActionResponse{
		RequestID: o.requestID,
		Success:   true,
		Response:  response,
	})
}

func (k *Keeper) invokeAction(handler ActionHandler, payload []byte, ctx *Context) (resp interface{}, werr *wireproto.WireError) {
	defer func() {
		if r := recover(); r != nil {
			k.log.WithField("panic", r).Error("action handler panicked; rolling back")
			werr = wireproto.NewWireError(wireproto.CodeUnknownError, fmt.Sprintf("handler panicked: %v", r))
		}
	}()
	return handler(k.state, payload, ctx)
}

func (k *Keeper) handleClientEvent(o op) {
	info, joined := k.joined[o.sessionID]
	if !joined {
		return
	}

	handler, registered := k.def.ClientEvents[o.typeIdentifier]
	if !registered {
		return
	}

	preState := k.def.CloneState(k.state)
	ctx := k.newContext(o.sessionID, info.PlayerID)
	if !k.invokeClientEvent(handler, o.payload, ctx) {
		k.state = preState
		k.pendingEffects = k.pendingEffects[:0]
	}
}

func (k *Keeper) invokeClientEvent(handler ClientEventHandler, payload []byte, ctx *Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			k.log.WithField("panic", r).Error("client event handler panicked; discarding")
			ok = false
		}
	}()
	handler(k.state, payload, ctx)
	return true
}

func (k *Keeper) handleTick() {
	if k.def.Tick == nil || k.tickDisabled {
		return
	}

	preState := k.def.CloneState(k.state)
	ctx := k.newContext("", "")
	if !k.invokeTick(ctx) {
		k.state = preState
		k.pendingEffects = k.pendingEffects[:0]
		k.tickDisabled = true
		k.log.Error("tick handler panicked; disabling further ticks until an admin reset")
	}
}

func (k *Keeper) invokeTick(ctx *Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	k.def.Tick(k.state, ctx)
	return true
}

func (k *Keeper) handleAdmin(req *adminRequest) {
	switch req.kind {
	case AdminForceKick:
		k.removeSession(req.sessionID, req.reason)
		req.done <- AdminResult{}
	case AdminGetState:
		req.done <- AdminResult{State: k.def.CloneState(k.state)}
	case AdminForceDestroy:
		for _, sid := range append([]string{}, k.joinOrder...) {
			k.removeSession(sid, "land destroyed")
		}
		req.done <- AdminResult{}
	case AdminResetTick:
		k.tickDisabled = false
		k.log.Info("tick handler re-enabled by admin reset")
		req.done <- AdminResult{}
	}
}

// syncPass emits each joined session's StateUpdate, in the order sessions
// joined, then clears every field's dirty bit for the next op.
func (k *Keeper) syncPass() {
	for _, sid := range k.joinOrder {
		ss, ok := k.sessionSync[sid]
		if !ok {
			continue
		}
		update := ss.ComputeUpdate(k.def.Fields, k.state)
		if update.Kind == statesync.UpdateNoChange {
			continue
		}
		k.transport.SendStateUpdate(sid, update)
	}

	for _, e := range k.pendingEffects {
		k.fanout(e)
	}

	for _, d := range k.def.Fields {
		d.ClearDirty(k.state)
	}
}

func (k *Keeper) fanout(e serverEventEffect) {
	switch e.target.kind {
	case targetSession:
		if _, ok := k.joined[e.target.sessionID]; ok {
			k.transport.SendServerEvent(e.target.sessionID, e.typeIdentifier, e.payload)
		}
	case targetPlayer:
		for sid, info := range k.joined {
			if info.PlayerID == e.target.playerID {
				k.transport.SendServerEvent(sid, e.typeIdentifier, e.payload)
			}
		}
	case targetAll:
		for sid := range k.joined {
			k.transport.SendServerEvent(sid, e.typeIdentifier, e.payload)
		}
	case targetAllExcept:
		for sid := range k.joined {
			if sid == e.target.sessionID {
				continue
			}
			k.transport.SendServerEvent(sid, e.typeIdentifier, e.payload)
		}
	}
}

func (k *Keeper) checkIdle() {
	if k.idleDestroyTicks <= 0 || k.OnIdleDestroy == nil {
		return
	}
	if len(k.joined) > 0 {
		k.idleTicks = 0
		return
	}
	k.idleTicks++
	if k.idleTicks >= k.idleDestroyTicks {
		k.OnIdleDestroy(k.landID)
	}
}

func opKindName(kind opKind) string {
	switch kind {
	case opJoin:
		return "join"
	case opLeave:
		return "leave"
	case opAction:
		return "action"
	case opClientEvent:
		return "clientEvent"
	case opTick:
		return "tick"
	case opAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// record appends the just-committed op to the reevaluation log, if
// recording is enabled for this Land. The full RecordedOpEnvelope is
// captured (not just the raw action/event payload) so a replay runner can
// reconstruct and resubmit the exact op later, per op kind.
func (k *Keeper) record(o op, hash string) {
	envelope := RecordedOpEnvelope{
		SessionID:      o.sessionID,
		RequestID:      o.requestID,
		PlayerIDHint:   o.playerIDHint,
		DeviceID:       o.deviceID,
		Metadata:       o.metadata,
		TypeIdentifier: o.typeIdentifier,
		Payload:        o.payload,
		LeaveReason:    o.leaveReason,
	}
	payloadBytes, _ := json.Marshal(envelope)

	events := make([]RecordedEvent, 0, len(k.pendingEffects))
	for _, e := range k.pendingEffects {
		pb, _ := json.Marshal(e.payload)
		events = append(events, RecordedEvent{TypeIdentifier: e.typeIdentifier, PayloadBytes: pb})
	}

	k.recorder.Append(k.tickID, opKindName(o.kind), payloadBytes, hash, events)
}
