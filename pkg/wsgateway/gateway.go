package wsgateway

import (
	"fmt"
	"net/http"
	"sync"

	"statetree/pkg/config"
	"statetree/pkg/land"
	"statetree/pkg/realm"
	"statetree/pkg/statesync"
	"statetree/pkg/validation"
	"statetree/pkg/wirecodec"
	"statetree/pkg/wireproto"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Metrics is the subset of pkg/server.Metrics the gateway records against;
// declared locally so this package does not need to import pkg/server for
// a handful of counters.
type Metrics interface {
	RecordWebSocketConnection(connectionType string)
	RecordWebSocketMessage(direction, messageType string)
	RecordLandEvent(eventType string)
}

type noopMetrics struct{}

func (noopMetrics) RecordWebSocketConnection(string)      {}
func (noopMetrics) RecordWebSocketMessage(string, string) {}
func (noopMetrics) RecordLandEvent(string)                {}

// Gateway upgrades HTTP connections to WebSocket, negotiates a wire codec,
// and bridges the resulting per-session stream to a realm.Manager through
// wireproto.Router. It implements land.Transport so every Land it serves
// sends outbound frames through the exact same surface as an in-memory
// test fake.
type Gateway struct {
	cfg       *config.Config
	manager   *realm.Manager
	router    *wireproto.Router
	metrics   Metrics
	validator *validation.InputValidator

	mu    sync.Mutex
	conns map[string]*connection
}

// Config bundles a Gateway's fixed collaborators. Manager may be left nil
// when the caller has a construction-order cycle to break (a realm.Manager
// is built with its Transport pinned at construction time, and that
// Transport is this Gateway) — in that case call SetManager once the
// Manager exists, before HandleUpgrade is mounted.
type Config struct {
	Cfg     *config.Config
	Manager *realm.Manager
	Router  *wireproto.Router
	Metrics Metrics
}

// New constructs a Gateway ready to have its ServeHTTP-compatible handler
// mounted by cmd/server.
func New(cfg Config) *Gateway {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Gateway{
		cfg:       cfg.Cfg,
		manager:   cfg.Manager,
		router:    cfg.Router,
		metrics:   metrics,
		validator: validation.NewInputValidator(cfg.Cfg.MaxRequestSize),
		conns:     make(map[string]*connection),
	}
}

// SetManager wires the realm.Manager this Gateway dispatches into. It exists
// to break the construction-order cycle between Gateway and Manager (a
// Manager takes its land.Transport at construction time, and that Transport
// is usually this Gateway); call it once, before HandleUpgrade serves any
// request.
func (g *Gateway) SetManager(m *realm.Manager) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.manager = m
}

// HandleUpgrade is the http.HandlerFunc mounted at the websocket endpoint.
// It upgrades the connection, negotiates an encoding from the `encoding`
// query parameter (falling back to config.DefaultEncoding), opens a
// session in the Router, and runs the per-connection read loop until the
// client disconnects.
func (g *Gateway) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	encodingName := wirecodec.Name(r.URL.Query().Get("encoding"))
	if encodingName == "" {
		encodingName = wirecodec.Name(g.cfg.DefaultEncoding)
	}
	codec, err := wirecodec.Get(encodingName)
	if err != nil {
		http.Error(w, fmt.Sprintf("unsupported encoding: %v", err), http.StatusBadRequest)
		return
	}

	upgrader := newUpgrader(g.cfg.AllowedOrigins, g.cfg.EnableDevMode)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sessionID := uuid.New().String()
	log := logrus.WithField("component", "wsgateway").WithField("sessionID", sessionID)

	c := newConnection(sessionID, conn, codec, g.cfg.SlowConsumerHighWaterMark, g.cfg.SlowConsumerHighWaterMark, g.closeSlowConsumer, log)

	g.mu.Lock()
	g.conns[sessionID] = c
	g.mu.Unlock()

	g.router.Open(sessionID)
	g.metrics.RecordWebSocketConnection("connected")

	go c.writeLoop()
	g.readLoop(sessionID, c, codec)
}

func (g *Gateway) closeSlowConsumer(sessionID string) {
	g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeSlowConsumer, "send buffer exceeded high-water mark"), "")
	g.router.Close(sessionID)
}

// readLoop decodes inbound frames until the socket closes, authorizes each
// one through the Router, and dispatches it to the joined (or about-to-be-
// joined) Land.
func (g *Gateway) readLoop(sessionID string, c *connection, codec wirecodec.Codec) {
	defer g.teardown(sessionID, c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := codec.DecodeEnvelope(data)
		if err != nil {
			g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed envelope"), "")
			continue
		}

		if err := validateInbound(g.validator, env, len(data)); err != nil {
			g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeInvalidRequest, err.Error()), requestIDOf(env))
			continue
		}

		g.metrics.RecordWebSocketMessage("inbound", string(env.Kind))
		g.dispatch(sessionID, env)
	}
}

func (g *Gateway) dispatch(sessionID string, env wireproto.Envelope) {
	if env.Kind == wireproto.KindJoin {
		g.handleJoin(sessionID, env)
		return
	}

	if werr := g.router.Authorize(sessionID, env); werr != nil {
		g.SendError(sessionID, werr, requestIDOf(env))
		return
	}

	fsm, ok := g.router.Get(sessionID)
	if !ok {
		return
	}
	landID := fsm.LandID()
	keeper, ok := g.manager.Get(landID)
	if !ok {
		g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeViewNotFound, "land no longer exists"), requestIDOf(env))
		return
	}

	switch env.Kind {
	case wireproto.KindAction:
		keeper.EnqueueAction(sessionID, env.Action.RequestID, env.Action.TypeIdentifier, env.Action.Payload)
	case wireproto.KindEvent:
		if env.ClientEvent != nil {
			keeper.EnqueueClientEvent(sessionID, env.ClientEvent.TypeIdentifier, env.ClientEvent.Payload)
		}
	case wireproto.KindLeave:
		keeper.EnqueueLeave(sessionID, "client requested leave")
		g.router.Close(sessionID)
	}
}

func (g *Gateway) handleJoin(sessionID string, env wireproto.Envelope) {
	if env.Join == nil {
		g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeUnknownError, "missing join payload"), "")
		return
	}
	fsm, ok := g.router.Get(sessionID)
	if !ok {
		return
	}
	if err := fsm.BeginJoin(); err != nil {
		g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeUnknownError, err.Error()), env.Join.RequestID)
		return
	}

	keeper, landID, err := g.manager.GetOrCreateForJoin(env.Join.LandType, env.Join.LandInstanceID)
	if err != nil {
		_ = fsm.AbortJoin()
		g.sendJoinFailure(sessionID, env.Join.RequestID, wireproto.NewWireError(wireproto.CodeJoinDenied, err.Error()))
		return
	}

	if err := fsm.MarkJoined(landID); err != nil {
		g.SendError(sessionID, wireproto.NewWireError(wireproto.CodeUnknownError, err.Error()), env.Join.RequestID)
		return
	}

	g.metrics.RecordLandEvent("join")
	keeper.EnqueueJoin(sessionID, env.Join.RequestID, env.Join.PlayerID, env.Join.DeviceID, env.Join.Metadata)
}

func (g *Gateway) sendJoinFailure(sessionID, requestID string, werr *wireproto.WireError) {
	g.SendJoinResponse(sessionID, wireproto.JoinResponse{RequestID: requestID, Success: false, Reason: werr})
}

func (g *Gateway) teardown(sessionID string, c *connection) {
	g.mu.Lock()
	delete(g.conns, sessionID)
	g.mu.Unlock()

	if fsm, ok := g.router.Get(sessionID); ok {
		if landID := fsm.LandID(); landID != "" {
			if keeper, ok := g.manager.Get(landID); ok {
				keeper.EnqueueLeave(sessionID, "connection closed")
			}
		}
	}
	g.router.Close(sessionID)
	c.Close()
	g.metrics.RecordWebSocketConnection("disconnected")
}

func requestIDOf(env wireproto.Envelope) string {
	switch env.Kind {
	case wireproto.KindAction:
		if env.Action != nil {
			return env.Action.RequestID
		}
	case wireproto.KindJoin:
		if env.Join != nil {
			return env.Join.RequestID
		}
	}
	return ""
}

// --- land.Transport implementation ---

var _ land.Transport = (*Gateway)(nil)

func (g *Gateway) connFor(sessionID string) (*connection, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.conns[sessionID]
	return c, ok
}

func (g *Gateway) SendJoinResponse(sessionID string, resp wireproto.JoinResponse) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	data, err := c.codec.EncodeEnvelope(wireproto.Envelope{Kind: wireproto.KindJoinResponse, JoinResponse: &resp})
	if err != nil {
		return
	}
	g.metrics.RecordWebSocketMessage("outbound", string(wireproto.KindJoinResponse))
	c.enqueue(frame{data: data, binary: c.codec.IsBinary()})
}

func (g *Gateway) SendActionResponse(sessionID string, resp wireproto.ActionResponse) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	data, err := c.codec.EncodeEnvelope(wireproto.Envelope{Kind: wireproto.KindActionResponse, ActionResponse: &resp})
	if err != nil {
		return
	}
	g.metrics.RecordWebSocketMessage("outbound", string(wireproto.KindActionResponse))
	c.enqueue(frame{data: data, binary: c.codec.IsBinary()})
}

func (g *Gateway) SendStateUpdate(sessionID string, update statesync.StateUpdate) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	data, err := c.codec.EncodeStateUpdate(update)
	if err != nil {
		return
	}
	g.metrics.RecordWebSocketMessage("outbound", "stateUpdate")
	c.enqueue(frame{data: data, binary: c.codec.IsBinary()})
}

func (g *Gateway) SendServerEvent(sessionID string, typeIdentifier string, payload interface{}) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	env := wireproto.Envelope{
		Kind: wireproto.KindEvent,
		ServerEvent: &wireproto.ServerEventEnvelope{
			TypeIdentifier: typeIdentifier,
			Payload:        payload,
		},
	}
	data, err := c.codec.EncodeEnvelope(env)
	if err != nil {
		return
	}
	g.metrics.RecordWebSocketMessage("outbound", string(wireproto.KindEvent))
	c.enqueue(frame{data: data, binary: c.codec.IsBinary()})
}

func (g *Gateway) SendError(sessionID string, werr *wireproto.WireError, requestID string) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	env := wireproto.Envelope{
		Kind:  wireproto.KindError,
		Error: &wireproto.ErrorEnvelope{Err: werr, RequestID: requestID},
	}
	data, err := c.codec.EncodeEnvelope(env)
	if err != nil {
		return
	}
	g.metrics.RecordWebSocketMessage("outbound", string(wireproto.KindError))
	c.enqueue(frame{data: data, binary: c.codec.IsBinary()})
}

func (g *Gateway) CloseSession(sessionID string, reason string) {
	c, ok := g.connFor(sessionID)
	if !ok {
		return
	}
	g.mu.Lock()
	delete(g.conns, sessionID)
	g.mu.Unlock()
	c.Close()
}
