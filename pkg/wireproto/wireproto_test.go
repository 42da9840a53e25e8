package wireproto_test

import (
	"context"
	"testing"
	"time"

	"statetree/pkg/wireproto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireErrorWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := wireproto.NewWireError(wireproto.CodeViewNotFound, "no such land")
	withDetail := base.WithDetail("landID", "lobby-1")

	assert.Nil(t, base.Details)
	assert.Equal(t, "lobby-1", withDetail.Details["landID"])
}

func TestSessionFSMHappyPath(t *testing.T) {
	fsm := wireproto.NewSessionFSM()
	require.Equal(t, wireproto.StateInitial, fsm.State())

	require.NoError(t, fsm.MarkConnected())
	require.NoError(t, fsm.BeginJoin())
	require.NoError(t, fsm.MarkJoined("lobby-1"))
	require.Equal(t, wireproto.StateJoined, fsm.State())
	require.Equal(t, "lobby-1", fsm.LandID())

	assert.Nil(t, fsm.RequireJoined("lobby-1"))

	fsm.MarkEnded()
	require.Equal(t, wireproto.StateEnded, fsm.State())
}

func TestSessionFSMRejectsOutOfOrderTransitions(t *testing.T) {
	fsm := wireproto.NewSessionFSM()
	assert.Error(t, fsm.BeginJoin())
	assert.Error(t, fsm.MarkJoined("lobby-1"))
}

func TestSessionFSMRequireJoinedRejectsMismatchedLandID(t *testing.T) {
	fsm := wireproto.NewSessionFSM()
	require.NoError(t, fsm.MarkConnected())
	require.NoError(t, fsm.BeginJoin())
	require.NoError(t, fsm.MarkJoined("lobby-1"))

	err := fsm.RequireJoined("lobby-2")
	require.NotNil(t, err)
	assert.Equal(t, wireproto.CodeViewNotFound, err.Code)
}

func TestRouterAuthorizeDropsUnknownSession(t *testing.T) {
	r := wireproto.NewRouter()
	err := r.Authorize("ghost", wireproto.Envelope{Kind: wireproto.KindAction})
	require.NotNil(t, err)
	assert.Equal(t, wireproto.CodeNotJoined, err.Code)
}

func TestRouterAuthorizeStrictLandIDMatch(t *testing.T) {
	r := wireproto.NewRouter()
	fsm := r.Open("sess-1")
	require.NoError(t, fsm.BeginJoin())
	require.NoError(t, fsm.MarkJoined("lobby-1"))

	ok := r.Authorize("sess-1", wireproto.Envelope{
		Kind:   wireproto.KindAction,
		Action: &wireproto.ActionRequest{LandID: "lobby-1"},
	})
	assert.Nil(t, ok)

	mismatch := r.Authorize("sess-1", wireproto.Envelope{
		Kind:   wireproto.KindAction,
		Action: &wireproto.ActionRequest{LandID: "lobby-2"},
	})
	require.NotNil(t, mismatch)
	assert.Equal(t, wireproto.CodeViewNotFound, mismatch.Code)
}

func TestRouterCloseEndsSession(t *testing.T) {
	r := wireproto.NewRouter()
	r.Open("sess-1")
	r.Close("sess-1")

	_, ok := r.Get("sess-1")
	assert.False(t, ok)
}

func TestCorrelatorResolveDeliversResponse(t *testing.T) {
	c := wireproto.NewCorrelator()
	pending := c.Register("req-1", time.Second)

	resp := &wireproto.ActionResponse{RequestID: "req-1", Success: true}
	require.True(t, c.Resolve("req-1", resp))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, got.Success)
}

func TestCorrelatorResolveUnknownRequestIsNoop(t *testing.T) {
	c := wireproto.NewCorrelator()
	assert.False(t, c.Resolve("never-registered", &wireproto.ActionResponse{}))
}

func TestCorrelatorCancelAllResolvesEveryPending(t *testing.T) {
	c := wireproto.NewCorrelator()
	p1 := c.Register("req-1", time.Second)
	p2 := c.Register("req-2", time.Second)

	c.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r1, err := p1.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, r1.Success)

	r2, err := p2.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, r2.Success)
}
