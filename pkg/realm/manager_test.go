package realm_test

import (
	"sync"
	"testing"
	"time"

	"statetree/pkg/config"
	"statetree/pkg/land"
	"statetree/pkg/realm"
	"statetree/pkg/statefield"
	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	closed []string
}

func (f *fakeTransport) SendJoinResponse(sessionID string, resp wireproto.JoinResponse) {}
func (f *fakeTransport) SendActionResponse(sessionID string, resp wireproto.ActionResponse) {}
func (f *fakeTransport) SendStateUpdate(sessionID string, update statesync.StateUpdate) {}
func (f *fakeTransport) SendServerEvent(sessionID string, typeIdentifier string, payload interface{}) {
}
func (f *fakeTransport) SendError(sessionID string, err *wireproto.WireError, requestID string) {}
func (f *fakeTransport) CloseSession(sessionID string, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
}

func testDefinition(landType string) *land.Definition {
	return &land.Definition{
		LandType:         landType,
		LandDefinitionID: landType + "-v1",
		Fields:           statefield.Table{},
		NewState:         func() interface{} { return &struct{}{} },
		CloneState:       func(s interface{}) interface{} { return &struct{}{} },
		MaxPlayers:       4,
		Actions:          map[string]land.ActionHandler{},
		ClientEvents:     map[string]land.ClientEventHandler{},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultEncoding:  "jsonObject",
		IdleDestroyTicks: 3,
	}
}

func newManager() *realm.Manager {
	return realm.NewManager(realm.ManagerConfig{
		Config:    testConfig(),
		Transport: &fakeTransport{},
	})
}

func TestRegisterRejectsEmptyAndDuplicateLandType(t *testing.T) {
	m := newManager()

	err := m.Register(testDefinition(""))
	assert.Error(t, err)

	require.NoError(t, m.Register(testDefinition("counters")))
	err = m.Register(testDefinition("counters"))
	assert.Error(t, err)
}

func TestGetOrCreateForJoinSingleRoomIsCanonical(t *testing.T) {
	m := newManager()
	require.NoError(t, m.Register(testDefinition("counters")))

	k1, landID1, err := m.GetOrCreateForJoin("counters", "")
	require.NoError(t, err)
	assert.Equal(t, "counters", landID1)

	k2, landID2, err := m.GetOrCreateForJoin("counters", "")
	require.NoError(t, err)
	assert.Equal(t, landID1, landID2)
	assert.Same(t, k1, k2)

	t.Cleanup(func() { k1.Stop(0) })
}

func TestGetOrCreateForJoinMultiRoomMintsDistinctInstances(t *testing.T) {
	m := newManager()
	require.NoError(t, m.Register(testDefinition("dungeon")))

	k1, landID1, err := m.GetOrCreateForJoin("dungeon", realm.NewRoomInstanceID)
	require.NoError(t, err)
	k2, landID2, err := m.GetOrCreateForJoin("dungeon", realm.NewRoomInstanceID)
	require.NoError(t, err)

	assert.NotEqual(t, landID1, landID2)
	assert.NotSame(t, k1, k2)

	t.Cleanup(func() {
		k1.Stop(0)
		k2.Stop(0)
	})
}

func TestGetOrCreateForJoinUnknownLandTypeErrors(t *testing.T) {
	m := newManager()
	_, _, err := m.GetOrCreateForJoin("nonexistent", "")
	assert.Error(t, err)
}

func TestRemoveUnlistsAndStopsTheLand(t *testing.T) {
	m := newManager()
	require.NoError(t, m.Register(testDefinition("counters")))

	k, landID, err := m.GetOrCreateForJoin("counters", "")
	require.NoError(t, err)

	require.NoError(t, m.Remove(landID))
	_, ok := m.Get(landID)
	assert.False(t, ok)

	_ = k // Stop already invoked by Remove
}

func TestEnumerateReportsLiveLands(t *testing.T) {
	m := newManager()
	require.NoError(t, m.Register(testDefinition("counters")))

	_, landID, err := m.GetOrCreateForJoin("counters", "")
	require.NoError(t, err)
	t.Cleanup(func() {
		k, ok := m.Get(landID)
		if ok {
			k.Stop(0)
		}
	})

	deadline := time.Now().Add(time.Second)
	var summaries []realm.LandSummary
	for time.Now().Before(deadline) {
		summaries = m.Enumerate()
		if len(summaries) == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.Len(t, summaries, 1)
	assert.Equal(t, landID, summaries[0].LandID)
	assert.Equal(t, "counters", summaries[0].LandType)
}
