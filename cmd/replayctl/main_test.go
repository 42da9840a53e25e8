package main

import (
	"bytes"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statetree/pkg/land"
	"statetree/pkg/landdemo"
	"statetree/pkg/replay"
	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"
)

// discardTransport satisfies land.Transport by dropping every outbound
// call; recordLiveSession only cares about driving the Keeper's state
// mutations and recorder output, not what a real client would receive. It
// tracks closed-session count so the test knows when the scripted Leave
// has actually been processed.
type discardTransport struct {
	mu     sync.Mutex
	closed int32
}

func newDiscardTransport() *discardTransport { return &discardTransport{} }

func (d *discardTransport) closedCount() int { return int(atomic.LoadInt32(&d.closed)) }

func (d *discardTransport) SendJoinResponse(string, wireproto.JoinResponse)     {}
func (d *discardTransport) SendActionResponse(string, wireproto.ActionResponse) {}
func (d *discardTransport) SendStateUpdate(string, statesync.StateUpdate)       {}
func (d *discardTransport) SendServerEvent(string, string, interface{})         {}
func (d *discardTransport) SendError(string, *wireproto.WireError, string)      {}
func (d *discardTransport) CloseSession(string, string) {
	atomic.AddInt32(&d.closed, 1)
}

// recordLiveSession drives a real landdemo Keeper through a short scripted
// session with recording enabled, returning the path to the resulting
// record file for replayctl to consume.
func recordLiveSession(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")

	recorder, err := replay.NewFileRecorder(path, replay.RecordHeader{
		LandType:         landdemo.LandType,
		LandDefinitionID: landdemo.LandDefinitionID,
		LandID:           landdemo.LandType,
	})
	require.NoError(t, err)

	def := landdemo.Definition()
	def.TickInterval = 0 // drive ticks manually for a deterministic fixture

	transport := newDiscardTransport()
	keeper, err := land.NewKeeper(land.KeeperConfig{
		Definition: def,
		LandID:     landdemo.LandType,
		Encoding:   "jsonObject",
		Services:   land.Services{},
		Transport:  transport,
		Recorder:   recorder,
	})
	require.NoError(t, err)

	go keeper.Run()

	keeper.EnqueueJoin("sess-1", "req-1", "p1", "", nil)
	keeper.EnqueueAction("sess-1", "req-2", "clickCookie", nil)
	keeper.EnqueueTick()
	keeper.EnqueueLeave("sess-1", "done")

	deadline := time.Now().Add(2 * time.Second)
	for transport.closedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	keeper.Stop(0)
	require.NoError(t, recorder.Close())
	return path
}

func TestReplayctlReplaysRecordedSessionCleanly(t *testing.T) {
	path := recordLiveSession(t)

	var out bytes.Buffer
	cfg := &cliConfig{RecordPath: path, Timeout: 10 * time.Second}
	err := run(cfg, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Phase:            completed")
	assert.Contains(t, out.String(), "Mismatched ticks: 0")
}

func TestReplayctlRequiresRecordPath(t *testing.T) {
	var out bytes.Buffer
	err := run(&cliConfig{}, &out)
	assert.EqualError(t, err, "-record is required")
}

func TestReplayctlRejectsUnknownLandType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unknown.jsonl")

	recorder, err := replay.NewFileRecorder(path, replay.RecordHeader{LandType: "somethingElse"})
	require.NoError(t, err)
	require.NoError(t, recorder.Close())

	var out bytes.Buffer
	err = run(&cliConfig{RecordPath: path, Timeout: time.Second}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registered land definition")
}
