package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"statetree/pkg/land"
	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"

	"github.com/sirupsen/logrus"
)

// Phase is one state in a Runner's lifecycle, per spec.md §4.7.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseVerifying  Phase = "verifying"
	PhasePaused     Phase = "paused"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Status is the progress snapshot a Runner publishes as it steps through a
// record. Callers poll Runner.Status() rather than receiving a stream.
type Status struct {
	Phase            Phase
	CurrentTick      int
	TotalTicks       int
	CorrectTicks     int
	MismatchedTicks  int
	LastComputedHash string
	LastRecordedHash string
	ErrorMessage     string
}

// Runner replays a Record against a freshly constructed land.Keeper,
// bypassing the transport entirely, and compares recomputed state hashes
// against the ones captured live.
type Runner struct {
	def    *land.Definition
	record *Record

	mu     sync.Mutex
	status Status

	pauseRequested bool
	stopRequested  bool

	log *logrus.Entry
}

// NewRunner performs spec.md §4.7's fail-fast compatibility checks and
// returns a Runner ready to Run, or an error identifying which check
// failed.
func NewRunner(def *land.Definition, record *Record) (*Runner, error) {
	if record.Header.LandType != def.LandType {
		return nil, wireproto.NewWireError(wireproto.CodeLandTypeMismatch,
			fmt.Sprintf("record landType %q does not match expected %q", record.Header.LandType, def.LandType))
	}
	if def.LandDefinitionID != "" && record.Header.LandDefinitionID != def.LandDefinitionID {
		return nil, wireproto.NewWireError(wireproto.CodeSchemaMismatch,
			fmt.Sprintf("record landDefinitionID %q does not match expected %q", record.Header.LandDefinitionID, def.LandDefinitionID))
	}
	if record.Header.RecordFormatVersion != CurrentRecordFormatVersion {
		return nil, wireproto.NewWireError(wireproto.CodeRecordVersionMismatch,
			fmt.Sprintf("record format version %d does not match required %d", record.Header.RecordFormatVersion, CurrentRecordFormatVersion))
	}

	return &Runner{
		def:    def,
		record: record,
		status: Status{Phase: PhaseIdle, TotalTicks: len(record.Entries)},
		log:    logrus.WithField("component", "replay.Runner"),
	}, nil
}

// Status returns a copy of the Runner's current progress.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Pause requests the step loop suspend before its next entry.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseRequested = true
}

// Resume clears a pending pause.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseRequested = false
}

// Stop requests the step loop abandon the replay at its next check point.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopRequested = true
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.status.Phase = p
	r.mu.Unlock()
}

// Run drives the replay to completion (or until cancelled/stopped). It
// constructs its own Keeper — seeded from the record's LandID exactly as
// the original live Land was — and feeds each recorded op through the
// step-synchronized StepDone channel pkg/land exposes for this purpose.
func (r *Runner) Run(ctx context.Context) error {
	r.setPhase(PhaseLoading)

	stepDone := make(chan land.StepResult, 1)
	replayDef := *r.def
	replayDef.TickInterval = 0 // ticks are fed manually from the record, never the wall clock

	keeper, err := land.NewKeeper(land.KeeperConfig{
		Definition: &replayDef,
		LandID:     r.record.Header.LandID,
		Encoding:   "jsonObject",
		Services:   land.Services{},
		Transport:  noopTransport{},
		StepDone:   stepDone,
	})
	if err != nil {
		r.fail(fmt.Sprintf("failed to construct replay keeper: %v", err))
		return err
	}

	go keeper.Run()
	defer keeper.Stop(0)

	r.setPhase(PhaseVerifying)

	for i, entry := range r.record.Entries {
		for {
			r.mu.Lock()
			paused, stopped := r.pauseRequested, r.stopRequested
			if paused {
				r.status.Phase = PhasePaused
			}
			r.mu.Unlock()

			if stopped {
				r.setPhase(PhaseIdle)
				return nil
			}
			if !paused {
				break
			}
			select {
			case <-ctx.Done():
				r.fail(ctx.Err().Error())
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}

		if ctx.Err() != nil {
			r.fail(ctx.Err().Error())
			return ctx.Err()
		}

		if err := submitEntry(keeper, entry); err != nil {
			r.log.WithError(err).WithField("tick", entry.TickID).Warn("skipping unreplayable record entry")
			continue
		}

		result := <-stepDone

		r.mu.Lock()
		r.status.CurrentTick = i + 1
		r.status.LastComputedHash = result.Hash
		r.status.LastRecordedHash = entry.StateHash
		if result.Hash == entry.StateHash {
			r.status.CorrectTicks++
		} else {
			r.status.MismatchedTicks++
		}
		r.mu.Unlock()
	}

	r.setPhase(PhaseCompleted)
	return nil
}

func (r *Runner) fail(message string) {
	r.mu.Lock()
	r.status.Phase = PhaseFailed
	r.status.ErrorMessage = message
	r.mu.Unlock()
}

// submitEntry reconstructs and re-enqueues one recorded op against keeper.
// Admin ops are operator-triggered side channels rather than part of a
// deterministic gameplay sequence and carry no RecordedOpEnvelope payload,
// so they are not reconstructable here and are skipped.
func submitEntry(keeper *land.Keeper, entry RecordEntry) error {
	switch entry.Kind {
	case "tick":
		keeper.EnqueueTick()
		return nil
	case "admin":
		return fmt.Errorf("admin ops are not replayable")
	}

	var envelope land.RecordedOpEnvelope
	if len(entry.PayloadBytes) > 0 {
		if err := json.Unmarshal(entry.PayloadBytes, &envelope); err != nil {
			return fmt.Errorf("decode recorded op envelope: %w", err)
		}
	}

	switch entry.Kind {
	case "join":
		keeper.EnqueueJoin(envelope.SessionID, envelope.RequestID, envelope.PlayerIDHint, envelope.DeviceID, envelope.Metadata)
	case "leave":
		keeper.EnqueueLeave(envelope.SessionID, envelope.LeaveReason)
	case "action":
		keeper.EnqueueAction(envelope.SessionID, envelope.RequestID, envelope.TypeIdentifier, envelope.Payload)
	case "clientEvent":
		keeper.EnqueueClientEvent(envelope.SessionID, envelope.TypeIdentifier, envelope.Payload)
	default:
		return fmt.Errorf("unknown recorded op kind %q", entry.Kind)
	}
	return nil
}

// noopTransport discards every outbound call; the replay runner never has
// real sessions attached, only the state mutations matter.
type noopTransport struct{}

func (noopTransport) SendJoinResponse(string, wireproto.JoinResponse)          {}
func (noopTransport) SendActionResponse(string, wireproto.ActionResponse)      {}
func (noopTransport) SendStateUpdate(string, statesync.StateUpdate)            {}
func (noopTransport) SendServerEvent(string, string, interface{})             {}
func (noopTransport) SendError(string, *wireproto.WireError, string)          {}
func (noopTransport) CloseSession(string, string)                             {}
