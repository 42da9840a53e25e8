// Package realm implements the LandManager registry spec.md §4.6 describes:
// a multi-Land host keyed by LandID, responsible for get-or-create,
// routing by landID, and idle-destroy lifecycle management.
//
// Grounded on the teacher's session registry in pkg/server/session.go — a
// sync.RWMutex-guarded map with addRef/release-style bookkeeping —
// generalized here from per-session bookkeeping to per-Land bookkeeping.
package realm

import (
	"sync"
	"time"

	"statetree/pkg/config"
	"statetree/pkg/land"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewRoomInstanceID is the sentinel a client passes as LandInstanceID to
// request a freshly minted multi-room instance rather than joining the
// landType's canonical single-room instance or a named existing one. This
// resolves spec.md §4.6's "the server may mint a fresh instanceId" clause:
// the client opts into minting explicitly rather than the manager guessing
// intent from an empty string, which spec.md already reserves for
// single-room mode.
const NewRoomInstanceID = "*"

// LandSummary is the admin-facing enumeration record spec.md §4.6 names.
type LandSummary struct {
	LandID       string
	LandType     string
	InstanceID   string
	CreatedAt    time.Time
	SessionCount int
}

type landEntry struct {
	keeper     *land.Keeper
	landType   string
	instanceID string
	createdAt  time.Time
}

// Manager is the Realm / LandManager registry. One Manager instance owns
// every live Land in a process; Lands in different Managers (e.g. separate
// processes) have no shared state or ordering guarantee, per spec.md §5.
type Manager struct {
	mu          sync.RWMutex
	definitions map[string]*land.Definition
	instances   map[string]*landEntry

	cfg             *config.Config
	services        land.Services
	transport       land.Transport
	recorderFactory func(landID string) land.Recorder
	log             *logrus.Entry
}

// ManagerConfig bundles a Manager's fixed collaborators. Transport and
// Services are registered once at construction and are read-only for the
// Manager's lifetime, per spec.md §5's "registration happens at Land
// creation... post-creation it is read-only" rule.
type ManagerConfig struct {
	Config    *config.Config
	Services  land.Services
	Transport land.Transport

	// RecorderFactory, if non-nil, is called once per Land instance to
	// build its reevaluation Recorder. Leave nil to disable recording
	// regardless of Config.EnableReevaluationRecording.
	RecorderFactory func(landID string) land.Recorder

	Logger *logrus.Entry
}

// NewManager creates an empty registry ready for Register calls.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.WithField("component", "realm.Manager")
	}
	return &Manager{
		definitions:     make(map[string]*land.Definition),
		instances:       make(map[string]*landEntry),
		cfg:             cfg.Config,
		services:        cfg.Services,
		transport:       cfg.Transport,
		recorderFactory: cfg.RecorderFactory,
		log:             logger,
	}
}

// Register adds a LandDefinition to the registry under its LandType.
// Duplicate registration of the same landType is rejected with
// errDuplicateLandType; an empty landType is rejected with
// errInvalidLandType — both per spec.md §4.6.
func (m *Manager) Register(def *land.Definition) error {
	if def.LandType == "" {
		return errInvalidLandType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.definitions[def.LandType]; exists {
		return errDuplicateLandType(def.LandType)
	}
	m.definitions[def.LandType] = def
	m.log.WithField("landType", def.LandType).Info("land type registered")
	return nil
}

// canonicalLandID implements spec.md §4.6's "single-room vs multi-room"
// rule: an instanceID equal to the landType (including the empty-string
// default, which resolves to the landType) collapses to the bare landType
// as the canonical LandID; anything else is namespaced landType:instanceId.
func canonicalLandID(landType, instanceID string) string {
	if instanceID == "" || instanceID == landType {
		return landType
	}
	return landType + ":" + instanceID
}

// GetOrCreateForJoin resolves a Join request's (landType, requestedInstanceID)
// to a live Keeper, creating one if this is the first Join for that LandID.
// It is atomic: concurrent Joins for the same LandID never create two
// Keepers for it, per spec.md §4.6's getOrCreate contract.
//
// requestedInstanceID == "" selects single-room mode (canonical instanceID
// equal to landType). requestedInstanceID == NewRoomInstanceID mints a
// fresh UUID instanceID for a brand new multi-room instance. Any other
// value joins (or creates) that specific named instance.
func (m *Manager) GetOrCreateForJoin(landType, requestedInstanceID string) (keeper *land.Keeper, landID string, err error) {
	instanceID := requestedInstanceID
	if instanceID == NewRoomInstanceID {
		instanceID = uuid.New().String()
	}
	landID = canonicalLandID(landType, instanceID)
	if instanceID == "" {
		instanceID = landType
	}

	m.mu.Lock()
	if entry, exists := m.instances[landID]; exists {
		m.mu.Unlock()
		return entry.keeper, landID, nil
	}

	def, ok := m.definitions[landType]
	if !ok {
		m.mu.Unlock()
		return nil, "", errUnknownLandType(landType)
	}

	var recorder land.Recorder
	if m.recorderFactory != nil && m.cfg.EnableReevaluationRecording {
		recorder = m.recorderFactory(landID)
	}

	k, err := land.NewKeeper(land.KeeperConfig{
		Definition:       def,
		LandID:           landID,
		InstanceID:       instanceID,
		Encoding:         m.cfg.DefaultEncoding,
		Services:         m.services,
		Transport:        m.transport,
		Recorder:         recorder,
		IdleDestroyTicks: m.cfg.IdleDestroyTicks,
		Logger:           m.log,
	})
	if err != nil {
		m.mu.Unlock()
		return nil, "", err
	}

	k.OnIdleDestroy = func(id string) {
		m.log.WithField("landID", id).Info("land idle, destroying")
		go m.Remove(id)
	}

	m.instances[landID] = &landEntry{
		keeper:     k,
		landType:   landType,
		instanceID: instanceID,
		createdAt:  time.Now(),
	}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"landType": landType, "landID": landID}).Info("land created")
	go k.Run()
	return k, landID, nil
}

// Get looks up an existing Land by its canonical LandID.
func (m *Manager) Get(landID string) (*land.Keeper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.instances[landID]
	if !ok {
		return nil, false
	}
	return entry.keeper, true
}

// Remove destroys a Land: it is immediately unlisted so no further Join
// resolves to it, then its Keeper is stopped with no grace period (ops
// still queued are discarded) and afterFinalize runs, all before this
// call returns.
func (m *Manager) Remove(landID string) error {
	m.mu.Lock()
	entry, ok := m.instances[landID]
	if !ok {
		m.mu.Unlock()
		return errLandNotFound(landID)
	}
	delete(m.instances, landID)
	m.mu.Unlock()

	entry.keeper.Stop(0)
	m.log.WithField("landID", landID).Info("land destroyed")
	return nil
}

// Enumerate returns a summary of every live Land, for admin inspection.
func (m *Manager) Enumerate() []LandSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LandSummary, 0, len(m.instances))
	for landID, entry := range m.instances {
		out = append(out, LandSummary{
			LandID:       landID,
			LandType:     entry.landType,
			InstanceID:   entry.instanceID,
			CreatedAt:    entry.createdAt,
			SessionCount: entry.keeper.SessionCount(),
		})
	}
	return out
}
