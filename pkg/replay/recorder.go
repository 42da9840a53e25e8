package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"statetree/pkg/land"
	"statetree/pkg/persistence"

	"github.com/sirupsen/logrus"
)

// CurrentRecordFormatVersion is bumped whenever the on-disk shape of
// RecordHeader or RecordEntry changes incompatibly. The Runner refuses to
// replay a record whose version it does not recognize.
const CurrentRecordFormatVersion = 1

// RecordHeader is the first line of a reevaluation record, per spec.md
// §4.7's header object.
type RecordHeader struct {
	LandType            string    `json:"landType"`
	LandDefinitionID     string    `json:"landDefinitionID"`
	RecordFormatVersion int       `json:"recordFormatVersion"`
	LandID              string    `json:"landID"`
	CreatedAt           time.Time `json:"createdAt"`
}

// RecordEntry is one line after the header: a single committed op, per
// spec.md §4.7's `{tickId, kind, payloadBytes, stateHash, ...}` shape.
type RecordEntry struct {
	TickID              uint64              `json:"tickId"`
	Kind                string              `json:"kind"`
	PayloadBytes        []byte              `json:"payloadBytes"`
	StateHash           string              `json:"stateHash"`
	EmittedServerEvents []land.RecordedEvent `json:"emittedServerEvents"`
}

// Record is a fully-loaded reevaluation log: header plus ordered entries.
type Record struct {
	Header  RecordHeader
	Entries []RecordEntry
}

// FileRecorder appends RecordEntry lines to a JSON-lines record file,
// satisfying land.Recorder. Every write — the initial header and every
// subsequently appended entry — goes through
// pkg/persistence.AtomicWriteFile, so a crash mid-write never leaves a
// torn record on disk; a pkg/persistence.FileLock is held for the
// recorder's lifetime to guard the file against a concurrent writer in
// another process, exactly the two primitives
// pkg/persistence/filestore.go's FileStore itself builds on. The whole
// record (header + entries-so-far) is re-rendered and rewritten on every
// Append rather than appended-in-place: the atomic-rename guarantee only
// covers whole-file replacement, and reevaluation records are bounded by
// a single Land's play session, not unbounded growth.
type FileRecorder struct {
	mu      sync.Mutex
	path    string
	lock    *persistence.FileLock
	header  RecordHeader
	entries []RecordEntry
	log     *logrus.Entry
}

// NewFileRecorder creates (or replaces) the record file at path, acquires
// an exclusive pkg/persistence.FileLock on it for the recorder's
// lifetime, and writes its header line immediately.
func NewFileRecorder(path string, header RecordHeader) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("replay: create records dir: %w", err)
	}

	lock, err := persistence.NewFileLock(path)
	if err != nil {
		return nil, fmt.Errorf("replay: create record file lock: %w", err)
	}
	if err := lock.Lock(); err != nil {
		lock.Close()
		return nil, fmt.Errorf("replay: acquire record file lock: %w", err)
	}

	header.RecordFormatVersion = CurrentRecordFormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now()
	}

	r := &FileRecorder{
		path:   path,
		lock:   lock,
		header: header,
		log:    logrus.WithField("component", "replay.FileRecorder"),
	}
	if err := r.flushLocked(); err != nil {
		lock.Close()
		return nil, fmt.Errorf("replay: write record header: %w", err)
	}
	return r, nil
}

// Append satisfies land.Recorder. Failures are logged, not returned: a
// broken recorder must never take down the Land it is recording.
func (r *FileRecorder) Append(tickID uint64, kind string, payloadBytes []byte, stateHash string, events []land.RecordedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, RecordEntry{
		TickID:              tickID,
		Kind:                kind,
		PayloadBytes:        payloadBytes,
		StateHash:           stateHash,
		EmittedServerEvents: events,
	})
	if err := r.flushLocked(); err != nil {
		r.log.WithError(err).Error("failed to append reevaluation record entry")
	}
}

// flushLocked re-renders the header plus every entry recorded so far as
// JSON lines and writes them to r.path via persistence.AtomicWriteFile.
// Callers must hold r.mu.
func (r *FileRecorder) flushLocked() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(r.header); err != nil {
		return fmt.Errorf("encode record header: %w", err)
	}
	for _, entry := range r.entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode record entry: %w", err)
		}
	}
	return persistence.AtomicWriteFile(r.path, buf.Bytes(), 0o644)
}

// Close releases the record file's lock. The file itself is already
// durable after the last successful Append, since every write is a
// complete atomic replacement.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lock.Close()
}

// FactoryConfig bundles what NewRecorderFactory needs to derive each Land's
// record path and header from nothing but its LandID.
type FactoryConfig struct {
	BaseDir string
	// DefinitionIDs maps landType -> LandDefinitionID, used to populate the
	// header so the Runner's SCHEMA_MISMATCH check has something to compare.
	DefinitionIDs map[string]string
	Logger        *logrus.Entry
}

// NewRecorderFactory builds a func(landID) land.Recorder suitable for
// realm.ManagerConfig.RecorderFactory. landType is recovered from landID's
// canonical form (landType, or landType:instanceId).
func NewRecorderFactory(cfg FactoryConfig) func(landID string) land.Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.WithField("component", "replay.RecorderFactory")
	}
	return func(landID string) land.Recorder {
		landType := landID
		if idx := strings.IndexByte(landID, ':'); idx >= 0 {
			landType = landID[:idx]
		}

		path := filepath.Join(cfg.BaseDir, sanitizeFileName(landID)+".jsonl")
		header := RecordHeader{
			LandType:         landType,
			LandDefinitionID: cfg.DefinitionIDs[landType],
			LandID:           landID,
		}

		rec, err := NewFileRecorder(path, header)
		if err != nil {
			logger.WithError(err).WithField("landID", landID).Error("failed to open reevaluation record; recording disabled for this land")
			return noopRecorder{}
		}
		return rec
	}
}

func sanitizeFileName(landID string) string {
	return strings.NewReplacer(":", "__", "/", "_", "\\", "_").Replace(landID)
}

type noopRecorder struct{}

func (noopRecorder) Append(uint64, string, []byte, string, []land.RecordedEvent) {}

// LoadRecord reads a JSON-lines reevaluation record: the first line is the
// header, every subsequent non-empty line is one RecordEntry.
func LoadRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open record file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("replay: record file %q is empty", path)
	}
	var header RecordHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("replay: decode record header: %w", err)
	}

	var entries []RecordEntry
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry RecordEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("replay: decode record entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: scan record file: %w", err)
	}

	return &Record{Header: header, Entries: entries}, nil
}
