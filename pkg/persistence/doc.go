// Package persistence provides file-based data persistence for the StateTree runtime.
//
// This package handles game state storage with atomic writes, file locking, and
// YAML serialization to ensure data integrity and protection against corruption
// from concurrent access or crashes.
//
// # FileStore
//
// FileStore is the primary interface for persisting game data:
//
//	store, err := persistence.NewFileStore("/path/to/data")
//	if err != nil {
//	    return err
//	}
//
//	// Save game state
//	err := store.Save("game.yaml", gameState)
//
//	// Load game state
//	var loaded GameState
//	err := store.Load("game.yaml", &loaded)
//
// # Atomic Writes
//
// All write operations use atomic file replacement to prevent corruption:
//
//  1. Data is written to a temporary file
//  2. Temporary file is synced to disk
//  3. Temporary file is renamed to target (atomic operation)
//
// This ensures that even if a crash occurs during save, the original file
// remains intact.
//
// # File Locking
//
// FileLock provides cross-process synchronization using flock syscalls:
//
//	lock, err := persistence.NewFileLock("/path/to/file") // locks /path/to/file.lock
//	if err != nil {
//	    return err
//	}
//	defer lock.Close()
//
//	// Blocking lock acquisition
//	if err := lock.Lock(); err != nil {
//	    return err
//	}
//	defer lock.Unlock()
//
//	// Non-blocking lock attempt
//	acquired, err := lock.TryLock()
//	if !acquired {
//	    return errors.New("resource busy")
//	}
//
// # File Operations
//
// Additional file management methods:
//
//	// Check existence
//	if store.Exists("character.yaml") {
//	    // File exists
//	}
//
//	// Delete file and associated lock
//	err := store.Delete("old-save.yaml")
//
//	// List files matching pattern
//	files, err := store.List("saves/*.yaml")
//
// # YAML Serialization
//
// Data is serialized using YAML for human-readable storage. Types should
// use yaml struct tags for field mapping:
//
//	type Character struct {
//	    Name  string `yaml:"name"`
//	    Level int    `yaml:"level"`
//	}
//
// # Thread Safety
//
// FileStore operations are protected by internal mutexes for safe concurrent
// access within a single process. FileLock extends protection across processes.
//
// # Other Consumers
//
// pkg/replay's FileRecorder writes reevaluation records through
// AtomicWriteFile and holds a FileLock for its lifetime directly, rather
// than going through FileStore's YAML Save/Load: a reevaluation record is
// JSON-lines, not a single YAML document, but it needs the same
// crash-safety and cross-process exclusivity guarantees.
//
// # Platform Support
//
// File locking uses Unix flock syscalls directly. There are no build tags
// or platform-specific variants, so the package builds only where
// syscall.Flock exists.
package persistence
