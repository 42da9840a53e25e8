// Package replay implements the deterministic reevaluation subsystem
// spec.md §4.7 describes: a Recorder that appends every committed op a
// live LandKeeper processes to an append-only log, and a Runner that
// replays that log against a freshly constructed Keeper — bypassing the
// transport entirely — comparing recomputed state hashes against the ones
// recorded live to verify the run was deterministic.
//
// Grounded on the teacher's persistence layer (pkg/persistence, itself
// adapted from the teacher's world-save filestore) for the on-disk write
// path, and on pkg/land's Recorder/Transport seams, which were designed
// specifically so this package never needs to reach into Keeper internals.
package replay
