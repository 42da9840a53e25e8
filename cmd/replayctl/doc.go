// Package main implements replayctl, the reevaluation replay CLI.
//
// It loads a recorded op log produced by pkg/replay's FileRecorder,
// resolves the log's landType to a registered land.Definition, and drives
// pkg/replay's Runner against a freshly constructed Keeper — bypassing the
// transport entirely — comparing each recomputed state hash against the
// one captured live.
//
// # Usage
//
//	replayctl -record ./reevaluation-records/cookieClicker.jsonl
//
// Exits non-zero if any tick's recomputed hash mismatches the recorded
// one, or if the record's landType/landDefinitionID/format version fails
// pkg/replay's fail-fast compatibility checks.
package main
