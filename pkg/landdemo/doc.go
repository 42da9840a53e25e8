// Package landdemo implements a cookie-clicker-style land.Definition that
// exercises the broadcast and perPlayerSlice field sync policies: a broadcast
// total, a broadcast per-player leaderboard, and a perPlayerSlice private
// upgrade inventory. It exists to give the runtime a concrete, registrable
// Land a fresh deployment can join immediately — the reference fixture
// cmd/server registers by default — rather than a pure library with
// nothing to demonstrate it.
//
// Dirty tracking is grounded on pkg/statefield.Tracker (the mutation-wrapper
// dirty bitmap), and the tick handler's NPC chatter is grounded on the
// teacher's Markov-chain dialogue generator (pkg/pcg/dialogue.go), using
// the same github.com/mb-14/gomarkov library it depends on.
package landdemo
