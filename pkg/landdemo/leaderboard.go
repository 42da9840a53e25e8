package landdemo

import (
	"context"

	"statetree/pkg/integration"
	"statetree/pkg/persistence"

	"github.com/sirupsen/logrus"
)

// ServiceLeaderboardPersister is the land.Services key a cookieClicker
// Keeper's services bag is built with, so its Tick handler can reach the
// injected LeaderboardPersister through ctx.Services() rather than a
// package-level global.
const ServiceLeaderboardPersister = "leaderboardPersister"

// leaderboardSnapshot is the on-disk shape a LeaderboardPersister writes:
// total lifetime clicks per player, the same data cookieState.players
// holds, rendered through pkg/persistence's YAML FileStore instead of the
// reevaluation recorder's JSON-lines format.
type leaderboardSnapshot struct {
	TotalCookies int64            `yaml:"totalCookies"`
	Players      map[string]int64 `yaml:"players"`
}

// LeaderboardPersister periodically snapshots a cookieClicker Land's
// leaderboard to disk through pkg/persistence.FileStore, with every Save
// call protected by pkg/integration's combined circuit-breaker + retry
// executor. Persist runs on the calling goroutine, so a slow or failing
// disk (and the retries it causes) delays the Tick that calls it; Persist
// logs and swallows errors rather than propagating them into a Tick handler.
type LeaderboardPersister struct {
	store    *persistence.FileStore
	filename string
	log      *logrus.Entry
}

// NewLeaderboardPersister builds a persister writing a Land's leaderboard
// to filename within store's data directory.
func NewLeaderboardPersister(store *persistence.FileStore, filename string) *LeaderboardPersister {
	return &LeaderboardPersister{
		store:    store,
		filename: filename,
		log:      logrus.WithField("component", "landdemo.LeaderboardPersister"),
	}
}

// Persist saves one snapshot of the leaderboard, wrapped in
// integration.ExecuteFileSystemOperation so a transient write failure is
// retried with backoff before the filesystem circuit breaker trips.
func (p *LeaderboardPersister) Persist(totalCookies int64, players map[string]int64) {
	snapshot := leaderboardSnapshot{TotalCookies: totalCookies, Players: players}
	err := integration.ExecuteFileSystemOperation(context.Background(), func(ctx context.Context) error {
		return p.store.Save(p.filename, snapshot)
	})
	if err != nil {
		p.log.WithError(err).Warn("failed to persist leaderboard snapshot")
	}
}
