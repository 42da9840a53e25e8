package landdemo

import (
	"encoding/json"
	"time"

	"statetree/pkg/land"
	"statetree/pkg/wireproto"
)

const (
	// LandType identifies this Land kind to the realm manager and to the
	// replay subsystem's compatibility checks.
	LandType = "cookieClicker"
	// LandDefinitionID changes whenever Fields or handler semantics change
	// in a way that breaks replay compatibility with prior recordings.
	LandDefinitionID = "cookieClicker-v1"

	tickInterval = 2 * time.Second

	upgradeOven   = "oven"
	upgradeMixer  = "mixer"
	ovenCost      = 50
	mixerCost     = 200
	ovenYield     = 1
	mixerYield    = 5

	// chatterChance is how often (out of 100) a tick produces an NPC line,
	// grounded on the same "occasional, not constant" cadence the teacher's
	// dialogue generator uses for ambient NPC chatter.
	chatterChance = 15

	// leaderboardPersistEveryNTicks throttles ServiceLeaderboardPersister
	// so a tickInterval of 2s persists roughly once every 20s rather than
	// on every tick.
	leaderboardPersistEveryNTicks = 10
)

type buyUpgradePayload struct {
	Upgrade string `json:"upgrade"`
}

// Definition builds the cookieClicker land.Definition: a shared cookie
// total and leaderboard (Broadcast) plus a private per-player upgrade
// inventory (PerPlayerSlice), with a background tick that occasionally
// emits a Markov-generated NPC chatter line.
func Definition() *land.Definition {
	chatterer := NewChatterer()

	return &land.Definition{
		LandType:         LandType,
		LandDefinitionID: LandDefinitionID,
		TickInterval:     tickInterval,
		Fields:           cookieTable(),
		NewState:         newCookieState,
		CloneState:       cloneCookieState,
		MaxPlayers:       64,
		AllowPublic:      true,

		Actions: map[string]land.ActionHandler{
			"clickCookie": handleClickCookie,
			"buyUpgrade":  handleBuyUpgrade,
		},
		ClientEvents: map[string]land.ClientEventHandler{},
		ServerEvents: map[string]struct{}{
			"npcChatter": {},
		},

		OnJoin:  handleJoin,
		OnLeave: handleLeave,
		Tick:    tickHandlerFor(chatterer),
	}
}

func handleClickCookie(state interface{}, payload []byte, ctx *land.Context) (interface{}, *wireproto.WireError) {
	cs := state.(*cookieState)
	playerID := ctx.PlayerID()

	cs.totalCookies++
	cs.players[playerID]++

	cs.tracker.Mark(fieldTotalCookies)
	cs.tracker.Mark(fieldPlayers)

	return map[string]interface{}{"totalCookies": cs.totalCookies}, nil
}

func handleBuyUpgrade(state interface{}, payload []byte, ctx *land.Context) (interface{}, *wireproto.WireError) {
	var req buyUpgradePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed buyUpgrade payload")
	}

	cost, ok := upgradeCost(req.Upgrade)
	if !ok {
		return nil, wireproto.NewWireError(wireproto.CodeActionNotRegistered, "unknown upgrade "+req.Upgrade)
	}

	cs := state.(*cookieState)
	playerID := ctx.PlayerID()

	if cs.totalCookies < cost {
		return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "not enough cookies")
	}

	cs.totalCookies -= cost
	cs.upgrades[playerID] = append(cs.upgrades[playerID], req.Upgrade)

	cs.tracker.Mark(fieldTotalCookies)
	cs.tracker.MarkSliceKey(fieldUpgrades, playerID)

	return map[string]interface{}{"purchased": req.Upgrade}, nil
}

func upgradeCost(name string) (int64, bool) {
	switch name {
	case upgradeOven:
		return ovenCost, true
	case upgradeMixer:
		return mixerCost, true
	default:
		return 0, false
	}
}

func upgradeYieldPerTick(owned []string) int64 {
	var yield int64
	for _, name := range owned {
		switch name {
		case upgradeOven:
			yield += ovenYield
		case upgradeMixer:
			yield += mixerYield
		}
	}
	return yield
}

func handleJoin(state interface{}, ctx *land.Context) {
	cs := state.(*cookieState)
	playerID := ctx.PlayerID()

	if _, ok := cs.players[playerID]; !ok {
		cs.players[playerID] = 0
		cs.tracker.Mark(fieldPlayers)
	}
	if _, ok := cs.upgrades[playerID]; !ok {
		cs.upgrades[playerID] = nil
		cs.tracker.MarkSliceKey(fieldUpgrades, playerID)
	}
}

func handleLeave(state interface{}, ctx *land.Context) {
	// Leaderboard entries and purchased upgrades persist after a player
	// disconnects; only the join/leave membership changes, which the
	// keeper itself tracks outside of Fields.
}

func tickHandlerFor(chatterer *Chatterer) land.TickHandler {
	return func(state interface{}, ctx *land.Context) {
		cs := state.(*cookieState)

		var passiveYield int64
		for playerID, owned := range cs.upgrades {
			yield := upgradeYieldPerTick(owned)
			if yield == 0 {
				continue
			}
			passiveYield += yield
			cs.players[playerID] += yield
			cs.tracker.Mark(fieldPlayers)
		}
		if passiveYield > 0 {
			cs.totalCookies += passiveYield
			cs.tracker.Mark(fieldTotalCookies)
		}

		if ctx.Rand().Intn(100) < chatterChance {
			seed := ctx.Rand().Intn(len(chatterCorpus))
			ctx.EmitToAll("npcChatter", map[string]interface{}{
				"line": chatterer.Line(seed),
			})
		}

		if ctx.TickID()%leaderboardPersistEveryNTicks == 0 {
			if persister, ok := ctx.Services()[ServiceLeaderboardPersister].(*LeaderboardPersister); ok {
				players := make(map[string]int64, len(cs.players))
				for playerID, clicks := range cs.players {
					players[playerID] = clicks
				}
				persister.Persist(cs.totalCookies, players)
			}
		}
	}
}
