package world

import (
	"encoding/json"
	"testing"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/zones"
)

func testLayout() zones.Config {
	return zones.Config{
		DefaultZoneID: "village",
		Zones: []zones.ZoneSpec{
			{
				ID:          "village",
				Name:        "Village",
				Width:       24,
				Height:      14,
				SpawnPoints: [][2]int{{3, 3}},
				Entities: []zones.EntitySpec{
					{ID: "wheel", Kind: "workshop", GoodType: "Spinning Wheel", X: 10, Y: 2},
					{ID: "market", Kind: "delivery", Name: "Market", AcceptedTags: []string{"refined"}, X: 12, Y: 8, W: 3, H: 2},
				},
				Roads: []zones.RoadSpec{
					{ID: "road_east", Label: "East", X: 22, Y: 6, ToZone: "east", ToX: 2, ToY: 3},
				},
			},
			{
				ID:          "east",
				Name:        "East",
				Width:       12,
				Height:      8,
				SpawnPoints: [][2]int{{3, 3}},
			},
		},
	}
}

func testConfig() WorldConfig {
	return WorldConfig{ID: "test", TickRateHz: 5, DayTicks: 6000, Seed: 42}
}

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(cfg, cats, testLayout())
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

type testPlayer struct {
	ID      string
	Session string
	Token   string
	Out     chan []byte
}

func joinPlayer(t *testing.T, w *World, name string) testPlayer {
	t.Helper()
	out := make(chan []byte, 4096)
	resp := make(chan JoinResponse, 1)
	w.StepOnce([]JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	r := <-resp
	if r.Err != "" || r.Welcome.PlayerID == "" {
		t.Fatalf("join %s: %+v", name, r)
	}
	return testPlayer{ID: r.Welcome.PlayerID, Session: r.Welcome.SessionID, Token: r.Welcome.ResumeToken, Out: out}
}

func intentFor(p testPlayer, in protocol.IntentMsg) IntentEnvelope {
	in.Type = protocol.TypeIntent
	in.ProtocolVersion = protocol.Version
	return IntentEnvelope{PlayerID: p.ID, SessionID: p.Session, Intent: in}
}

func move(p testPlayer, monsterID, dir string) IntentEnvelope {
	return intentFor(p, protocol.IntentMsg{Kind: protocol.IntentMove, MonsterID: monsterID, Dir: dir})
}

func spawnIntent(p testPlayer, archetype string, picks ...string) IntentEnvelope {
	if len(picks) == 0 {
		picks = []string{"handcrafts", "music", "social"}
	}
	return intentFor(p, protocol.IntentMsg{Kind: protocol.IntentSpawnMonster, Archetype: archetype, Skills: picks})
}

// drainResults returns the RESULT messages queued for p, skipping deltas.
func drainResults(t *testing.T, p testPlayer) []protocol.ResultMsg {
	t.Helper()
	var out []protocol.ResultMsg
	for {
		select {
		case b := <-p.Out:
			var base protocol.BaseMessage
			if err := json.Unmarshal(b, &base); err != nil {
				t.Fatalf("decode outbound: %v", err)
			}
			if base.Type != protocol.TypeResult {
				continue
			}
			var r protocol.ResultMsg
			if err := json.Unmarshal(b, &r); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

// stepResult runs one tick with env and returns its result.
func stepResult(t *testing.T, w *World, p testPlayer, env IntentEnvelope) protocol.ResultMsg {
	t.Helper()
	drainResults(t, p)
	w.StepOnce(nil, nil, []IntentEnvelope{env})
	rs := drainResults(t, p)
	for _, r := range rs {
		if r.Kind == env.Intent.Kind {
			return r
		}
	}
	t.Fatalf("no %s result among %+v", env.Intent.Kind, rs)
	return protocol.ResultMsg{}
}

func spawnMonster(t *testing.T, w *World, p testPlayer, archetype string) string {
	t.Helper()
	r := stepResult(t, w, p, spawnIntent(p, archetype))
	if !r.OK || r.EntityID == "" {
		t.Fatalf("spawn %s: %+v", archetype, r)
	}
	return r.EntityID
}

func mustEntity(t *testing.T, w *World, id string) entity.Entity {
	t.Helper()
	e, ok := w.DebugEntity(id)
	if !ok {
		t.Fatalf("entity %s not found", id)
	}
	return e
}

func renown(t *testing.T, w *World, playerID string) int {
	t.Helper()
	a, ok := w.DebugAccount(playerID)
	if !ok {
		t.Fatalf("no account for %s", playerID)
	}
	return a.Renown
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.StepOnce(nil, nil, nil)
	}
}
