package world

import (
	"testing"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/entity"
)

func TestSpawn_RejectsBadPicks(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")

	cases := []struct {
		name string
		env  IntentEnvelope
	}{
		{"unknown archetype", spawnIntent(p, "dragon")},
		{"two skills", spawnIntent(p, "goblin", "music", "social")},
		{"applied skill", spawnIntent(p, "goblin", "music", "social", "gathering")},
		{"duplicate skill", spawnIntent(p, "goblin", "music", "music", "social")},
	}
	for _, tc := range cases {
		r := stepResult(t, w, p, tc.env)
		if r.OK || r.Code != protocol.ErrBadRequest {
			t.Fatalf("%s: expected %s, got %+v", tc.name, protocol.ErrBadRequest, r)
		}
	}
	if got := renown(t, w, p.ID); got != 1000 {
		t.Fatalf("renown changed by rejected spawns: %d", got)
	}
}

func TestSpawn_ChargesAndPlaces(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")

	mon := spawnMonster(t, w, p, "goblin")
	e := mustEntity(t, w, mon)
	if e.Pos != (entity.Cell{X: 3, Y: 3}) || e.Zone != "village" {
		t.Fatalf("spawned at %s in %s", e.Pos, e.Zone)
	}
	if e.OwnerID != p.ID || e.Monster == nil || len(e.Monster.Transferable) != SpawnSkillCount {
		t.Fatalf("unexpected monster: %+v", e)
	}
	if got := renown(t, w, p.ID); got != 950 {
		t.Fatalf("renown after goblin: want 950, got %d", got)
	}

	// The spawn point is taken; the fallback cell is used next.
	second := spawnMonster(t, w, p, "goblin")
	if e := mustEntity(t, w, second); e.Pos != (entity.Cell{X: 2, Y: 2}) {
		t.Fatalf("second spawn at %s", e.Pos)
	}

	r := stepResult(t, w, p, spawnIntent(p, "goblin"))
	if r.OK || r.Code != protocol.ErrOccupied {
		t.Fatalf("expected %s with every spawn cell taken, got %+v", protocol.ErrOccupied, r)
	}
}

func TestSpawn_RespectsUpkeepFloor(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")

	r := stepResult(t, w, p, spawnIntent(p, "orc"))
	if r.OK || r.Code != protocol.ErrNoRenown {
		t.Fatalf("expected %s, got %+v", protocol.ErrNoRenown, r)
	}
	if got := renown(t, w, p.ID); got != 1000 {
		t.Fatalf("renown changed: %d", got)
	}
}

func TestSpawn_OtherPlayersMonster(t *testing.T) {
	w := newTestWorld(t, testConfig())
	alice := joinPlayer(t, w, "alice")
	bob := joinPlayer(t, w, "bob")
	mon := spawnMonster(t, w, alice, "goblin")

	r := stepResult(t, w, bob, move(bob, mon, "right"))
	if r.OK || r.Code != protocol.ErrNoPermission {
		t.Fatalf("expected %s, got %+v", protocol.ErrNoPermission, r)
	}
}
