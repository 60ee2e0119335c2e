package indexdb

import (
	"path/filepath"
	"testing"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/tuning"
	"monsterworkshop.game/internal/sim/world"
)

// reopen closes idx, which drains the writer, and opens the same file again.
func reopen(t *testing.T, idx *SQLiteIndex, path string) *SQLiteIndex {
	t.Helper()
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	again, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = again.Close() })
	return again
}

func TestSQLiteIndex_TicksAndIntents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:   1,
		Joins:  []world.RecordedJoin{{PlayerID: "P1", Name: "alice"}},
		Digest: "d1",
	})
	_ = idx.WriteTick(world.TickLogEntry{
		Tick: 2,
		Intents: []world.RecordedIntent{
			{PlayerID: "P1", Intent: protocol.IntentMsg{Type: "INTENT", Kind: protocol.IntentMove, MonsterID: "M1", Dir: "left"}},
			{PlayerID: "P1", Intent: protocol.IntentMsg{Type: "INTENT", Kind: protocol.IntentInteract, MonsterID: "M1"}},
		},
		Leaves: []string{"S9"},
		Digest: "d2",
	})
	idx = reopen(t, idx, path)

	d, ok, err := idx.TickDigest(2)
	if err != nil || !ok || d != "d2" {
		t.Fatalf("digest: %q %v %v", d, ok, err)
	}
	if _, ok, _ := idx.TickDigest(3); ok {
		t.Fatalf("unknown tick reported")
	}
	ticks, err := idx.Ticks(0, 10, 0)
	if err != nil || len(ticks) != 2 || ticks[0].Joins != 1 || ticks[1].Intents != 2 || ticks[1].Leaves != 1 {
		t.Fatalf("ticks: %+v %v", ticks, err)
	}
	ins, err := idx.IntentsOf("P1", 10)
	if err != nil || len(ins) != 2 {
		t.Fatalf("intents: %+v %v", ins, err)
	}
	if ins[0].Kind != protocol.IntentInteract || ins[1].Kind != protocol.IntentMove || ins[1].Monster != "M1" {
		t.Fatalf("intent order: %+v", ins)
	}
}

func TestSQLiteIndex_AuditsAndSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteAudit(world.AuditEntry{Tick: 4, Zone: "village", Actor: "P1", Action: "DELIVER", Entity: "I1", Pos: [2]int{12, 8}})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 4, Zone: "village", Actor: "P2", Action: "SPAWN", Entity: "M2"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 5, Zone: "village", Actor: "P1", Action: "CRAFT_COMPLETE", Entity: "I2"})
	idx.RecordSnapshot("/tmp/100.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 100},
		Seed:   42,
		Zones:  []snapshot.ZoneV1{{ID: "village"}},
	})
	idx.RecordSnapshot("/tmp/200.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: snapshot.Version, Tick: 200}, Seed: 42})
	idx = reopen(t, idx, path)

	all, err := idx.AuditsByActor("", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("audits: %+v %v", all, err)
	}
	p1, err := idx.AuditsByActor("P1", 0)
	if err != nil || len(p1) != 2 || p1[0].Action != "CRAFT_COMPLETE" || p1[1].X != 12 {
		t.Fatalf("P1 audits: %+v %v", p1, err)
	}
	if p1[1].Seq != 0 {
		t.Fatalf("audit seq: %+v", p1[1])
	}

	snaps, err := idx.Snapshots(0)
	if err != nil || len(snaps) != 2 || snaps[0].Tick != 200 {
		t.Fatalf("snapshots: %+v %v", snaps, err)
	}
	r, ok, err := idx.LatestSnapshotAtOrBefore(150)
	if err != nil || !ok || r.Tick != 100 || r.Zones != 1 {
		t.Fatalf("latest <= 150: %+v %v %v", r, ok, err)
	}
	if _, ok, _ := idx.LatestSnapshotAtOrBefore(50); ok {
		t.Fatalf("found a snapshot before the first one")
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	var names []string
	if err := idx.db.Select(&names, `SELECT name FROM catalogs ORDER BY name`); err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"good_types", "monster_types", "skills", "tuning"}
	if len(names) != len(want) {
		t.Fatalf("catalog rows: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("catalog rows: %v", names)
		}
	}
}

func TestSQLiteIndex_WritesAfterCloseIgnored(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
