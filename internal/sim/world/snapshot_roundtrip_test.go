package world

import (
	"testing"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/sim/entity"
)

func TestSnapshot_ExportImportKeepsDigest(t *testing.T) {
	cfg := testConfig()
	w1 := newTestWorld(t, cfg)
	p := joinPlayer(t, w1, "alice")
	mon := spawnMonster(t, w1, p, "goblin")
	stockWorkshop(t, w1, "village", "wheel", "Flax", entity.Cell{X: 11, Y: 3})
	teleport(t, w1, "village", mon, entity.Cell{X: 9, Y: 3})
	if r := stepResult(t, w1, p, craftIntent(p, mon, "wheel", "Thread")); !r.OK {
		t.Fatalf("craftSelect rejected: %+v", r)
	}
	stepN(w1, 5)

	last := w1.CurrentTick() - 1
	snap := w1.ExportSnapshot(last)
	if snap.Header.Version != snapshot.Version || snap.Header.Tick != last {
		t.Fatalf("header: %+v", snap.Header)
	}
	want := w1.DebugStateDigest(last)

	w2 := newTestWorld(t, cfg)
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := w2.DebugStateDigest(last); got != want {
		t.Fatalf("digest after import: want %s, got %s", want, got)
	}
	if w2.CurrentTick() != w1.CurrentTick() {
		t.Fatalf("tick after import: want %d, got %d", w1.CurrentTick(), w2.CurrentTick())
	}

	// Both worlds must keep evolving identically, task included.
	for i := 0; i < 60; i++ {
		var envs []IntentEnvelope
		if i == 50 {
			envs = append(envs, move(p, mon, "left"))
		}
		t1, d1 := w1.StepOnce(nil, nil, envs)
		t2, d2 := w2.StepOnce(nil, nil, envs)
		if t1 != t2 || d1 != d2 {
			t.Fatalf("diverged at tick %d/%d: %s vs %s", t1, t2, d1, d2)
		}
	}
}

func TestSnapshot_RejectsSeedMismatch(t *testing.T) {
	w1 := newTestWorld(t, testConfig())
	joinPlayer(t, w1, "alice")
	snap := w1.ExportSnapshot(w1.CurrentTick() - 1)

	cfg := testConfig()
	cfg.Seed = 7
	w2 := newTestWorld(t, cfg)
	if err := w2.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected seed mismatch error")
	}
}

func TestSnapshot_RestoresResumeTokens(t *testing.T) {
	w1 := newTestWorld(t, testConfig())
	p := joinPlayer(t, w1, "alice")
	snap := w1.ExportSnapshot(w1.CurrentTick() - 1)

	w2 := newTestWorld(t, testConfig())
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	resp := make(chan JoinResponse, 1)
	w2.handleAttach(AttachRequest{ResumeToken: p.Token, Out: make(chan []byte, 16), Resp: resp})
	r := <-resp
	if r.Err != "" || r.Welcome.PlayerID != p.ID {
		t.Fatalf("attach after restore: %+v", r)
	}
}
