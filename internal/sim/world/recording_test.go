package world

import (
	"testing"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/recording"
)

func toggle(p testPlayer, mon, kind string) IntentEnvelope {
	return intentFor(p, protocol.IntentMsg{Kind: kind, MonsterID: mon})
}

func TestRecording_ReplaysInOrderAndLoops(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")

	steps := []IntentEnvelope{
		toggle(p, mon, protocol.IntentToggleRecord),
		move(p, mon, "right"),
		move(p, mon, "down"),
		toggle(p, mon, protocol.IntentTogglePlayback),
	}
	for _, env := range steps {
		if r := stepResult(t, w, p, env); !r.OK {
			t.Fatalf("%s rejected: %+v", env.Intent.Kind, r)
		}
	}
	e := mustEntity(t, w, mon)
	if e.Pos != (entity.Cell{X: 4, Y: 4}) {
		t.Fatalf("after recording at %s", e.Pos)
	}
	if e.Monster.Recorder.State != recording.StatePlaying || len(e.Monster.Recorder.Steps) != 2 {
		t.Fatalf("recorder: %+v", e.Monster.Recorder)
	}

	want := []entity.Cell{
		{X: 5, Y: 4},
		{X: 5, Y: 5},
		{X: 5, Y: 5},
		{X: 6, Y: 5},
		{X: 6, Y: 6},
	}
	for i, c := range want {
		w.StepOnce(nil, nil, nil)
		if got := mustEntity(t, w, mon).Pos; got != c {
			t.Fatalf("playback tick %d: want %s, got %s", i, c, got)
		}
	}
	if cycles := mustEntity(t, w, mon).Monster.Recorder.Cycles; cycles != 2 {
		t.Fatalf("cycles: want 2, got %d", cycles)
	}
}

func TestRecording_PlaybackNeedsSteps(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")

	r := stepResult(t, w, p, toggle(p, mon, protocol.IntentTogglePlayback))
	if r.OK || r.Code != protocol.ErrBadRequest {
		t.Fatalf("expected %s for an empty recording, got %+v", protocol.ErrBadRequest, r)
	}
}

func TestRecording_StopsOnToggle(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")

	for _, env := range []IntentEnvelope{
		toggle(p, mon, protocol.IntentToggleRecord),
		move(p, mon, "right"),
		toggle(p, mon, protocol.IntentTogglePlayback),
		toggle(p, mon, protocol.IntentTogglePlayback),
	} {
		if r := stepResult(t, w, p, env); !r.OK {
			t.Fatalf("%s rejected: %+v", env.Intent.Kind, r)
		}
	}
	at := mustEntity(t, w, mon).Pos
	stepN(w, 5)
	if got := mustEntity(t, w, mon).Pos; got != at {
		t.Fatalf("monster moved after playback stopped: %s -> %s", at, got)
	}
}

type auditSink struct{ entries []AuditEntry }

func (s *auditSink) WriteAudit(e AuditEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestRecording_RejectedStepsSkippedWhileOffline(t *testing.T) {
	w := newTestWorld(t, testConfig())
	sink := &auditSink{}
	w.SetAuditLogger(sink)
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")

	for _, env := range []IntentEnvelope{
		toggle(p, mon, protocol.IntentToggleRecord),
		move(p, mon, "up"),
		move(p, mon, "up"),
		move(p, mon, "right"),
		toggle(p, mon, protocol.IntentTogglePlayback),
	} {
		if r := stepResult(t, w, p, env); !r.OK {
			t.Fatalf("%s rejected: %+v", env.Intent.Kind, r)
		}
	}
	start := mustEntity(t, w, mon).Pos
	if start != (entity.Cell{X: 4, Y: 1}) {
		t.Fatalf("after recording at %s", start)
	}

	// The owner disconnects; playback keeps running against the top wall.
	w.StepOnce(nil, []string{p.Session}, nil)
	stepN(w, 10)

	e := mustEntity(t, w, mon)
	if e.Monster.Online {
		t.Fatalf("monster still online after its session left")
	}
	if e.Pos != (entity.Cell{X: start.X + 3, Y: 1}) {
		t.Fatalf("playback stalled: %s -> %s", start, e.Pos)
	}
	if e.Monster.Recorder.State != recording.StatePlaying || e.Monster.Recorder.Cycles != 3 {
		t.Fatalf("recorder: %+v", e.Monster.Recorder)
	}
	rejected := 0
	for _, a := range sink.entries {
		if a.Action == "PLAYBACK_REJECTED" && a.Entity == mon {
			rejected++
		}
	}
	if rejected != 6 {
		t.Fatalf("want 6 rejected playback steps, got %d", rejected)
	}
}

func TestRecording_LengthFollowsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRecordingSteps = 2
	w := newTestWorld(t, cfg)
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")

	for _, env := range []IntentEnvelope{
		toggle(p, mon, protocol.IntentToggleRecord),
		move(p, mon, "right"),
		move(p, mon, "right"),
		move(p, mon, "right"),
		toggle(p, mon, protocol.IntentToggleRecord),
	} {
		if r := stepResult(t, w, p, env); !r.OK {
			t.Fatalf("%s rejected: %+v", env.Intent.Kind, r)
		}
	}
	if n := len(mustEntity(t, w, mon).Monster.Recorder.Steps); n != 2 {
		t.Fatalf("recorded %d steps, want 2", n)
	}
}
