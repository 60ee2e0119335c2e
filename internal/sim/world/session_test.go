package world

import (
	"context"
	"errors"
	"testing"
	"time"
)

func attach(w *World, token string) JoinResponse {
	resp := make(chan JoinResponse, 1)
	w.handleAttach(AttachRequest{ResumeToken: token, Out: make(chan []byte, 16), Resp: resp})
	return <-resp
}

func TestSession_AttachRotatesToken(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")

	if r := attach(w, "nope"); r.Err == "" {
		t.Fatalf("unknown token accepted: %+v", r)
	}
	r := attach(w, p.Token)
	if r.Err != "" || r.Welcome.PlayerID != p.ID {
		t.Fatalf("attach: %+v", r)
	}
	if r.Welcome.ResumeToken == p.Token || r.Welcome.SessionID == p.Session {
		t.Fatalf("token or session not rotated: %+v", r.Welcome)
	}
	if r := attach(w, p.Token); r.Err == "" {
		t.Fatalf("old token still valid")
	}
}

func TestSession_OnlineFollowsSessions(t *testing.T) {
	w := newTestWorld(t, testConfig())
	p := joinPlayer(t, w, "alice")
	mon := spawnMonster(t, w, p, "goblin")
	if !mustEntity(t, w, mon).Monster.Online {
		t.Fatalf("monster offline while its player is connected")
	}

	w.StepOnce(nil, []string{p.Session}, nil)
	if mustEntity(t, w, mon).Monster.Online {
		t.Fatalf("monster online after its only session left")
	}
	if len(w.clients) != 0 {
		t.Fatalf("session not dropped: %d", len(w.clients))
	}
	// The player stays known and can resume.
	if r := attach(w, p.Token); r.Err != "" {
		t.Fatalf("resume after leave: %+v", r)
	}
	if !mustEntity(t, w, mon).Monster.Online {
		t.Fatalf("monster offline after resume")
	}
}

func TestSession_WelcomeCarriesCatalogs(t *testing.T) {
	w := newTestWorld(t, testConfig())
	resp := make(chan JoinResponse, 1)
	w.StepOnce([]JoinRequest{{Name: "  ", Out: make(chan []byte, 16), Resp: resp}}, nil, nil)
	r := <-resp
	if r.Welcome.Renown != 1000 || len(r.Welcome.Zones) != 2 {
		t.Fatalf("welcome: %+v", r.Welcome)
	}
	names := map[string]bool{}
	for _, c := range r.Catalogs {
		names[c.Name] = true
	}
	for _, n := range []string{"good_types", "monster_types", "skills", "zone:village", "zone:east"} {
		if !names[n] {
			t.Fatalf("catalog %s missing from %v", n, names)
		}
	}
	if p := w.players[r.Welcome.PlayerID]; p == nil || p.Name != "player" {
		t.Fatalf("blank name not defaulted: %+v", p)
	}
}

func TestDebug_PauseStepResume(t *testing.T) {
	cfg := testConfig()
	cfg.TickRateHz = 50
	w := newTestWorld(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if _, err := w.Step(ctx); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("step while running: %v", err)
	}
	paused, err := w.Pause(ctx)
	if err != nil || !paused.Paused {
		t.Fatalf("pause: %+v %v", paused, err)
	}
	stepped, err := w.Step(ctx)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if stepped.Tick != paused.Tick+1 {
		t.Fatalf("step advanced %d -> %d", paused.Tick, stepped.Tick)
	}
	if _, err := w.DumpZone(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("dump of unknown zone: %v", err)
	}
	dump, err := w.DumpZone(ctx, "village")
	if err != nil || len(dump.Entities) == 0 {
		t.Fatalf("dump: %+v %v", dump, err)
	}
	if _, err := w.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	cancel()
	<-done
}
