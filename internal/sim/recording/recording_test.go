package recording

import (
	"testing"

	"monsterworkshop.game/internal/protocol"
)

func intent(kind, dir string) protocol.IntentMsg {
	return protocol.IntentMsg{Type: protocol.TypeIntent, Kind: kind, Dir: dir}
}

func recordThree(t *testing.T) *Controller {
	t.Helper()
	c := &Controller{}
	if s := c.ToggleRecord(); s != StateRecording {
		t.Fatalf("state=%s", s)
	}
	for _, in := range []protocol.IntentMsg{intent("move", "N"), intent("push", "E"), intent("interact", "")} {
		if err := c.Observe(in, 0); err != nil {
			t.Fatalf("observe: %v", err)
		}
		c.Tick(false)
	}
	if s := c.ToggleRecord(); s != StateIdle {
		t.Fatalf("state=%s", s)
	}
	return c
}

func TestPlaybackLoopsInOrder(t *testing.T) {
	c := recordThree(t)
	if c.Length != 3 {
		t.Fatalf("length=%d", c.Length)
	}
	if _, err := c.TogglePlayback(); err != nil {
		t.Fatalf("playback: %v", err)
	}
	var kinds []string
	for tick := 0; tick < 9; tick++ {
		for _, in := range c.Due(false) {
			kinds = append(kinds, in.Kind)
		}
		c.Tick(false)
	}
	want := []string{"move", "push", "interact", "move", "push", "interact", "move", "push", "interact"}
	if len(kinds) != len(want) {
		t.Fatalf("got %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("step %d: got %s want %s (%v)", i, kinds[i], want[i], kinds)
		}
	}
	if c.Cycles != 3 {
		t.Fatalf("cycles=%d", c.Cycles)
	}
	if s, _ := c.TogglePlayback(); s != StateIdle {
		t.Fatalf("toggle off: state=%s", s)
	}
	if got := c.Due(false); got != nil {
		t.Fatalf("idle controller emitted %v", got)
	}
}

func TestPlaybackKeepsGaps(t *testing.T) {
	c := &Controller{}
	c.ToggleRecord()
	_ = c.Observe(intent("move", "E"), 0)
	for i := 0; i < 4; i++ {
		c.Tick(false)
	}
	_ = c.Observe(intent("move", "W"), 0)
	c.Tick(false)
	c.ToggleRecord()

	c.TogglePlayback()
	var at []int
	for tick := 0; tick < 10; tick++ {
		if len(c.Due(false)) > 0 {
			at = append(at, tick)
		}
		c.Tick(false)
	}
	want := []int{0, 4, 5, 9}
	if len(at) != len(want) {
		t.Fatalf("emission ticks %v, want %v", at, want)
	}
	for i := range want {
		if at[i] != want[i] {
			t.Fatalf("emission ticks %v, want %v", at, want)
		}
	}
}

func TestBusyHoldsClock(t *testing.T) {
	c := recordThree(t)
	c.TogglePlayback()
	if n := len(c.Due(false)); n != 1 {
		t.Fatalf("first due=%d", n)
	}
	c.Tick(false)
	for i := 0; i < 5; i++ {
		if got := c.Due(true); got != nil {
			t.Fatalf("busy monster got %v", got)
		}
		c.Tick(true)
	}
	due := c.Due(false)
	if len(due) != 1 || due[0].Kind != "push" {
		t.Fatalf("expected push after busy hold, got %v", due)
	}
}

func TestStartPlaybackStopsRecording(t *testing.T) {
	c := &Controller{}
	c.ToggleRecord()
	_ = c.Observe(intent("move", "S"), 0)
	c.Tick(false)
	s, err := c.TogglePlayback()
	if err != nil || s != StatePlaying {
		t.Fatalf("state=%s err=%v", s, err)
	}
	if len(c.Steps) != 1 || c.Length != 1 {
		t.Fatalf("recording not finalized: %+v", c)
	}
}

func TestNewRecordingReplacesOld(t *testing.T) {
	c := recordThree(t)
	c.ToggleRecord()
	_ = c.Observe(intent("hitch", ""), 0)
	c.ToggleRecord()
	if len(c.Steps) != 1 || c.Steps[0].Intent.Kind != "hitch" {
		t.Fatalf("old recording survived: %+v", c.Steps)
	}
}

func TestEmptyPlaybackFails(t *testing.T) {
	c := &Controller{}
	if _, err := c.TogglePlayback(); err != ErrEmpty {
		t.Fatalf("err=%v", err)
	}
	if c.State != StateIdle {
		t.Fatalf("state=%s", c.State)
	}
}

func TestObserveIgnoredWhenIdle(t *testing.T) {
	c := &Controller{}
	_ = c.Observe(intent("move", "N"), 0)
	if len(c.Steps) != 0 {
		t.Fatalf("idle controller recorded")
	}
}

func TestObserveRespectsLimit(t *testing.T) {
	c := &Controller{}
	c.ToggleRecord()
	for i := 0; i < 3; i++ {
		if err := c.Observe(intent("move", "E"), 3); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if err := c.Observe(intent("move", "E"), 3); err != ErrFull {
		t.Fatalf("want ErrFull, got %v", err)
	}
	for i := 0; i < 2000; i++ {
		if err := c.Observe(intent("move", "W"), 0); err != nil {
			t.Fatalf("unbounded observe %d: %v", i, err)
		}
	}
	if len(c.Steps) != 2003 {
		t.Fatalf("steps=%d", len(c.Steps))
	}
}

func TestToggleRecordFromZeroValue(t *testing.T) {
	c := &Controller{}
	if st := c.ToggleRecord(); st != StateRecording {
		t.Fatalf("state=%s", st)
	}
	if st := c.ToggleRecord(); st != StateIdle {
		t.Fatalf("state=%s", st)
	}
}
