package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsDayTicks(t *testing.T) {
	d := Defaults()
	if got := d.DayTicks(); got != 14400 {
		t.Fatalf("DayTicks=%d want 14400", got)
	}
	if got := d.UpkeepCycleTicks(); got != 28*14400 {
		t.Fatalf("UpkeepCycleTicks=%d", got)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ContainerCapacity != 20 || got.StartingRenown != 1000 {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestLoadOverlay(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 10\nupkeep_floor: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TickRateHz != 10 || got.UpkeepFloor != 250 || got.SkillDecayIntervalTicks != 60 {
		t.Fatalf("overlay not applied: %+v", got)
	}
	if got.Digest == "" {
		t.Fatalf("digest missing")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("upkeep_floor: 5000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected floor above starting renown rejected")
	}
}
