package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"monsterworkshop.game/internal/sim/world"
)

func TestTickLogger_ReadBackInOrder(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	hour := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	l.w.now = func() time.Time { return hour }

	for i := uint64(1); i <= 3; i++ {
		if i == 3 {
			hour = hour.Add(time.Hour)
		}
		e := world.TickLogEntry{Tick: i, Digest: "d"}
		if i == 2 {
			e.Joins = []world.RecordedJoin{{PlayerID: "P1", Name: "alice"}}
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := Segments(filepath.Join(dir, "events"), "ticks")
	if err != nil || len(segs) != 2 {
		t.Fatalf("segments: %v %v", segs, err)
	}

	var ticks []uint64
	err = ReadTicks(dir, func(e world.TickLogEntry) error {
		ticks = append(ticks, e.Tick)
		if e.Tick == 2 && (len(e.Joins) != 1 || e.Joins[0].Name != "alice") {
			t.Fatalf("joins lost: %+v", e)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(ticks) != 3 || ticks[0] != 1 || ticks[2] != 3 {
		t.Fatalf("ticks: %v", ticks)
	}
}

func TestReadTicks_EmptyDir(t *testing.T) {
	n := 0
	if err := ReadTicks(t.TempDir(), func(world.TickLogEntry) error { n++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 0 {
		t.Fatalf("read %d entries from nothing", n)
	}
}

func TestAuditLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	if err := l.WriteAudit(world.AuditEntry{Tick: 9, Zone: "village", Actor: "P1", Action: "DELIVER", Entity: "I1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "audit")); err != nil {
		t.Fatalf("audit dir: %v", err)
	}
	var got []world.AuditEntry
	if err := ReadAudit(dir, func(e world.AuditEntry) error { got = append(got, e); return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Action != "DELIVER" || got[0].Zone != "village" {
		t.Fatalf("audit: %+v", got)
	}
}
