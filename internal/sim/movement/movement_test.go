package movement

import (
	"errors"
	"testing"

	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/grid"
	"monsterworkshop.game/internal/sim/tasks"
)

type testRules struct {
	capacity int
	reject   error
}

func (r testRules) Capacity(*entity.Entity) int { return r.capacity }

func (r testRules) Accept(_ *grid.Zone, recv, _ *entity.Entity, _ entity.Cell) (string, error) {
	if r.reject != nil {
		return "", r.reject
	}
	if recv.Kind == entity.KindWagon {
		return entity.RoleCargo, nil
	}
	return entity.RoleInput, nil
}

var rules = testRules{capacity: 10}

func newMonster(id string) *entity.Entity {
	return &entity.Entity{ID: id, Kind: entity.KindMonster, Size: entity.DefaultMonsterSize, Blocks: true, Monster: &entity.Monster{}}
}

func newItem(id string, weight int) *entity.Entity {
	return &entity.Entity{ID: id, Kind: entity.KindItem, Size: entity.DefaultItemSize, Blocks: true,
		Item: &entity.Item{GoodType: "Wool", Quantity: 1, Weight: weight}}
}

func newWagon(id string) *entity.Entity {
	return &entity.Entity{ID: id, Kind: entity.KindWagon, Size: entity.Size{W: 1, H: 1}, Blocks: true, Wagon: &entity.Wagon{}}
}

func mustPlace(t *testing.T, z *grid.Zone, e *entity.Entity, x, y int) *entity.Entity {
	t.Helper()
	if err := z.Place(e, entity.Cell{X: x, Y: y}); err != nil {
		t.Fatalf("place %s: %v", e.ID, err)
	}
	return e
}

func step(z *grid.Zone, m *entity.Entity, d entity.Dir) error {
	p, err := Resolve(z, m, d, rules)
	if err != nil {
		return err
	}
	return Apply(z, p)
}

func reason(err error) string {
	var b *BlockedError
	if errors.As(err, &b) {
		return b.Reason
	}
	return ""
}

func TestFreeStep(t *testing.T) {
	z := grid.NewZone("z", 5, 5)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	if err := step(z, m, entity.DirRight); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.Pos != (entity.Cell{X: 2, Y: 1}) || m.Facing != entity.DirRight {
		t.Fatalf("monster at %v facing %s", m.Pos, m.Facing)
	}
	if r := reason(step(z, mustPlace(t, z, newMonster("M2"), 4, 4), entity.DirDown)); r != ReasonWall {
		t.Fatalf("expected wall, got %q", r)
	}
}

func TestWideItemNeedsBothCellsClear(t *testing.T) {
	z := grid.NewZone("z", 8, 5)
	m := mustPlace(t, z, newMonster("M1"), 2, 0)
	it := mustPlace(t, z, newItem("I1", 1), 2, 1)

	// Right half of the destination is terrain.
	_ = z.SetTerrain(entity.Cell{X: 3, Y: 2}, true)
	if r := reason(step(z, m, entity.DirDown)); r != ReasonTerrain {
		t.Fatalf("expected terrain, got %q", r)
	}
	_ = z.SetTerrain(entity.Cell{X: 3, Y: 2}, false)

	// Right half of the destination holds a monster.
	other := mustPlace(t, z, newMonster("M2"), 3, 2)
	if r := reason(step(z, m, entity.DirDown)); r != ReasonMonster {
		t.Fatalf("expected monster, got %q", r)
	}
	if it.Pos != (entity.Cell{X: 2, Y: 1}) || m.Pos != (entity.Cell{X: 2, Y: 0}) {
		t.Fatalf("blocked push mutated state")
	}

	z.Remove(other.ID)
	if err := step(z, m, entity.DirDown); err != nil {
		t.Fatalf("push: %v", err)
	}
	if it.Pos != (entity.Cell{X: 2, Y: 2}) || m.Pos != (entity.Cell{X: 2, Y: 1}) {
		t.Fatalf("after push item=%v monster=%v", it.Pos, m.Pos)
	}
}

func TestChainPush(t *testing.T) {
	z := grid.NewZone("z", 10, 3)
	m := mustPlace(t, z, newMonster("M1"), 0, 1)
	a := mustPlace(t, z, newItem("I1", 2), 1, 1)
	b := mustPlace(t, z, newItem("I2", 3), 3, 1)
	p, err := Resolve(z, m, entity.DirRight, rules)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Weight != 5 || len(p.Pushed) != 2 {
		t.Fatalf("plan weight=%d pushed=%v", p.Weight, p.Pushed)
	}
	if err := Apply(z, p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Pos.X != 2 || b.Pos.X != 4 || m.Pos.X != 1 {
		t.Fatalf("chain positions %v %v %v", a.Pos, b.Pos, m.Pos)
	}
}

func TestTooHeavy(t *testing.T) {
	z := grid.NewZone("z", 10, 3)
	m := mustPlace(t, z, newMonster("M1"), 0, 1)
	it := newItem("I1", 5)
	it.Item.Quantity = 3
	mustPlace(t, z, it, 1, 1)
	if r := reason(step(z, m, entity.DirRight)); r != ReasonTooHeavy {
		t.Fatalf("expected too_heavy, got %q", r)
	}
}

func TestBusyMonsterCannotMove(t *testing.T) {
	z := grid.NewZone("z", 5, 5)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	m.Monster.Task = &tasks.Task{Kind: tasks.KindCraft, Duration: 5, Remaining: 5}
	if r := reason(step(z, m, entity.DirRight)); r != ReasonBusy {
		t.Fatalf("expected busy, got %q", r)
	}
}

func TestUnhitchedWagonIsImmovable(t *testing.T) {
	z := grid.NewZone("z", 6, 3)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	w := mustPlace(t, z, newWagon("W1"), 2, 1)
	if r := reason(step(z, m, entity.DirRight)); r != ReasonWagon {
		t.Fatalf("expected wagon, got %q", r)
	}
	if err := Hitch(z, m, w.ID); err != nil {
		t.Fatalf("hitch: %v", err)
	}
	if err := step(z, m, entity.DirRight); err != nil {
		t.Fatalf("push hitched wagon: %v", err)
	}
	if w.Pos.X != 3 || m.Pos.X != 2 {
		t.Fatalf("wagon=%v monster=%v", w.Pos, m.Pos)
	}
}

func TestSecondHitchFails(t *testing.T) {
	z := grid.NewZone("z", 6, 3)
	a := mustPlace(t, z, newMonster("M1"), 1, 1)
	b := mustPlace(t, z, newMonster("M2"), 3, 1)
	w := mustPlace(t, z, newWagon("W1"), 2, 1)
	if err := Hitch(z, a, w.ID); err != nil {
		t.Fatalf("first hitch: %v", err)
	}
	var ah *AlreadyHitchedError
	if err := Hitch(z, b, w.ID); !errors.As(err, &ah) || ah.HitchedBy != "M1" {
		t.Fatalf("expected AlreadyHitchedError, got %v", err)
	}
	w2 := mustPlace(t, z, newWagon("W2"), 1, 0)
	if err := Hitch(z, a, w2.ID); !errors.As(err, &ah) {
		t.Fatalf("a monster holds one wagon, got %v", err)
	}
	if err := Unhitch(z, a); err != nil {
		t.Fatalf("unhitch: %v", err)
	}
	if w.Wagon.HitchedBy != "" || a.Monster.HitchedWagonID != "" {
		t.Fatalf("unhitch left a link")
	}
	if err := Unhitch(z, a); !errors.Is(err, ErrNotHitched) {
		t.Fatalf("expected ErrNotHitched, got %v", err)
	}
}

func TestHitchedWagonTrails(t *testing.T) {
	z := grid.NewZone("z", 6, 3)
	w := mustPlace(t, z, newWagon("W1"), 0, 1)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	if err := Hitch(z, m, w.ID); err != nil {
		t.Fatalf("hitch: %v", err)
	}
	if err := step(z, m, entity.DirRight); err != nil {
		t.Fatalf("step: %v", err)
	}
	if w.Pos != (entity.Cell{X: 1, Y: 1}) {
		t.Fatalf("wagon did not trail: %v", w.Pos)
	}
	if err := step(z, m, entity.DirDown); err != nil {
		t.Fatalf("step down: %v", err)
	}
	if w.Pos != (entity.Cell{X: 2, Y: 1}) || m.Pos != (entity.Cell{X: 2, Y: 2}) {
		t.Fatalf("after turn wagon=%v monster=%v", w.Pos, m.Pos)
	}
}

func TestPushIntoWorkshopInterior(t *testing.T) {
	z := grid.NewZone("z", 12, 6)
	ws := &entity.Entity{ID: "W1", Kind: entity.KindWorkshop, Size: entity.Size{W: 6, H: 4}, Workshop: &entity.Workshop{}}
	mustPlace(t, z, ws, 4, 0)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	it := mustPlace(t, z, newItem("I1", 1), 2, 1)

	// First push lands on the frame: a plain move.
	if err := step(z, m, entity.DirRight); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if it.Stored != nil || it.Pos.X != 3 {
		t.Fatalf("item should still be loose at x=3, got %+v", it.Pos)
	}
	step(z, m, entity.DirRight)
	if it.Stored != nil || it.Pos.X != 4 {
		t.Fatalf("item on frame should be loose, got %+v stored=%v", it.Pos, it.Stored)
	}
	// Next push puts both cells inside the interior.
	p, err := Resolve(z, m, entity.DirRight, rules)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(p.Absorb) != 1 || p.Absorb[0].ReceiverID != "W1" {
		t.Fatalf("expected absorption into W1, got %+v", p.Absorb)
	}
	if err := Apply(z, p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if it.Stored == nil || it.Stored.ContainerID != "W1" || it.Stored.Offset != (entity.Cell{X: 1, Y: 1}) {
		t.Fatalf("item not stored: %+v", it.Stored)
	}
	if len(ws.Contents) != 1 || ws.Contents[0] != "I1" {
		t.Fatalf("workshop contents %v", ws.Contents)
	}
	if m.Pos.X != 4 {
		t.Fatalf("mover should follow into the vacated cell, at %v", m.Pos)
	}
}

func TestRejectedReceiverBlocks(t *testing.T) {
	z := grid.NewZone("z", 10, 3)
	d := &entity.Entity{ID: "D1", Kind: entity.KindDelivery, Size: entity.Size{W: 2, H: 1}, Delivery: &entity.Delivery{}}
	mustPlace(t, z, d, 4, 1)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	it := mustPlace(t, z, newItem("I1", 1), 2, 1)
	r := testRules{capacity: 10, reject: errors.New("wrong tags")}
	_, err := Resolve(z, m, entity.DirRight, r)
	if reason(err) != ReasonRejected {
		t.Fatalf("expected rejected, got %v", err)
	}
	if it.Stored != nil || len(d.Contents) != 0 {
		t.Fatalf("rejected push mutated state")
	}
}

func TestPushIntoForeignWagonLoadsCargo(t *testing.T) {
	z := grid.NewZone("z", 10, 3)
	w := mustPlace(t, z, newWagon("W1"), 4, 1)
	m := mustPlace(t, z, newMonster("M1"), 1, 1)
	it := mustPlace(t, z, newItem("I1", 1), 2, 1)
	if err := step(z, m, entity.DirRight); err != nil {
		t.Fatalf("push: %v", err)
	}
	if it.Stored == nil || it.Stored.ContainerID != w.ID || it.Stored.Role != entity.RoleCargo {
		t.Fatalf("item not loaded: %+v", it.Stored)
	}
}
