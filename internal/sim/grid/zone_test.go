package grid

import (
	"errors"
	"testing"

	"monsterworkshop.game/internal/sim/entity"
)

func item(id string) *entity.Entity {
	return &entity.Entity{ID: id, Kind: entity.KindItem, Size: entity.DefaultItemSize, Blocks: true, Item: &entity.Item{GoodType: "Wool", Quantity: 1}}
}

func monster(id string) *entity.Entity {
	return &entity.Entity{ID: id, Kind: entity.KindMonster, Size: entity.DefaultMonsterSize, Blocks: true, Monster: &entity.Monster{}}
}

func TestPlaceRejectsOverlap(t *testing.T) {
	z := NewZone("z", 10, 5)
	if err := z.Place(item("I1"), entity.Cell{X: 2, Y: 2}); err != nil {
		t.Fatalf("place: %v", err)
	}
	err := z.Place(monster("M1"), entity.Cell{X: 3, Y: 2})
	var occ *OccupiedCellError
	if !errors.As(err, &occ) || occ.Occupant != "I1" {
		t.Fatalf("expected OccupiedCellError by I1, got %v", err)
	}
	if _, ok := z.Get("M1"); ok {
		t.Fatalf("failed place must not register the entity")
	}
	if e, ok := z.At(entity.Cell{X: 3, Y: 2}); !ok || e.ID != "I1" {
		t.Fatalf("At should find the 2-wide item on its second cell")
	}
}

func TestPlaceRespectsTerrainAndBounds(t *testing.T) {
	z := NewZone("z", 4, 4)
	_ = z.SetTerrain(entity.Cell{X: 1, Y: 1}, true)
	var occ *OccupiedCellError
	if err := z.Place(item("I1"), entity.Cell{X: 0, Y: 1}); !errors.As(err, &occ) || occ.Occupant != OccupantTerrain {
		t.Fatalf("expected terrain, got %v", err)
	}
	if err := z.Place(item("I2"), entity.Cell{X: 3, Y: 0}); !errors.As(err, &occ) || occ.Occupant != OccupantBounds {
		t.Fatalf("expected bounds, got %v", err)
	}
	if !z.Terrain(entity.Cell{X: -1, Y: 0}) {
		t.Fatalf("out of bounds must read as terrain")
	}
}

func TestOverlaysDoNotBlock(t *testing.T) {
	z := NewZone("z", 10, 10)
	ws := &entity.Entity{ID: "W1", Kind: entity.KindWorkshop, Size: entity.Size{W: 6, H: 4}, Workshop: &entity.Workshop{}}
	if err := z.Place(ws, entity.Cell{X: 1, Y: 1}); err != nil {
		t.Fatalf("place workshop: %v", err)
	}
	if err := z.Place(monster("M1"), entity.Cell{X: 2, Y: 2}); err != nil {
		t.Fatalf("monster on overlay: %v", err)
	}
	ov := z.Overlays(entity.Cell{X: 2, Y: 2})
	if len(ov) != 1 || ov[0].ID != "W1" {
		t.Fatalf("overlays %v", ov)
	}
}

func TestMoveGroupAtomic(t *testing.T) {
	z := NewZone("z", 10, 3)
	_ = z.Place(monster("M1"), entity.Cell{X: 1, Y: 1})
	_ = z.Place(item("I1"), entity.Cell{X: 2, Y: 1})
	_ = z.Place(monster("M2"), entity.Cell{X: 5, Y: 1})

	// Chain shift right by one: item vacates (2,1) for the mover.
	if err := z.MoveGroup([]Move{{ID: "I1", To: entity.Cell{X: 3, Y: 1}}, {ID: "M1", To: entity.Cell{X: 2, Y: 1}}}); err != nil {
		t.Fatalf("chain move: %v", err)
	}
	// Next shift would put the item onto M2.
	err := z.MoveGroup([]Move{{ID: "I1", To: entity.Cell{X: 4, Y: 1}}, {ID: "M1", To: entity.Cell{X: 3, Y: 1}}})
	if err == nil {
		t.Fatalf("expected collision with M2")
	}
	m1, _ := z.Get("M1")
	i1, _ := z.Get("I1")
	if m1.Pos != (entity.Cell{X: 2, Y: 1}) || i1.Pos != (entity.Cell{X: 3, Y: 1}) {
		t.Fatalf("failed group move mutated positions: %v %v", m1.Pos, i1.Pos)
	}
	if e, ok := z.At(entity.Cell{X: 4, Y: 1}); !ok || e.ID != "I1" {
		t.Fatalf("index not restored after failed move")
	}
}

func TestStoreAndUnstore(t *testing.T) {
	z := NewZone("z", 10, 3)
	_ = z.Place(item("I1"), entity.Cell{X: 1, Y: 1})
	if err := z.SetStored("I1", &entity.Storage{ContainerID: "W1", Role: entity.RoleInput}, entity.Cell{X: 6, Y: 1}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, ok := z.At(entity.Cell{X: 1, Y: 1}); ok {
		t.Fatalf("stored item still blocks its old cell")
	}
	if _, ok := z.At(entity.Cell{X: 6, Y: 1}); ok {
		t.Fatalf("stored item must not block")
	}
	_ = z.Place(monster("M1"), entity.Cell{X: 2, Y: 1})
	if err := z.Unstore("I1", entity.Cell{X: 1, Y: 1}); err == nil {
		t.Fatalf("unstore onto the monster must fail")
	}
	if err := z.Unstore("I1", entity.Cell{X: 3, Y: 1}); err != nil {
		t.Fatalf("unstore: %v", err)
	}
	if blk := z.BlockersIn(entity.Rect{X: 0, Y: 1, W: 10, H: 1}); len(blk) != 2 {
		t.Fatalf("blockers %d", len(blk))
	}
}
