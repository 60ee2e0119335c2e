package snapshot

import (
	"path/filepath"
	"testing"

	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "42.snap.zst")
	in := SnapshotV1{
		Header:   Header{Version: Version, WorldID: "w", Tick: 42},
		Seed:     7,
		TickRate: 5,
		DayTicks: 14400,
		Zones: []ZoneV1{{
			ID: "z", Width: 10, Height: 8, NextItem: 3,
			Entities: []entity.Entity{
				{ID: "z.1", Kind: entity.KindItem, Pos: entity.Cell{X: 2, Y: 3}, Size: entity.DefaultItemSize, Blocks: true,
					Item: &entity.Item{GoodType: "Wool", Quality: 0.5, Quantity: 2, Shares: ledger.Shares{"p1": 0.5}}},
			},
		}},
		Accounts: []ledger.Account{{PlayerID: "p1", Renown: 900, TotalSpent: 100}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Tick != 42 || h.WorldID != "w" {
		t.Fatalf("header: %+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.EntityCount() != 1 {
		t.Fatalf("entities: %d", out.EntityCount())
	}
	it := out.Zones[0].Entities[0].Item
	if it == nil || it.GoodType != "Wool" || it.Shares["p1"] != 0.5 {
		t.Fatalf("item: %+v", it)
	}
	if out.Accounts[0].Renown != 900 {
		t.Fatalf("accounts: %+v", out.Accounts)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
