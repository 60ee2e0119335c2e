package world

import (
	"fmt"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/sim/encoding"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/recording"
	"monsterworkshop.game/internal/sim/zones"
)

func (w *World) importSnapshotV1(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if w.cfg.Seed != s.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}
	if w.cfg.DayTicks != s.DayTicks {
		return fmt.Errorf("snapshot day_ticks mismatch: cfg=%d snap=%d", w.cfg.DayTicks, s.DayTicks)
	}
	for name, want := range s.CatalogDigests {
		if have := w.catalogs.Digests()[name]; have != want {
			w.logger.Printf("world %s: snapshot %s digest %s differs from loaded %s", w.cfg.ID, name, want, have)
		}
	}

	zoneRuntimes := make(map[string]*zoneRuntime, len(s.Zones))
	monsterZone := map[string]string{}
	order := make([]string, 0, len(s.Zones))
	for _, zv := range s.Zones {
		spec, ok := w.layout.ZoneByID(zv.ID)
		if !ok {
			spec = zones.ZoneSpec{ID: zv.ID, Name: zv.ID}
		}
		spec.Width, spec.Height = zv.Width, zv.Height
		zr := newZoneRuntime(spec)
		zr.nextItem = zv.NextItem

		cells, err := encoding.DecodeMask(zv.Terrain, zv.Width*zv.Height)
		if err != nil {
			return fmt.Errorf("zone %s: terrain: %w", zv.ID, err)
		}
		for i, c := range cells {
			if c != encoding.CellTerrain {
				continue
			}
			if err := zr.grid.SetTerrain(entity.Cell{X: i % zv.Width, Y: i / zv.Width}, true); err != nil {
				return fmt.Errorf("zone %s: terrain: %w", zv.ID, err)
			}
		}
		for i := range zv.Entities {
			e := zv.Entities[i]
			if m := e.Monster; m != nil {
				m.Online = false
				if m.Recorder == nil {
					m.Recorder = &recording.Controller{State: recording.StateIdle}
				}
				monsterZone[e.ID] = zv.ID
			}
			if err := zr.grid.Place(&e, e.Pos); err != nil {
				return fmt.Errorf("zone %s: entity %s: %w", zv.ID, e.ID, err)
			}
		}
		zoneRuntimes[zv.ID] = zr
		order = append(order, zv.ID)
	}

	w.zones = zoneRuntimes
	w.zoneOrder = order
	w.monsterZone = monsterZone
	w.catalogMsgs = nil
	w.bank.Restore(s.Accounts)

	w.players = map[string]*player{}
	w.tokens = map[string]string{}
	for _, p := range s.Players {
		w.players[p.ID] = &player{ID: p.ID, Name: p.Name, ResumeToken: p.ResumeToken}
		if p.ResumeToken != "" {
			w.tokens[p.ResumeToken] = p.ID
		}
	}
	for _, c := range w.clients {
		c.synced = map[string]bool{}
		w.setOnline(c.PlayerID, true)
	}

	w.nextMonsterNum.Store(s.NextMonsterNum)
	w.nextJoinNum.Store(s.NextJoinNum)
	w.tick.Store(s.Header.Tick + 1)
	return nil
}
