package world

import (
	"sort"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/sim/encoding"
	"monsterworkshop.game/internal/sim/entity"
)

func (w *World) exportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:           w.cfg.Seed,
		TickRate:       w.cfg.TickRateHz,
		DayTicks:       w.cfg.DayTicks,
		CatalogDigests: w.catalogs.Digests(),
		NextMonsterNum: w.nextMonsterNum.Load(),
		NextJoinNum:    w.nextJoinNum.Load(),
		Accounts:       w.bank.Accounts(),
	}

	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		zv := snapshot.ZoneV1{
			ID:       id,
			Width:    zr.grid.Width,
			Height:   zr.grid.Height,
			Terrain:  encoding.EncodeMask(terrainMask(zr, false)),
			NextItem: zr.nextItem,
		}
		ents := zr.grid.Entities()
		zv.Entities = make([]entity.Entity, 0, len(ents))
		for _, e := range ents {
			c, err := cloneEntity(e)
			if err != nil {
				w.logger.Printf("world %s: snapshot: skipping %s: %v", w.cfg.ID, e.ID, err)
				continue
			}
			zv.Entities = append(zv.Entities, c)
		}
		s.Zones = append(s.Zones, zv)
	}

	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := w.players[id]
		s.Players = append(s.Players, snapshot.PlayerV1{ID: p.ID, Name: p.Name, ResumeToken: p.ResumeToken})
	}
	return s
}
