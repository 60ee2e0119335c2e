package world

import (
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/movement"
)

// applyTransfer moves a monster along a road into another zone. The
// destination footprint is checked first so a refused transfer changes
// nothing. A hitched wagon stays behind.
func (w *World) applyTransfer(op transferOp, nowTick uint64) {
	src := w.zones[op.FromZone]
	dst := w.zones[op.ToZone]
	reject := func(reason string) {
		w.auditNow(AuditEntry{
			Tick:    nowTick,
			Zone:    op.FromZone,
			Actor:   op.MonsterID,
			Action:  "TRANSFER_REJECTED",
			Entity:  op.SignpostID,
			Reason:  reason,
			Details: map[string]any{"to_zone": op.ToZone, "to": [2]int{op.To.X, op.To.Y}},
		})
	}
	if src == nil || dst == nil {
		reject("unknown zone")
		return
	}
	mon, ok := src.grid.Get(op.MonsterID)
	if !ok || mon.Monster == nil {
		return
	}
	if !dst.grid.Free(entity.RectAt(op.To, mon.Size)) {
		reject("destination occupied")
		return
	}

	if mon.Monster.HitchedWagonID != "" {
		_ = movement.Unhitch(src.grid, mon)
	}
	var carried *entity.Entity
	if id := mon.Monster.CarriedID; id != "" {
		carried, _ = src.grid.Remove(id)
	}
	src.grid.Remove(mon.ID)
	if err := dst.grid.Place(mon, op.To); err != nil {
		w.logger.Printf("world %s: transfer of %s to %s failed after check: %v", w.cfg.ID, mon.ID, op.ToZone, err)
		if err := src.grid.Place(mon, mon.Pos); err != nil {
			w.logger.Printf("world %s: %s lost during transfer: %v", w.cfg.ID, mon.ID, err)
			delete(w.monsterZone, mon.ID)
			return
		}
		dst = src
	}
	if carried != nil {
		carried.Pos = mon.Pos
		if err := dst.grid.Place(carried, mon.Pos); err != nil {
			mon.Monster.CarriedID = ""
		}
	}
	w.monsterZone[mon.ID] = dst.grid.ID
	w.auditNow(AuditEntry{
		Tick:    nowTick,
		Zone:    op.FromZone,
		Actor:   mon.OwnerID,
		Action:  "TRANSFER",
		Entity:  mon.ID,
		Pos:     [2]int{op.To.X, op.To.Y},
		Details: map[string]any{"to_zone": dst.grid.ID, "road": op.SignpostID},
	})
}
