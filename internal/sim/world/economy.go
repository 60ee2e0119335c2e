package world

import (
	"monsterworkshop.game/internal/sim/entity"
)

// releaseDispensers drops the first held item of every dispenser onto its
// cell once the cell is clear.
func (w *World) releaseDispensers(zr *zoneRuntime) {
	for _, d := range zr.grid.Entities() {
		if d.Kind != entity.KindDispenser || len(d.Contents) == 0 {
			continue
		}
		it, ok := zr.grid.Get(d.Contents[0])
		if !ok {
			d.Contents = d.Contents[1:]
			continue
		}
		if !zr.grid.Free(entity.RectAt(d.Pos, it.Size)) {
			continue
		}
		if err := zr.grid.Unstore(it.ID, d.Pos); err != nil {
			continue
		}
		d.RemoveContent(it.ID)
	}
}

// ejectOutputs turns finished outputs into loose items inside their workshop
// as soon as their cells hold no blocker.
func (w *World) ejectOutputs(zr *zoneRuntime) {
	for _, ws := range zr.grid.Entities() {
		if !ws.Kind.IsWorkshop() || len(ws.Contents) == 0 {
			continue
		}
		for _, it := range zr.grid.Stored(ws) {
			if it.Stored.Role != entity.RoleOutput || !zr.grid.Free(it.Rect()) {
				continue
			}
			if err := zr.grid.Unstore(it.ID, it.Pos); err != nil {
				continue
			}
			ws.RemoveContent(it.ID)
		}
	}
}

// expireShelfLife destroys perishable items older than their shelf life,
// wherever they are held.
func (w *World) expireShelfLife(zr *zoneRuntime, nowTick uint64) {
	day := uint64(w.cfg.DayTicks)
	for _, e := range zr.grid.Entities() {
		if e.Item == nil {
			continue
		}
		g, ok := w.goodOf(e)
		if !ok || g.ShelfLifeDays <= 0 {
			continue
		}
		if nowTick < e.Item.CreatedTick || nowTick-e.Item.CreatedTick < uint64(g.ShelfLifeDays)*day {
			continue
		}
		zr.audit(AuditEntry{Tick: nowTick, Actor: "world", Action: "EXPIRED", Entity: e.ID, Pos: [2]int{e.Pos.X, e.Pos.Y}, Details: map[string]any{"good_type": e.Item.GoodType}})
		zr.destroy(e.ID)
	}
}

// applyCredits pays the zone's delivery credits into the bank.
func (w *World) applyCredits(zr *zoneRuntime) {
	for _, c := range zr.credits {
		w.bank.Credit(c.PlayerID, c.Amount)
		w.accountsChanged[c.PlayerID] = true
	}
}

// applyUpkeep charges every player the archetype cost of each monster they
// own. Accounts never drop below the upkeep floor.
func (w *World) applyUpkeep(nowTick uint64) {
	every := w.cfg.UpkeepCycleTicks
	if every == 0 || nowTick == 0 || nowTick%every != 0 {
		return
	}
	costs := map[string]int{}
	for _, id := range w.zoneOrder {
		for _, mon := range w.zones[id].monsters() {
			mt, ok := w.catalogs.Monster(mon.Monster.Archetype)
			if !ok {
				continue
			}
			costs[mon.OwnerID] += mt.Cost
		}
	}
	for _, a := range w.bank.Accounts() {
		cost := costs[a.PlayerID]
		charged, waived := w.bank.Upkeep(a.PlayerID, cost)
		w.accountsChanged[a.PlayerID] = true
		w.auditNow(AuditEntry{
			Tick:    nowTick,
			Actor:   a.PlayerID,
			Action:  "UPKEEP",
			Details: map[string]any{"cost": cost, "charged": charged, "waived": waived},
		})
	}
}

// applySkillDecay adds one forgetting step to every idle monster.
func (w *World) applySkillDecay(nowTick uint64) {
	every := uint64(w.cfg.SkillDecayIntervalTicks)
	if every == 0 || nowTick == 0 || nowTick%every != 0 {
		return
	}
	for _, id := range w.zoneOrder {
		for _, mon := range w.zones[id].monsters() {
			m := mon.Monster
			if m.Busy() {
				continue
			}
			m.Skills.Decay(w.effectiveAbilities(m, nowTick), 1)
		}
	}
}

// auditNow writes a serial-phase audit entry directly.
func (w *World) auditNow(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(e)
}
