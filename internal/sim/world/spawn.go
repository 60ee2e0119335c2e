package world

import (
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/recording"
	"monsterworkshop.game/internal/sim/skills"
	"monsterworkshop.game/internal/sim/zones"
)

// SpawnSkillCount is the number of transferable skills a new monster picks.
const SpawnSkillCount = 3

// validateSpawn checks the archetype and skill picks of a spawn intent.
func (w *World) validateSpawn(archetype string, picks []string) ([]string, error) {
	if _, ok := w.catalogs.Monster(archetype); !ok {
		return nil, badRequest("unknown archetype %q", archetype)
	}
	if len(picks) != SpawnSkillCount {
		return nil, badRequest("pick exactly %d transferable skills", SpawnSkillCount)
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(picks))
	for _, s := range picks {
		k := skills.Key(s)
		if !w.catalogs.Skills.IsTransferable(k) {
			return nil, badRequest("%q is not a transferable skill", s)
		}
		if seen[k] {
			return nil, badRequest("duplicate skill %q", s)
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// spawnCell is the first free spawn point of the zone, or the fallback cell.
func spawnCell(zr *zoneRuntime) (entity.Cell, bool) {
	one := entity.Size{W: 1, H: 1}
	for _, p := range zr.spec.SpawnPoints {
		c := entity.Cell{X: p[0], Y: p[1]}
		if zr.grid.Free(entity.RectAt(c, one)) {
			return c, true
		}
	}
	c := zones.FallbackSpawn
	return c, zr.grid.Free(entity.RectAt(c, one))
}

// spawnMonster runs in the serial phase: the spend is charged only when the
// monster can be placed.
func (w *World) spawnMonster(env IntentEnvelope, nowTick uint64) (string, error) {
	in := env.Intent
	picks, err := w.validateSpawn(in.Archetype, in.Skills)
	if err != nil {
		return "", err
	}
	mt, _ := w.catalogs.Monster(in.Archetype)
	zr := w.zones[w.layout.DefaultZoneID]
	if zr == nil {
		return "", badRequest("no default zone")
	}
	at, ok := spawnCell(zr)
	if !ok {
		return "", &OccupiedCellError{Cell: at, Occupant: "spawn"}
	}
	cost, err := w.bank.Spend(env.PlayerID, mt.Cost)
	if err != nil {
		return "", err
	}
	w.accountsChanged[env.PlayerID] = true

	name := in.Name
	if name == "" {
		name = mt.Name
	}
	mon := &entity.Entity{
		ID:      w.newMonsterID(),
		Kind:    entity.KindMonster,
		Size:    entity.Size{W: 1, H: 1},
		Facing:  entity.DirDown,
		Blocks:  true,
		OwnerID: env.PlayerID,
		Monster: &entity.Monster{
			Name:         name,
			Archetype:    mt.Name,
			Abilities:    mt.Stats,
			Transferable: picks,
			Recorder:     &recording.Controller{State: recording.StateIdle},
			SpawnTick:    nowTick,
			Online:       w.playerOnline(env.PlayerID),
		},
	}
	if err := zr.grid.Place(mon, at); err != nil {
		w.logger.Printf("world %s: spawn of %s failed after spend: %v", w.cfg.ID, mon.ID, err)
		w.bank.Refund(env.PlayerID, cost)
		return "", err
	}
	w.monsterZone[mon.ID] = zr.grid.ID
	w.auditNow(AuditEntry{
		Tick:    nowTick,
		Zone:    zr.grid.ID,
		Actor:   env.PlayerID,
		Action:  "SPAWN",
		Entity:  mon.ID,
		Pos:     [2]int{at.X, at.Y},
		Details: map[string]any{"archetype": mt.Name, "cost": cost},
	})
	return mon.ID, nil
}

func (w *World) playerOnline(playerID string) bool {
	for _, c := range w.clients {
		if c.PlayerID == playerID {
			return true
		}
	}
	return false
}
