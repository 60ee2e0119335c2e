package world

import (
	"fmt"
	"sort"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/movement"
)

// applyIntent runs one intent against a monster of zr. It returns the id of
// the entity the intent produced or targeted and a short human message.
// On error nothing was mutated.
func (w *World) applyIntent(zr *zoneRuntime, rules zoneRules, mon *entity.Entity, in protocol.IntentMsg, nowTick uint64, fromPlayback bool) (string, string, error) {
	m := mon.Monster
	switch in.Kind {
	case protocol.IntentMove, protocol.IntentPush:
		dir, ok := entity.ParseDir(in.Dir)
		if !ok {
			return "", "", badRequest("invalid dir %q", in.Dir)
		}
		return w.stepMonster(zr, rules, mon, dir, nowTick)

	case protocol.IntentInteract:
		if m.Busy() {
			return "", "", &movement.BlockedError{Reason: movement.ReasonBusy}
		}
		return w.interact(zr, rules, mon, nowTick)

	case protocol.IntentToggleRecord:
		st := m.Recorder.ToggleRecord()
		return mon.ID, string(st), nil

	case protocol.IntentTogglePlayback:
		st, err := m.Recorder.TogglePlayback()
		if err != nil {
			return "", "", err
		}
		return mon.ID, string(st), nil

	case protocol.IntentHitch:
		if in.TargetID == "" {
			return "", "", badRequest("missing target_id")
		}
		wg, ok := zr.grid.Get(in.TargetID)
		if !ok {
			return "", "", ErrNotFound
		}
		if wg.OwnerID != "" && wg.OwnerID != mon.OwnerID {
			return "", "", ErrNoPermission
		}
		if err := movement.Hitch(zr.grid, mon, in.TargetID); err != nil {
			return "", "", err
		}
		return wg.ID, "hitched", nil

	case protocol.IntentUnhitch:
		id := m.HitchedWagonID
		if err := movement.Unhitch(zr.grid, mon); err != nil {
			return "", "", err
		}
		return id, "unhitched", nil

	case protocol.IntentUnload:
		id := in.TargetID
		if id == "" {
			id = m.HitchedWagonID
		}
		if id == "" {
			return "", "", badRequest("no wagon to unload")
		}
		wg, ok := zr.grid.Get(id)
		if !ok {
			return "", "", ErrNotFound
		}
		if wg.Wagon == nil {
			return "", "", movement.ErrNotWagon
		}
		if !w.ownsWagon(mon, wg) {
			return "", "", ErrNoPermission
		}
		if wg.Wagon.HitchedBy != mon.ID && !mon.Rect().Touches(wg.Rect()) {
			return "", "", movement.ErrNotAdjacent
		}
		n, err := w.unloadWagon(zr, wg)
		if err != nil {
			return "", "", err
		}
		return wg.ID, fmt.Sprintf("unloaded %d", n), nil

	case protocol.IntentCraftSelect:
		id, err := w.craftSelect(zr, mon, in, nowTick, fromPlayback)
		if err != nil {
			return "", "", err
		}
		return id, "started", nil

	case protocol.IntentCancelTask:
		if m.Task == nil {
			return "", "", invalidTask("no active task")
		}
		id := m.Task.TaskID
		w.cancelTask(zr, mon)
		return id, "cancelled", nil

	case protocol.IntentRemoveMonster:
		w.removeMonster(zr, mon, nowTick)
		return mon.ID, "removed", nil
	}
	return "", "", badRequest("unsupported intent kind %q", in.Kind)
}

// stepMonster moves the monster one cell, pushing whatever the resolver
// allows, then settles absorbed items and checks for a road.
func (w *World) stepMonster(zr *zoneRuntime, rules zoneRules, mon *entity.Entity, dir entity.Dir, nowTick uint64) (string, string, error) {
	plan, err := movement.Resolve(zr.grid, mon, dir, rules)
	if err != nil {
		return "", "", err
	}
	if err := movement.Apply(zr.grid, plan); err != nil {
		w.logger.Printf("world %s: validated move of %s failed: %v", w.cfg.ID, mon.ID, err)
		zr.audit(AuditEntry{Tick: nowTick, Actor: mon.OwnerID, Action: "INVARIANT", Entity: mon.ID, Reason: err.Error()})
		return "", "", err
	}
	w.followCarried(zr, mon)
	w.handleAbsorptions(zr, plan.Absorb, nowTick)

	for _, o := range zr.grid.Overlays(mon.Pos) {
		if o.Kind == entity.KindSignpost && o.Signpost != nil {
			zr.transfers = append(zr.transfers, transferOp{
				MonsterID:  mon.ID,
				SignpostID: o.ID,
				FromZone:   zr.grid.ID,
				ToZone:     o.Signpost.DestZone,
				To:         o.Signpost.DestCell,
			})
			break
		}
	}
	return mon.ID, fmt.Sprintf("at %s", mon.Pos), nil
}

// followCarried keeps a carried item's display position on its carrier.
func (w *World) followCarried(zr *zoneRuntime, mon *entity.Entity) {
	if mon.Monster.CarriedID == "" {
		return
	}
	if it, ok := zr.grid.Get(mon.Monster.CarriedID); ok {
		it.Pos = mon.Pos
	}
}

// handleAbsorptions settles items that just landed in a receiver: deliveries
// pay out and consume them, single-good containers adopt their type.
func (w *World) handleAbsorptions(zr *zoneRuntime, absorbed []movement.Absorption, nowTick uint64) {
	for _, a := range absorbed {
		recv, ok := zr.grid.Get(a.ReceiverID)
		if !ok {
			continue
		}
		it, ok := zr.grid.Get(a.ItemID)
		if !ok || it.Item == nil {
			continue
		}
		switch recv.Kind {
		case entity.KindDelivery:
			w.deliver(zr, recv, it, nowTick)
		case entity.KindWagon:
			if recv.Wagon.GoodType == "" {
				recv.Wagon.GoodType = it.Item.GoodType
			}
		case entity.KindDispenser:
			if recv.Dispenser.GoodType == "" {
				recv.Dispenser.GoodType = it.Item.GoodType
			}
		case entity.KindWorkshop, entity.KindGatheringSpot:
			recv.Workshop.MissingInputs = nil
			recv.Workshop.MissingTools = nil
		}
	}
}

// deliver converts an item into renown credits for its shareholders.
func (w *World) deliver(zr *zoneRuntime, d, it *entity.Entity, nowTick uint64) {
	q := it.Item.Quantity
	if q < 1 {
		q = 1
	}
	value := it.Item.Value * q
	gains := ledger.Distribute(value, it.Item.Shares)
	players := make([]string, 0, len(gains))
	for p := range gains {
		players = append(players, p)
	}
	sort.Strings(players)
	for _, p := range players {
		zr.credits = append(zr.credits, creditOp{PlayerID: p, Amount: gains[p], ItemID: it.ID})
	}
	zr.audit(AuditEntry{
		Tick:   nowTick,
		Actor:  d.ID,
		Action: "DELIVERED",
		Entity: it.ID,
		Pos:    [2]int{d.Pos.X, d.Pos.Y},
		Details: map[string]any{
			"good_type": it.Item.GoodType,
			"value":     value,
			"credited":  len(players),
		},
	})
	zr.destroy(it.ID)
}

func (w *World) ownsWagon(mon, wg *entity.Entity) bool {
	if wg.Wagon == nil {
		return false
	}
	return wg.Wagon.HitchedBy == mon.ID || (wg.OwnerID != "" && wg.OwnerID == mon.OwnerID)
}

// frontCell is the cell the monster faces.
func frontCell(mon *entity.Entity) entity.Cell {
	f := mon.Facing
	if f == "" {
		f = entity.DirDown
	}
	dx, dy := f.Delta()
	r := mon.Rect()
	switch f {
	case entity.DirRight:
		return entity.Cell{X: r.X + r.W, Y: r.Y}
	case entity.DirDown:
		return entity.Cell{X: r.X, Y: r.Y + r.H}
	default:
		return entity.Cell{X: r.X + dx, Y: r.Y + dy}
	}
}

// interact does the first thing that applies to the faced cell: drop the
// carried item, pick up an item, unload an own wagon, or inspect.
func (w *World) interact(zr *zoneRuntime, rules zoneRules, mon *entity.Entity, nowTick uint64) (string, string, error) {
	m := mon.Monster
	front := frontCell(mon)
	if m.CarriedID != "" {
		return w.drop(zr, rules, mon, front, nowTick)
	}

	if b, ok := zr.grid.At(front); ok {
		switch {
		case b.Kind == entity.KindItem && b.Item != nil:
			load := b.Item.Weight * max(b.Item.Quantity, 1)
			if limit := rules.Capacity(mon); load > limit {
				return "", "", &movement.BlockedError{Reason: movement.ReasonTooHeavy, By: b.ID, Detail: fmt.Sprintf("weight %d exceeds %d", load, limit)}
			}
			st := &entity.Storage{ContainerID: mon.ID, Role: entity.RoleCarried}
			if err := zr.grid.SetStored(b.ID, st, mon.Pos); err != nil {
				return "", "", err
			}
			m.CarriedID = b.ID
			return b.ID, "picked up " + b.Item.GoodType, nil

		case b.Kind == entity.KindWagon && w.ownsWagon(mon, b) && len(b.Contents) > 0:
			n, err := w.unloadWagon(zr, b)
			if err != nil {
				return "", "", err
			}
			return b.ID, fmt.Sprintf("unloaded %d", n), nil
		}
		return b.ID, describe(b), nil
	}
	if ov := zr.grid.Overlays(front); len(ov) > 0 {
		return ov[0].ID, describe(ov[0]), nil
	}
	return "", "nothing here", nil
}

// drop puts the carried item down in front of the monster, or into the
// receiver lying there.
func (w *World) drop(zr *zoneRuntime, rules zoneRules, mon *entity.Entity, front entity.Cell, nowTick uint64) (string, string, error) {
	m := mon.Monster
	it, ok := zr.grid.Get(m.CarriedID)
	if !ok {
		m.CarriedID = ""
		return "", "", ErrNotFound
	}
	origin := front
	switch mon.Facing {
	case entity.DirLeft:
		origin.X -= it.Size.W - 1
	case entity.DirUp:
		origin.Y -= it.Size.H - 1
	}
	rect := entity.RectAt(origin, it.Size)
	if !zr.grid.InBounds(rect) {
		return "", "", &movement.BlockedError{Reason: movement.ReasonWall}
	}
	if recv := dropReceiver(zr, rect); recv != nil {
		role, err := rules.Accept(zr.grid, recv, it, origin)
		if err != nil {
			return "", "", &movement.BlockedError{Reason: movement.ReasonRejected, By: recv.ID, Detail: err.Error()}
		}
		st := &entity.Storage{ContainerID: recv.ID, Role: role, Offset: entity.Cell{X: origin.X - recv.Pos.X, Y: origin.Y - recv.Pos.Y}}
		if err := zr.grid.SetStored(it.ID, st, origin); err != nil {
			return "", "", err
		}
		recv.Contents = append(recv.Contents, it.ID)
		m.CarriedID = ""
		w.handleAbsorptions(zr, []movement.Absorption{{ItemID: it.ID, ReceiverID: recv.ID, Role: role, At: origin}}, nowTick)
		return it.ID, "stored in " + recv.ID, nil
	}
	if err := zr.grid.Unstore(it.ID, origin); err != nil {
		return "", "", err
	}
	m.CarriedID = ""
	return it.ID, "dropped at " + origin.String(), nil
}

func dropReceiver(zr *zoneRuntime, r entity.Rect) *entity.Entity {
	for _, c := range r.Cells() {
		for _, o := range zr.grid.Overlays(c) {
			switch o.Kind {
			case entity.KindWorkshop, entity.KindGatheringSpot:
				if r.Within(o.Interior()) {
					return o
				}
			case entity.KindDispenser, entity.KindDelivery:
				return o
			}
		}
	}
	return nil
}

func describe(e *entity.Entity) string {
	switch {
	case e.Item != nil:
		return fmt.Sprintf("%s q=%.2f x%d value=%d", e.Item.GoodType, e.Item.Quality, e.Item.Quantity, e.Item.Value)
	case e.Workshop != nil:
		return fmt.Sprintf("%s (%s) holds %d", e.Workshop.Name, e.Workshop.WorkshopType, len(e.Contents))
	case e.Wagon != nil:
		return fmt.Sprintf("wagon with %d %s", len(e.Contents), e.Wagon.GoodType)
	case e.Dispenser != nil:
		return fmt.Sprintf("dispenser with %d %s", len(e.Contents), e.Dispenser.GoodType)
	case e.Delivery != nil:
		return fmt.Sprintf("%s accepts %v", e.Delivery.Name, e.Delivery.AcceptedTags)
	case e.Signpost != nil:
		return fmt.Sprintf("road to %s", e.Signpost.Label)
	case e.Monster != nil:
		return fmt.Sprintf("%s the %s", e.Monster.Name, e.Monster.Archetype)
	}
	return string(e.Kind)
}

// unloadWagon releases cargo in deposit order onto the first free ring cells
// around the wagon. Items that do not fit stay loaded.
func (w *World) unloadWagon(zr *zoneRuntime, wg *entity.Entity) (int, error) {
	if len(wg.Contents) == 0 {
		return 0, badRequest("wagon %s is empty", wg.ID)
	}
	n := 0
	for _, it := range zr.grid.Stored(wg) {
		for _, c := range ringCells(wg.Rect()) {
			r := entity.RectAt(c, it.Size)
			if r.Overlaps(wg.Rect()) || !zr.grid.Free(r) || hasOverlays(zr, r) {
				continue
			}
			if err := zr.grid.Unstore(it.ID, c); err != nil {
				continue
			}
			wg.RemoveContent(it.ID)
			n++
			break
		}
	}
	if n == 0 {
		return 0, badRequest("no room to unload %s", wg.ID)
	}
	if len(wg.Contents) == 0 {
		wg.Wagon.GoodType = ""
	}
	return n, nil
}

// ringCells lists the cells bordering r clockwise from its top-left corner.
func ringCells(r entity.Rect) []entity.Cell {
	x0, y0, x1, y1 := r.X-1, r.Y-1, r.X+r.W, r.Y+r.H
	var out []entity.Cell
	for x := x0; x <= x1; x++ {
		out = append(out, entity.Cell{X: x, Y: y0})
	}
	for y := y0 + 1; y <= y1; y++ {
		out = append(out, entity.Cell{X: x1, Y: y})
	}
	for x := x1 - 1; x >= x0; x-- {
		out = append(out, entity.Cell{X: x, Y: y1})
	}
	for y := y1 - 1; y > y0; y-- {
		out = append(out, entity.Cell{X: x0, Y: y})
	}
	return out
}

func hasOverlays(zr *zoneRuntime, r entity.Rect) bool {
	for _, c := range r.Cells() {
		if len(zr.grid.Overlays(c)) > 0 {
			return true
		}
	}
	return false
}

func (w *World) cancelTask(zr *zoneRuntime, mon *entity.Entity) {
	t := mon.Monster.Task
	if t == nil {
		return
	}
	if ws, ok := zr.grid.Get(t.WorkshopID); ok && ws.Workshop != nil && ws.Workshop.CrafterID == mon.ID {
		ws.Workshop.CrafterID = ""
	}
	mon.Monster.Task = nil
}

// removeMonster deletes a monster for good. Its wagon is unhitched and its
// carried item is left on the vacated cell when it fits there.
func (w *World) removeMonster(zr *zoneRuntime, mon *entity.Entity, nowTick uint64) {
	m := mon.Monster
	w.cancelTask(zr, mon)
	if m.HitchedWagonID != "" {
		_ = movement.Unhitch(zr.grid, mon)
	}
	carried := m.CarriedID
	zr.grid.Remove(mon.ID)
	if carried != "" {
		m.CarriedID = ""
		if err := zr.grid.Unstore(carried, mon.Pos); err != nil {
			zr.grid.Remove(carried)
		}
	}
	zr.departed = append(zr.departed, mon.ID)
	zr.audit(AuditEntry{Tick: nowTick, Actor: mon.OwnerID, Action: "MONSTER_REMOVED", Entity: mon.ID, Pos: [2]int{mon.Pos.X, mon.Pos.Y}})
}
