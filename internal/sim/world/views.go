package world

import (
	"encoding/json"
	"sort"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/encoding"
	"monsterworkshop.game/internal/sim/entity"
)

func entityView(e *entity.Entity) protocol.EntityView {
	v := protocol.EntityView{
		ID:     e.ID,
		Kind:   string(e.Kind),
		Pos:    [2]int{e.Pos.X, e.Pos.Y},
		Size:   [2]int{e.Size.W, e.Size.H},
		Facing: string(e.Facing),
		Blocks: e.Blocking(),
		Owner:  e.OwnerID,
	}
	if st := e.Stored; st != nil {
		v.StoredIn = st.ContainerID
		v.Role = st.Role
	}
	v.Contents = len(e.Contents)

	switch {
	case e.Monster != nil:
		m := e.Monster
		v.Label = m.Name
		v.HitchedTo = m.HitchedWagonID
		v.Carrying = m.CarriedID
		if m.Recorder != nil {
			v.Recorder = string(m.Recorder.State)
		}
		if t := m.Task; t != nil {
			v.Task = &protocol.TaskView{Kind: string(t.Kind), Recipe: t.Recipe, Remaining: t.Remaining, Progress: t.Progress()}
		}
	case e.Item != nil:
		it := e.Item
		v.GoodType = it.GoodType
		v.Quality = it.Quality
		v.Quantity = it.Quantity
		v.Value = it.Value
		v.Weight = it.Weight
		v.Durability = it.Durability
		v.Tags = it.Tags
	case e.Workshop != nil:
		ws := e.Workshop
		v.Label = ws.Name
		v.GoodType = ws.WorkshopType
		if ws.GatheringGood != "" {
			v.GoodType = ws.GatheringGood
		}
		v.SelectedRecipe = ws.SelectedRecipe
		v.MissingInputs = ws.MissingInputs
		v.MissingTools = ws.MissingTools
	case e.Wagon != nil:
		v.GoodType = e.Wagon.GoodType
		v.HitchedTo = e.Wagon.HitchedBy
	case e.Dispenser != nil:
		v.GoodType = e.Dispenser.GoodType
	case e.Delivery != nil:
		v.Label = e.Delivery.Name
		v.Tags = e.Delivery.AcceptedTags
	case e.Signpost != nil:
		v.Label = e.Signpost.Label
	}
	return v
}

// zoneViews renders every entity of the zone, keyed by id with the encoded
// view kept for diffing.
func zoneViews(zr *zoneRuntime) (map[string]string, []protocol.EntityView) {
	ents := zr.grid.Entities()
	keys := make(map[string]string, len(ents))
	views := make([]protocol.EntityView, 0, len(ents))
	for _, e := range ents {
		v := entityView(e)
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		keys[e.ID] = string(b)
		views = append(views, v)
	}
	return keys, views
}

// zoneDiff compares the current views with the ones sent last tick.
func zoneDiff(last, cur map[string]string, views []protocol.EntityView) (changed []protocol.EntityView, removed []string) {
	for _, v := range views {
		if last[v.ID] != cur[v.ID] {
			changed = append(changed, v)
		}
	}
	for id := range last {
		if _, ok := cur[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return changed, removed
}

// deltaFrames splits a zone update into DELTA frames of at most limit
// entities. Removals and accounts ride on the first frame.
func deltaFrames(nowTick uint64, zoneID string, changed []protocol.EntityView, removed []string, accounts []protocol.AccountView, limit int) [][]byte {
	if limit <= 0 {
		limit = len(changed)
	}
	var out [][]byte
	for first := true; first || len(changed) > 0; first = false {
		n := len(changed)
		if n > limit {
			n = limit
		}
		msg := protocol.DeltaMsg{
			Type:            protocol.TypeDelta,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			ZoneID:          zoneID,
			Changed:         changed[:n],
		}
		if first {
			msg.Removed = removed
			msg.Accounts = accounts
		}
		changed = changed[n:]
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// broadcastDeltas sends each zone's changes to every session whose player
// has a monster there. Sessions that have not seen a zone, or dropped a
// frame, get the full zone instead.
func (w *World) broadcastDeltas(nowTick uint64) {
	var accounts []protocol.AccountView
	if len(w.accountsChanged) > 0 {
		for _, a := range w.bank.Accounts() {
			if w.accountsChanged[a.PlayerID] {
				accounts = append(accounts, protocol.AccountView{PlayerID: a.PlayerID, Renown: a.Renown, TotalSpent: a.TotalSpent})
			}
		}
	}

	present := map[string]map[string]bool{}
	for _, id := range w.zoneOrder {
		for _, mon := range w.zones[id].monsters() {
			if present[mon.OwnerID] == nil {
				present[mon.OwnerID] = map[string]bool{}
			}
			present[mon.OwnerID][id] = true
		}
	}
	sessions := w.sortedSessions()

	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		cur, views := zoneViews(zr)
		changed, removed := zoneDiff(zr.lastViews, cur, views)
		zr.lastViews = cur

		var diffFrames, fullFrames [][]byte
		for _, c := range sessions {
			if !present[c.PlayerID][id] {
				delete(c.synced, id)
				continue
			}
			var frames [][]byte
			if c.synced[id] {
				if diffFrames == nil {
					diffFrames = deltaFrames(nowTick, id, changed, removed, accounts, w.cfg.DeltaMaxEntities)
				}
				frames = diffFrames
			} else {
				if fullFrames == nil {
					fullFrames = deltaFrames(nowTick, id, views, nil, accounts, w.cfg.DeltaMaxEntities)
				}
				frames = fullFrames
			}
			ok := true
			for _, b := range frames {
				if !trySend(c.Out, b) {
					ok = false
					break
				}
			}
			c.synced[id] = ok
		}
	}
}

func (w *World) sortedSessions() []*clientState {
	out := make([]*clientState, 0, len(w.clients))
	for _, c := range w.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// trySend never blocks; a full outbox drops the frame.
func trySend(ch chan []byte, b []byte) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- b:
		return true
	default:
		return false
	}
}

// terrainMask encodes the zone's static cells. withRoads also marks boundary
// strips as terrain and signpost cells as roads, for client layouts.
func terrainMask(zr *zoneRuntime, withRoads bool) []uint8 {
	mask := make([]uint8, zr.grid.Width*zr.grid.Height)
	for i, blocked := range zr.grid.TerrainMask() {
		if blocked {
			mask[i] = encoding.CellTerrain
		}
	}
	if !withRoads {
		return mask
	}
	for _, r := range zr.spec.Boundary() {
		for _, c := range r.Cells() {
			mask[c.Y*zr.grid.Width+c.X] = encoding.CellTerrain
		}
	}
	for _, e := range zr.grid.Entities() {
		if e.Kind == entity.KindSignpost {
			mask[e.Pos.Y*zr.grid.Width+e.Pos.X] = encoding.CellRoad
		}
	}
	return mask
}
