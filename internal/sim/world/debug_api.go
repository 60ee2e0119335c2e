package world

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
)

var (
	ErrNotPaused = errors.New("world is not paused")
	ErrUnknownOp = errors.New("unknown debug op")
)

const (
	debugPause       = "pause"
	debugResume      = "resume"
	debugStep        = "step"
	debugZone        = "zone"
	debugEntity      = "entity"
	debugConnections = "connections"
	debugState       = "state"
)

type debugReq struct {
	Op   string
	ID   string
	Resp chan debugResp
}

type debugResp struct {
	Data any
	Err  error
}

func (r debugReq) reply(data any, err error) {
	if r.Resp != nil {
		r.Resp <- debugResp{Data: data, Err: err}
	}
}

type ZoneDump struct {
	ZoneID   string                `json:"zone_id"`
	Name     string                `json:"name"`
	Width    int                   `json:"width"`
	Height   int                   `json:"height"`
	Tick     uint64                `json:"tick"`
	Entities []protocol.EntityView `json:"entities"`
}

type ConnectionInfo struct {
	SessionID string   `json:"session_id"`
	PlayerID  string   `json:"player_id"`
	Name      string   `json:"name"`
	Zones     []string `json:"synced_zones,omitempty"`
	Outbox    int      `json:"outbox"`
}

type ZoneSummary struct {
	ZoneID   string `json:"zone_id"`
	Entities int    `json:"entities"`
	Monsters int    `json:"monsters"`
}

type StateSummary struct {
	WorldID  string           `json:"world_id"`
	Tick     uint64           `json:"tick"`
	Paused   bool             `json:"paused"`
	Players  int              `json:"players"`
	Sessions int              `json:"sessions"`
	Zones    []ZoneSummary    `json:"zones"`
	Accounts []ledger.Account `json:"accounts"`
	Digest   string           `json:"digest"`
}

// handleDebug answers a debug request on the loop goroutine. It returns true
// when the caller must step the world once and reply with the new state.
func (w *World) handleDebug(req debugReq) bool {
	switch req.Op {
	case debugPause:
		w.paused = true
		req.reply(w.stateSummary(), nil)
	case debugResume:
		w.paused = false
		req.reply(w.stateSummary(), nil)
	case debugStep:
		if !w.paused {
			req.reply(nil, ErrNotPaused)
			return false
		}
		return true
	case debugZone:
		d, err := w.dumpZone(req.ID)
		req.reply(d, err)
	case debugEntity:
		e, err := w.dumpEntity(req.ID)
		req.reply(e, err)
	case debugConnections:
		req.reply(w.connections(), nil)
	case debugState:
		req.reply(w.stateSummary(), nil)
	default:
		req.reply(nil, ErrUnknownOp)
	}
	return false
}

func (w *World) dumpZone(id string) (ZoneDump, error) {
	zr := w.zones[id]
	if zr == nil {
		return ZoneDump{}, ErrNotFound
	}
	_, views := zoneViews(zr)
	return ZoneDump{
		ZoneID:   id,
		Name:     zr.spec.Name,
		Width:    zr.spec.Width,
		Height:   zr.spec.Height,
		Tick:     w.tick.Load(),
		Entities: views,
	}, nil
}

// dumpEntity returns a deep copy of the full entity state.
func (w *World) dumpEntity(id string) (entity.Entity, error) {
	for _, zid := range w.zoneOrder {
		if e, ok := w.zones[zid].grid.Get(id); ok {
			return cloneEntity(e)
		}
	}
	return entity.Entity{}, ErrNotFound
}

func cloneEntity(e *entity.Entity) (entity.Entity, error) {
	var out entity.Entity
	b, err := json.Marshal(e)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

func (w *World) connections() []ConnectionInfo {
	out := make([]ConnectionInfo, 0, len(w.clients))
	for _, c := range w.sortedSessions() {
		info := ConnectionInfo{SessionID: c.SessionID, PlayerID: c.PlayerID, Outbox: len(c.Out)}
		if p := w.players[c.PlayerID]; p != nil {
			info.Name = p.Name
		}
		for z, ok := range c.synced {
			if ok {
				info.Zones = append(info.Zones, z)
			}
		}
		sort.Strings(info.Zones)
		out = append(out, info)
	}
	return out
}

func (w *World) stateSummary() StateSummary {
	s := StateSummary{
		WorldID:  w.cfg.ID,
		Tick:     w.tick.Load(),
		Paused:   w.paused,
		Players:  len(w.players),
		Sessions: len(w.clients),
		Accounts: w.bank.Accounts(),
	}
	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		s.Zones = append(s.Zones, ZoneSummary{ZoneID: id, Entities: zr.grid.Len(), Monsters: len(zr.monsters())})
	}
	if s.Tick > 0 {
		s.Digest = w.stateDigest(s.Tick - 1)
	}
	return s
}

func (w *World) debugCall(ctx context.Context, op, id string) (any, error) {
	req := debugReq{Op: op, ID: id, Resp: make(chan debugResp, 1)}
	select {
	case w.debug <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.Resp:
		return r.Data, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func debugAs[T any](data any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := data.(T)
	if !ok {
		return zero, errors.New("unexpected debug reply")
	}
	return v, nil
}

func (w *World) Pause(ctx context.Context) (StateSummary, error) {
	return debugAs[StateSummary](w.debugCall(ctx, debugPause, ""))
}

func (w *World) Resume(ctx context.Context) (StateSummary, error) {
	return debugAs[StateSummary](w.debugCall(ctx, debugResume, ""))
}

// Step advances a paused world by exactly one tick.
func (w *World) Step(ctx context.Context) (StateSummary, error) {
	return debugAs[StateSummary](w.debugCall(ctx, debugStep, ""))
}

func (w *World) DumpZone(ctx context.Context, id string) (ZoneDump, error) {
	return debugAs[ZoneDump](w.debugCall(ctx, debugZone, id))
}

func (w *World) DumpEntity(ctx context.Context, id string) (entity.Entity, error) {
	return debugAs[entity.Entity](w.debugCall(ctx, debugEntity, id))
}

func (w *World) Connections(ctx context.Context) ([]ConnectionInfo, error) {
	return debugAs[[]ConnectionInfo](w.debugCall(ctx, debugConnections, ""))
}

func (w *World) State(ctx context.Context) (StateSummary, error) {
	return debugAs[StateSummary](w.debugCall(ctx, debugState, ""))
}

// ---- Debug/Test Helpers ----
//
// These are NOT safe to call concurrently with Run(). Use them only from tests
// or tools that drive the world via StepOnce() on a single goroutine.

// DebugStateDigest returns the current world digest for the given tick label.
func (w *World) DebugStateDigest(nowTick uint64) string {
	if w == nil {
		return ""
	}
	return w.stateDigest(nowTick)
}

// DebugEntity returns a deep copy of an entity in any zone.
func (w *World) DebugEntity(id string) (entity.Entity, bool) {
	e, err := w.dumpEntity(id)
	return e, err == nil
}

// DebugAccount returns a player's bank account.
func (w *World) DebugAccount(playerID string) (ledger.Account, bool) {
	return w.bank.Get(playerID)
}
