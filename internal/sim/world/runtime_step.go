package world

import (
	"encoding/json"
	"sync"
	"time"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/recording"
)

func newResult(env IntentEnvelope, nowTick uint64) resultOut {
	return resultOut{
		PlayerID:  env.PlayerID,
		SessionID: env.SessionID,
		Msg: protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			Ref:             env.Intent.Ref,
			Kind:            env.Intent.Kind,
			Tick:            nowTick,
			OK:              true,
		},
	}
}

func (r *resultOut) finish(entityID, msg string, err error) {
	if err != nil {
		r.Msg.OK = false
		r.Msg.Code = ResultCode(err)
		r.Msg.Message = err.Error()
		return
	}
	r.Msg.EntityID = entityID
	r.Msg.Message = msg
}

func (w *World) stepInternal(joins []JoinRequest, leaves []string, intents []IntentEnvelope) {
	stepStart := time.Now()
	nowTick := w.tick.Load()
	clear(w.accountsChanged)

	// Session phase: leaves, joins, then intent routing in inbox order.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, sid := range leaves {
		if w.handleLeave(sid) {
			recordedLeaves = append(recordedLeaves, sid)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := w.joinPlayer(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: req.Name})
	}

	for _, id := range w.zoneOrder {
		w.zones[id].beginTick()
	}
	var results []resultOut
	var spawns []IntentEnvelope
	recorded := make([]RecordedIntent, 0, len(intents))
	for _, env := range intents {
		if w.players[env.PlayerID] == nil {
			continue
		}
		recorded = append(recorded, RecordedIntent{PlayerID: env.PlayerID, Intent: env.Intent})
		if err := w.routeIntent(env, &spawns); err != nil {
			res := newResult(env, nowTick)
			res.finish("", "", err)
			results = append(results, res)
		}
	}

	// Zone phase: every zone on its own goroutine.
	var wg sync.WaitGroup
	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.stepZone(zr, nowTick)
		}()
	}
	wg.Wait()

	for _, id := range w.zoneOrder {
		for _, a := range w.zones[id].audits {
			w.auditNow(a)
		}
	}

	// Serial phase.
	for _, env := range spawns {
		res := newResult(env, nowTick)
		id, err := w.spawnMonster(env, nowTick)
		res.finish(id, "spawned", err)
		results = append(results, res)
	}
	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		w.applyCredits(zr)
		for _, mid := range zr.departed {
			delete(w.monsterZone, mid)
		}
	}
	for _, id := range w.zoneOrder {
		for _, op := range w.zones[id].transfers {
			w.applyTransfer(op, nowTick)
		}
	}
	w.applyUpkeep(nowTick)
	w.applySkillDecay(nowTick)

	// Output phase.
	for _, id := range w.zoneOrder {
		results = append(results, w.zones[id].results...)
	}
	for _, r := range results {
		c := w.clients[r.SessionID]
		if c == nil || c.PlayerID != r.PlayerID {
			continue
		}
		b, err := json.Marshal(r.Msg)
		if err != nil {
			continue
		}
		trySend(c.Out, b)
	}
	w.broadcastDeltas(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Joins: recordedJoins, Leaves: recordedLeaves, Intents: recorded, Digest: digest})
	}

	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Sink backed up; the next period retries.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	next := w.tick.Add(1)
	w.publishMetrics(next, stepMS)
}

// routeIntent queues an intent on the zone of its monster. Spawns are set
// aside for the serial phase. A non-nil error rejects the intent.
func (w *World) routeIntent(env IntentEnvelope, spawns *[]IntentEnvelope) error {
	in := env.Intent
	if !protocol.IsIntentKind(in.Kind) {
		return badRequest("unknown intent kind %q", in.Kind)
	}
	if in.Kind == protocol.IntentSpawnMonster {
		if _, err := w.validateSpawn(in.Archetype, in.Skills); err != nil {
			return err
		}
		*spawns = append(*spawns, env)
		return nil
	}
	zoneID, ok := w.monsterZone[in.MonsterID]
	if !ok {
		return ErrNotFound
	}
	zr := w.zones[zoneID]
	mon, ok := zr.grid.Get(in.MonsterID)
	if !ok || mon.Monster == nil {
		return ErrNotFound
	}
	if mon.OwnerID != env.PlayerID {
		return ErrNoPermission
	}
	zr.intents = append(zr.intents, env)
	return nil
}

// stepZone runs the zone phase of one tick. It touches only zr and
// read-only world data.
func (w *World) stepZone(zr *zoneRuntime, nowTick uint64) {
	rules := zoneRules{w: w, now: nowTick}

	for _, env := range zr.intents {
		res := newResult(env, nowTick)
		mon, ok := zr.grid.Get(env.Intent.MonsterID)
		if !ok || mon.Monster == nil {
			res.finish("", "", ErrNotFound)
			zr.results = append(zr.results, res)
			continue
		}
		id, msg, err := w.applyIntent(zr, rules, mon, env.Intent, nowTick, false)
		if err == nil && protocol.Recordable(env.Intent.Kind) {
			if rec := mon.Monster.Recorder; rec.Recording() {
				if oerr := rec.Observe(env.Intent, w.cfg.MaxRecordingSteps); oerr != nil {
					msg += "; " + oerr.Error()
				}
			}
		}
		res.finish(id, msg, err)
		zr.results = append(zr.results, res)
	}

	for _, mon := range zr.monsters() {
		m := mon.Monster
		if m.Recorder == nil {
			m.Recorder = &recording.Controller{State: recording.StateIdle}
		}
		for _, in := range m.Recorder.Due(m.Busy()) {
			in.MonsterID = mon.ID
			if _, _, err := w.applyIntent(zr, rules, mon, in, nowTick, true); err != nil {
				w.logger.Printf("world %s: playback of %s for %s rejected: %v", w.cfg.ID, in.Kind, mon.ID, err)
				zr.audit(AuditEntry{
					Tick:    nowTick,
					Actor:   mon.OwnerID,
					Action:  "PLAYBACK_REJECTED",
					Entity:  mon.ID,
					Pos:     [2]int{mon.Pos.X, mon.Pos.Y},
					Reason:  ResultCode(err),
					Details: map[string]any{"kind": in.Kind, "error": err.Error()},
				})
			}
			if _, ok := zr.grid.Get(mon.ID); !ok {
				break
			}
		}
	}

	w.systemTasks(zr, nowTick)
	w.releaseDispensers(zr)
	w.ejectOutputs(zr)
	w.expireShelfLife(zr, nowTick)

	for _, mon := range zr.monsters() {
		mon.Monster.Recorder.Tick(mon.Monster.Busy())
	}
}
