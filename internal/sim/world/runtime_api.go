package world

import (
	"context"

	"monsterworkshop.game/internal/persistence/snapshot"
)

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- IntentEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Attach() chan<- AttachRequest { return w.attach }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	return w.exportSnapshot(nowTick)
}

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	return w.importSnapshotV1(s)
}

type snapshotReq struct {
	Resp chan snapshot.SnapshotV1
}

// handleSnapshotReq exports the state after the last completed tick.
func (w *World) handleSnapshotReq(req snapshotReq) {
	t := w.tick.Load()
	if t > 0 {
		t--
	}
	if req.Resp != nil {
		req.Resp <- w.exportSnapshot(t)
	}
}

// RequestSnapshot asks the running loop for a consistent snapshot.
func (w *World) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	req := snapshotReq{Resp: make(chan snapshot.SnapshotV1, 1)}
	select {
	case w.snapReq <- req:
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case s := <-req.Resp:
		return s, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// Submit queues an intent without blocking. It reports false when the inbox
// is full.
func (w *World) Submit(env IntentEnvelope) bool {
	select {
	case w.inbox <- env:
		return true
	default:
		return false
	}
}
