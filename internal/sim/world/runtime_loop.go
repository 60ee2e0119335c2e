package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingIntents []IntentEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingIntents = append(pendingIntents, env)
		case req := <-w.snapReq:
			w.handleSnapshotReq(req)
		case req := <-w.debug:
			if w.handleDebug(req) {
				w.stepInternal(pendingJoins, pendingLeaves, pendingIntents)
				pendingJoins = pendingJoins[:0]
				pendingLeaves = pendingLeaves[:0]
				pendingIntents = pendingIntents[:0]
				req.reply(w.stateSummary(), nil)
			}
		case <-ticker.C:
			if w.paused {
				continue
			}
			w.stepInternal(pendingJoins, pendingLeaves, pendingIntents)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingIntents = pendingIntents[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It is meant for replays and tests driven from a single
// goroutine.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, intents []IntentEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.stepInternal(joins, leaves, intents)
	return tick, w.stateDigest(tick)
}
