package main

import (
	"fmt"
	"net/http"

	"monsterworkshop.game/internal/persistence/indexdb"
	"monsterworkshop.game/internal/sim/world"
)

// metricsHandler writes the Prometheus text exposition format.
func metricsHandler(worldID string, w *world.World, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		gauge(rw, "mw_world_tick", "Current world tick.", worldID, float64(tick))
		gauge(rw, "mw_world_players", "Known players.", worldID, float64(m.Players))
		gauge(rw, "mw_world_sessions", "Connected sessions.", worldID, float64(m.Sessions))
		gauge(rw, "mw_world_entities", "Entities across all zones.", worldID, float64(m.Entities))
		gauge(rw, "mw_world_monsters", "Monsters across all zones.", worldID, float64(m.Monsters))
		gauge(rw, "mw_world_active_tasks", "Monsters with a running task.", worldID, float64(m.ActiveTasks))
		gauge(rw, "mw_world_step_ms", "Last tick step duration in milliseconds.", worldID, m.StepMS)

		fmt.Fprintf(rw, "# HELP mw_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE mw_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "mw_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "mw_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "mw_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "mw_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "attach", m.QueueDepths.Attach)

		if idx != nil {
			fmt.Fprintf(rw, "# HELP mw_index_dropped_total Index rows dropped under load.\n")
			fmt.Fprintf(rw, "# TYPE mw_index_dropped_total counter\n")
			fmt.Fprintf(rw, "mw_index_dropped_total{world=%q} %d\n", worldID, idx.Dropped())
		}
	}
}

func gauge(rw http.ResponseWriter, name, help, worldID string, v float64) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	fmt.Fprintf(rw, "%s{world=%q} %g\n", name, worldID, v)
}
