package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Players     int  `json:"players"`
	Sessions    int  `json:"sessions"`
	Zones       int  `json:"zones"`
	Entities    int  `json:"entities"`
	Monsters    int  `json:"monsters"`
	ActiveTasks int  `json:"active_tasks"`
	Paused      bool `json:"paused"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Join   int `json:"join"`
	Leave  int `json:"leave"`
	Attach int `json:"attach"`
}

func (w *World) publishMetrics(tick uint64, stepMS float64) {
	m := WorldMetrics{
		Tick:     tick,
		Players:  len(w.players),
		Sessions: len(w.clients),
		Zones:    len(w.zoneOrder),
		Paused:   w.paused,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Join:   len(w.join),
			Leave:  len(w.leave),
			Attach: len(w.attach),
		},
		StepMS: stepMS,
	}
	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		m.Entities += zr.grid.Len()
		for _, mon := range zr.monsters() {
			m.Monsters++
			if mon.Monster.Busy() {
				m.ActiveTasks++
			}
		}
	}
	w.metrics.Store(m)
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
