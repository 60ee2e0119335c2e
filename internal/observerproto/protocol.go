// Package observerproto defines the frames of the read-only observer stream
// served next to the debug endpoints.
package observerproto

import "monsterworkshop.game/internal/protocol"

// Version is the observer protocol version (separate from the player protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "OBS_TICK"
)

// Client -> Server. First message on the observer connection; may be re-sent
// to change the followed zone.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// ZoneID selects the zone whose entities are streamed. Empty streams
	// counters only.
	ZoneID     string `json:"zone_id,omitempty"`
	IntervalMS int    `json:"interval_ms,omitempty"`
}

// Normalize clamps the subscription to the supported range.
func (s *SubscribeMsg) Normalize() {
	if s.IntervalMS <= 0 {
		s.IntervalMS = 500
	}
	if s.IntervalMS < 50 {
		s.IntervalMS = 50
	}
	if s.IntervalMS > 10000 {
		s.IntervalMS = 10000
	}
}

// HTTP response for GET /debug/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Zones           []ZoneInfo  `json:"zones"`
}

type WorldParams struct {
	TickRateHz int `json:"tick_rate_hz"`
}

type ZoneInfo struct {
	ID       string `json:"id"`
	Entities int    `json:"entities"`
	Monsters int    `json:"monsters"`
}

// Server -> Client, once per subscription interval.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Paused          bool   `json:"paused"`

	Sessions    int     `json:"sessions"`
	Monsters    int     `json:"monsters"`
	ActiveTasks int     `json:"active_tasks"`
	StepMS      float64 `json:"step_ms"`

	ZoneID   string                `json:"zone_id,omitempty"`
	Entities []protocol.EntityView `json:"entities,omitempty"`
}
