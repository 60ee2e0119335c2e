package world

import "monsterworkshop.game/internal/protocol"

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
	// Err is set when an attach token is unknown.
	Err string
}

// IntentEnvelope carries one client intent into the loop. PlayerID and
// SessionID come from the transport session, never from the payload.
type IntentEnvelope struct {
	PlayerID  string
	SessionID string
	Intent    protocol.IntentMsg
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedIntent struct {
	PlayerID string             `json:"player_id"`
	Intent   protocol.IntentMsg `json:"intent"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Intents []RecordedIntent `json:"intents,omitempty"`
	Digest  string           `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Zone    string         `json:"zone,omitempty"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "CRAFT_COMPLETE"
	Entity  string         `json:"entity,omitempty"`
	Pos     [2]int         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
