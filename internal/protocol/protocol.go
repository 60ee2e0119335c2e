package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCatalog = "CATALOG"
	TypeIntent  = "INTENT"
	TypeResult  = "RESULT"
	TypeDelta   = "DELTA"
)

// Intent kinds carried in IntentMsg.Kind.
const (
	IntentMove           = "move"
	IntentPush           = "push"
	IntentInteract       = "interact"
	IntentToggleRecord   = "toggleRecord"
	IntentTogglePlayback = "togglePlayback"
	IntentHitch          = "hitch"
	IntentUnhitch        = "unhitch"
	IntentCraftSelect    = "craftSelect"
	IntentSpawnMonster   = "spawnMonster"
	IntentCancelTask     = "cancelTask"
	IntentRemoveMonster  = "removeMonster"
	IntentUnload         = "unload"
)

var intentKinds = map[string]struct{}{
	IntentMove:           {},
	IntentPush:           {},
	IntentInteract:       {},
	IntentToggleRecord:   {},
	IntentTogglePlayback: {},
	IntentHitch:          {},
	IntentUnhitch:        {},
	IntentCraftSelect:    {},
	IntentSpawnMonster:   {},
	IntentCancelTask:     {},
	IntentRemoveMonster:  {},
	IntentUnload:         {},
}

func IsIntentKind(k string) bool {
	_, ok := intentKinds[k]
	return ok
}

// Recordable reports whether an accepted intent of this kind is captured by a
// running recording. Recorder toggles and lifecycle intents are not.
func Recordable(kind string) bool {
	switch kind {
	case IntentToggleRecord, IntentTogglePlayback, IntentSpawnMonster, IntentRemoveMonster:
		return false
	}
	return IsIntentKind(kind)
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
