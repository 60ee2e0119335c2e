package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Intent rejections.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrBlocked        = "E_BLOCKED"
	ErrOccupied       = "E_OCCUPIED"
	ErrInvalidTask    = "E_INVALID_TASK"
	ErrAlreadyHitched = "E_ALREADY_HITCHED"
	ErrNoRenown       = "E_NO_RENOWN"
	ErrNoPermission   = "E_NO_PERMISSION"
	ErrNotFound       = "E_NOT_FOUND"

	ErrWorldBusy = "E_WORLD_BUSY"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrBlocked:         {},
	ErrOccupied:        {},
	ErrInvalidTask:     {},
	ErrAlreadyHitched:  {},
	ErrNoRenown:        {},
	ErrNoPermission:    {},
	ErrNotFound:        {},
	ErrWorldBusy:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
