package world

import (
	"errors"
	"fmt"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/grid"
	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/movement"
	"monsterworkshop.game/internal/sim/recording"
)

// Rejections raised by the world itself. Movement, grid and ledger errors are
// passed through unchanged and mapped by ResultCode.
type (
	BlockedError            = movement.BlockedError
	AlreadyHitchedError     = movement.AlreadyHitchedError
	OccupiedCellError       = grid.OccupiedCellError
	InsufficientRenownError = ledger.InsufficientRenownError
)

type InvalidTaskError struct {
	Reason string
}

func (e *InvalidTaskError) Error() string { return "invalid task: " + e.Reason }

type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return "bad request: " + e.Reason }

var (
	ErrNotFound     = errors.New("entity not found")
	ErrNoPermission = errors.New("monster is owned by another player")
)

func badRequest(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

func invalidTask(format string, args ...any) error {
	return &InvalidTaskError{Reason: fmt.Sprintf(format, args...)}
}

// ResultCode maps a rejection to its protocol code.
func ResultCode(err error) string {
	if err == nil {
		return ""
	}
	var (
		blocked  *movement.BlockedError
		hitched  *movement.AlreadyHitchedError
		occupied *grid.OccupiedCellError
		renown   *ledger.InsufficientRenownError
		task     *InvalidTaskError
		bad      *BadRequestError
	)
	switch {
	case errors.As(err, &blocked):
		return protocol.ErrBlocked
	case errors.As(err, &hitched):
		return protocol.ErrAlreadyHitched
	case errors.As(err, &occupied):
		return protocol.ErrOccupied
	case errors.As(err, &renown):
		return protocol.ErrNoRenown
	case errors.As(err, &task):
		return protocol.ErrInvalidTask
	case errors.As(err, &bad):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, ErrNoPermission):
		return protocol.ErrNoPermission
	case errors.Is(err, movement.ErrNotHitched),
		errors.Is(err, movement.ErrNotAdjacent),
		errors.Is(err, movement.ErrNotWagon),
		errors.Is(err, recording.ErrEmpty),
		errors.Is(err, recording.ErrFull):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}
