package recording

import (
	"errors"

	"monsterworkshop.game/internal/protocol"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateRecording State = "RECORDING"
	StatePlaying   State = "PLAYING"
)

var (
	ErrEmpty = errors.New("no recording to play")
	ErrFull  = errors.New("recording is full")
)

type Step struct {
	Offset uint64             `json:"offset"`
	Intent protocol.IntentMsg `json:"intent"`
}

// Controller is the per-monster record/playback state machine. It is driven
// by the world tick loop only: Due once per tick after the player's intents,
// Observe for each accepted player intent, and Tick once at the end of the tick.
//
// Clock counts only ticks in which the monster had no active task.
type Controller struct {
	State  State  `json:"state"`
	Steps  []Step `json:"steps,omitempty"`
	Length uint64 `json:"length"`

	Clock  uint64 `json:"clock"`
	Cursor int    `json:"cursor"`
	Cycles uint64 `json:"cycles"`
}

func (c *Controller) Recording() bool { return c != nil && c.State == StateRecording }
func (c *Controller) Playing() bool   { return c != nil && c.State == StatePlaying }

// ToggleRecord starts a fresh recording (replacing the previous one) or stops
// the current one. Playback is stopped first.
func (c *Controller) ToggleRecord() State {
	c.normalize()
	switch c.State {
	case StateRecording:
		c.finishRecording()
	default:
		c.State = StateRecording
		c.Steps = nil
		c.Length = 0
		c.Clock = 0
		c.Cursor = 0
		c.Cycles = 0
	}
	return c.State
}

// TogglePlayback starts playback from index 0 or stops it. A running
// recording is finished before playback starts.
func (c *Controller) TogglePlayback() (State, error) {
	c.normalize()
	switch c.State {
	case StatePlaying:
		c.State = StateIdle
		c.Clock = 0
		c.Cursor = 0
		return c.State, nil
	case StateRecording:
		c.finishRecording()
	}
	if len(c.Steps) == 0 {
		return c.State, ErrEmpty
	}
	c.State = StatePlaying
	c.Clock = 0
	c.Cursor = 0
	c.Cycles = 0
	return c.State, nil
}

// normalize treats the zero value as idle.
func (c *Controller) normalize() {
	if c.State == "" {
		c.State = StateIdle
	}
}

func (c *Controller) finishRecording() {
	c.State = StateIdle
	length := c.Clock
	if n := len(c.Steps); n > 0 && c.Steps[n-1].Offset >= length {
		length = c.Steps[n-1].Offset + 1
	}
	c.Length = length
	c.Clock = 0
}

// Observe appends an accepted intent at the current offset. limit bounds the
// recording length; 0 means unbounded.
func (c *Controller) Observe(in protocol.IntentMsg, limit int) error {
	if !c.Recording() {
		return nil
	}
	if limit > 0 && len(c.Steps) >= limit {
		return ErrFull
	}
	in.Ref = ""
	c.Steps = append(c.Steps, Step{Offset: c.Clock, Intent: in})
	return nil
}

// Due returns the recorded intents scheduled at the current offset, in
// recorded order. Nothing is due while the monster is busy.
func (c *Controller) Due(busy bool) []protocol.IntentMsg {
	if !c.Playing() || busy {
		return nil
	}
	var out []protocol.IntentMsg
	for c.Cursor < len(c.Steps) && c.Steps[c.Cursor].Offset <= c.Clock {
		out = append(out, c.Steps[c.Cursor].Intent)
		c.Cursor++
	}
	return out
}

// Tick advances the clock at the end of a world tick and wraps playback
// once the whole sequence has been emitted.
func (c *Controller) Tick(busy bool) {
	if c == nil || busy {
		return
	}
	switch c.State {
	case StateRecording:
		c.Clock++
	case StatePlaying:
		c.Clock++
		if c.Cursor >= len(c.Steps) && c.Clock >= c.Length {
			c.Clock = 0
			c.Cursor = 0
			c.Cycles++
		}
	}
}
