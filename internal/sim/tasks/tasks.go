package tasks

type Kind string

const (
	KindCraft  Kind = "CRAFT"
	KindGather Kind = "GATHER"
)

// Task is a monster's single time-consuming job at a workshop.
type Task struct {
	TaskID     string `json:"task_id"`
	Kind       Kind   `json:"kind"`
	WorkshopID string `json:"workshop_id"`
	Recipe     string `json:"recipe"`

	// Duration is the effective duration in ticks; Remaining counts down to 0.
	Duration  int `json:"duration"`
	Remaining int `json:"remaining"`

	StartedTick uint64 `json:"started_tick"`
	// FromPlayback marks tasks started by the auto-repeat controller.
	FromPlayback bool `json:"from_playback,omitempty"`
}

// Advance moves the task forward one tick and reports completion.
func (t *Task) Advance() bool {
	if t == nil {
		return false
	}
	if t.Remaining > 0 {
		t.Remaining--
	}
	return t.Remaining <= 0
}

func (t *Task) Progress() float64 {
	if t == nil || t.Duration <= 0 {
		return 0
	}
	p := float64(t.Duration-t.Remaining) / float64(t.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
