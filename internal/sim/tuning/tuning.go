package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the numeric knobs of the simulation. Game days are converted
// to ticks through DayTicks.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`
	// GameTimeMultiplier is game seconds per real second.
	GameTimeMultiplier int   `yaml:"game_time_multiplier"`
	Seed               int64 `yaml:"seed"`

	ContainerCapacity int `yaml:"container_capacity"`

	StartingRenown      int     `yaml:"starting_renown"`
	UpkeepCycleDays     int     `yaml:"upkeep_cycle_days"`
	UpkeepFloor         int     `yaml:"upkeep_floor"`
	SpendMultStep       float64 `yaml:"spend_multiplier_step"`
	SpendMultPer        int     `yaml:"spend_multiplier_per"`
	SpendMultCap        float64 `yaml:"spend_multiplier_cap"`
	WorkshopOwnerWeight float64 `yaml:"workshop_owner_weight"`

	SkillDecayIntervalTicks int `yaml:"skill_decay_interval_ticks"`
	MaxRecordingSteps       int `yaml:"max_recording_steps"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	DeltaMaxEntities   int `yaml:"delta_max_entities"`

	Digest string `yaml:"-"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:         "1.0",
		TickRateHz:              5,
		GameTimeMultiplier:      30,
		Seed:                    1337,
		ContainerCapacity:       20,
		StartingRenown:          1000,
		UpkeepCycleDays:         28,
		UpkeepFloor:             200,
		SpendMultStep:           0.1,
		SpendMultPer:            1000,
		SpendMultCap:            3,
		WorkshopOwnerWeight:     8,
		SkillDecayIntervalTicks: 60,
		MaxRecordingSteps:       1024,
		SnapshotEveryTicks:      3000,
		DeltaMaxEntities:        4096,
	}
}

// DayTicks is the number of ticks in one game day.
func (t Tuning) DayTicks() int {
	if t.TickRateHz <= 0 || t.GameTimeMultiplier <= 0 {
		return 1
	}
	// 86400 game seconds per day, GameTimeMultiplier game seconds per real second.
	d := 86400 * t.TickRateHz / t.GameTimeMultiplier
	if d < 1 {
		return 1
	}
	return d
}

func (t Tuning) UpkeepCycleTicks() uint64 {
	return uint64(t.UpkeepCycleDays) * uint64(t.DayTicks())
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.GameTimeMultiplier <= 0:
		return fmt.Errorf("game_time_multiplier must be > 0")
	case t.ContainerCapacity <= 0:
		return fmt.Errorf("container_capacity must be > 0")
	case t.UpkeepCycleDays <= 0:
		return fmt.Errorf("upkeep_cycle_days must be > 0")
	case t.UpkeepFloor < 0 || t.UpkeepFloor > t.StartingRenown:
		return fmt.Errorf("upkeep_floor must be within [0, starting_renown]")
	case t.SpendMultPer <= 0 || t.SpendMultCap < 1:
		return fmt.Errorf("spend multiplier settings out of range")
	case t.SkillDecayIntervalTicks <= 0:
		return fmt.Errorf("skill_decay_interval_ticks must be > 0")
	case t.MaxRecordingSteps <= 0:
		return fmt.Errorf("max_recording_steps must be > 0")
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	return nil
}

// Load overlays tuning.yaml on Defaults. A missing file yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	sum := sha256.Sum256(raw)
	t.Digest = hex.EncodeToString(sum[:])
	return t, nil
}
