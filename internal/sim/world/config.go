package world

import (
	"io"
	"log"

	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	DayTicks   int
	Seed       int64

	ContainerCapacity       int
	UpkeepCycleTicks        uint64
	SkillDecayIntervalTicks int
	MaxRecordingSteps       int

	// Operational parameters.
	SnapshotEveryTicks int
	DeltaMaxEntities   int

	Bank        ledger.BankConfig
	OwnerWeight float64

	// TuningDigest is announced in WELCOME; empty when running on defaults.
	TuningDigest string

	// Logger receives invariant violations and rejected playback intents.
	// Nil discards.
	Logger *log.Logger
}

// ConfigFromTuning maps tuning.yaml onto a world config.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                      id,
		TickRateHz:              t.TickRateHz,
		DayTicks:                t.DayTicks(),
		Seed:                    t.Seed,
		ContainerCapacity:       t.ContainerCapacity,
		UpkeepCycleTicks:        t.UpkeepCycleTicks(),
		SkillDecayIntervalTicks: t.SkillDecayIntervalTicks,
		MaxRecordingSteps:       t.MaxRecordingSteps,
		SnapshotEveryTicks:      t.SnapshotEveryTicks,
		DeltaMaxEntities:        t.DeltaMaxEntities,
		Bank: ledger.BankConfig{
			StartingRenown: t.StartingRenown,
			UpkeepFloor:    t.UpkeepFloor,
			MultiplierStep: t.SpendMultStep,
			MultiplierPer:  t.SpendMultPer,
			MultiplierCap:  t.SpendMultCap,
		},
		OwnerWeight:  t.WorkshopOwnerWeight,
		TuningDigest: t.Digest,
	}
}

func (c *WorldConfig) applyDefaults() {
	def := ConfigFromTuning(c.ID, tuning.Defaults())
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = def.TickRateHz
	}
	if c.DayTicks <= 0 {
		c.DayTicks = def.DayTicks
	}
	if c.ContainerCapacity <= 0 {
		c.ContainerCapacity = def.ContainerCapacity
	}
	if c.UpkeepCycleTicks == 0 {
		c.UpkeepCycleTicks = def.UpkeepCycleTicks
	}
	if c.SkillDecayIntervalTicks <= 0 {
		c.SkillDecayIntervalTicks = def.SkillDecayIntervalTicks
	}
	if c.MaxRecordingSteps <= 0 {
		c.MaxRecordingSteps = def.MaxRecordingSteps
	}
	if c.DeltaMaxEntities <= 0 {
		c.DeltaMaxEntities = def.DeltaMaxEntities
	}
	if c.Bank == (ledger.BankConfig{}) {
		c.Bank = def.Bank
	}
	if c.OwnerWeight <= 0 {
		c.OwnerWeight = ledger.WorkshopOwnerWeight
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}
