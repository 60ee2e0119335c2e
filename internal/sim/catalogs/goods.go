package catalogs

import (
	"monsterworkshop.game/internal/sim/skills"
)

// GoodType is one entry of good_types.json. The same record describes raw
// materials, refined goods (recipes), tools and workshop types.
type GoodType struct {
	Name     string   `json:"name"`
	TypeTags []string `json:"type_tags"`
	Size     []int    `json:"size,omitempty"`

	StorageVolume float64 `json:"storage_volume,omitempty"`
	ShelfLifeDays int     `json:"shelf_life_days,omitempty"`

	RawBaseValue *float64 `json:"raw_material_base_value,omitempty"`
	RawDensity   float64  `json:"raw_material_density,omitempty"`

	IsTool   bool     `json:"is_tool,omitempty"`
	ToolTags []string `json:"tool_tags,omitempty"`

	WorkshopTaskSlots int      `json:"workshop_task_slots,omitempty"`
	WorkshopTaskTags  []string `json:"workshop_task_tags,omitempty"`

	RequiresWorkshop   string     `json:"requires_workshop,omitempty"`
	ProductionTime     int        `json:"production_time,omitempty"`
	Quantity           int        `json:"quantity,omitempty"`
	IsFixedQuantity    bool       `json:"is_fixed_quantity,omitempty"`
	HasQuality         *bool      `json:"has_quality,omitempty"`
	RelevantAbility    int        `json:"relevant_ability_score"`
	Difficulty         int        `json:"difficulty_rating,omitempty"`
	PrimarySkill       string     `json:"primary_applied_skill,omitempty"`
	SecondarySkills    []string   `json:"secondary_applied_skills,omitempty"`
	DestabilizerSkills []string   `json:"destabilizer_skills,omitempty"`
	LearnDestabilizers bool       `json:"learn_destabilizers,omitempty"`
	TransferableSkills []string   `json:"transferable_skills,omitempty"`
	InputTags          [][]string `json:"input_goods_tags_required,omitempty"`
	CarryoverTags      [][]string `json:"input_goods_tags_carryover,omitempty"`
	ToolsRequired      []string   `json:"tools_required_tags,omitempty"`
	ToolsWeights       []int      `json:"tools_weights,omitempty"`
	ValueAddedShares   int        `json:"value_added_shares,omitempty"`
}

const DefaultProductionTime = 60

func (g GoodType) Key() string { return skills.Key(g.Name) }

func (g GoodType) IsRaw() bool { return g.RawBaseValue != nil }

func (g GoodType) IsWorkshop() bool {
	return g.WorkshopTaskSlots > 0 || len(g.WorkshopTaskTags) > 0
}

func (g GoodType) IsRecipe() bool { return g.RequiresWorkshop != "" }

func (g GoodType) BaseValue() float64 {
	if g.RawBaseValue == nil {
		return 0
	}
	return *g.RawBaseValue
}

// Footprint defaults to 2x1.
func (g GoodType) Footprint() (w, h int) {
	if len(g.Size) == 2 && g.Size[0] > 0 && g.Size[1] > 0 {
		return g.Size[0], g.Size[1]
	}
	return 2, 1
}

func (g GoodType) Volume() float64 {
	if g.StorageVolume <= 0 {
		return 1
	}
	return g.StorageVolume
}

func (g GoodType) QualityRolled() bool { return g.HasQuality == nil || *g.HasQuality }

func (g GoodType) BaseDuration() int {
	if g.ProductionTime <= 0 {
		return DefaultProductionTime
	}
	return g.ProductionTime
}

func (g GoodType) BaseQuantity() int {
	if g.Quantity <= 0 {
		return 1
	}
	return g.Quantity
}

func (g GoodType) DifficultyOrOne() int {
	if g.Difficulty <= 0 {
		return 1
	}
	return g.Difficulty
}

func (g GoodType) HasTag(tag string) bool { return hasAllTags(g.TypeTags, []string{tag}) }

// Matches reports whether the type carries every tag of a required group.
func (g GoodType) Matches(group []string) bool { return hasAllTags(g.TypeTags, group) }

// ProvidesTool reports whether the type satisfies a required tool tag.
func (g GoodType) ProvidesTool(tag string) bool {
	return (g.IsTool || len(g.ToolTags) > 0) && hasAllTags(g.ToolTags, []string{tag})
}

func (g GoodType) Tool() bool { return g.IsTool || len(g.ToolTags) > 0 }

func (g GoodType) ToolWeight(i int) int {
	if i < len(g.ToolsWeights) && g.ToolsWeights[i] >= 1 {
		return g.ToolsWeights[i]
	}
	return 1
}
