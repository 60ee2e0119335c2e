package entity

import (
	"monsterworkshop.game/internal/sim/crafting"
	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/recording"
	"monsterworkshop.game/internal/sim/skills"
	"monsterworkshop.game/internal/sim/tasks"
)

type Kind string

const (
	KindMonster       Kind = "monster"
	KindItem          Kind = "item"
	KindWorkshop      Kind = "workshop"
	KindGatheringSpot Kind = "gathering_spot"
	KindWagon         Kind = "wagon"
	KindDispenser     Kind = "dispenser"
	KindDelivery      Kind = "delivery"
	KindTerrain       Kind = "terrain_block"
	KindSignpost      Kind = "signpost"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindMonster, KindItem, KindWorkshop, KindGatheringSpot, KindWagon,
		KindDispenser, KindDelivery, KindTerrain, KindSignpost:
		return k, true
	}
	return "", false
}

// BlocksByDefault is the blocking flag used when zone data does not override it.
func (k Kind) BlocksByDefault() bool {
	switch k {
	case KindMonster, KindItem, KindWagon, KindTerrain:
		return true
	default:
		return false
	}
}

// IsWorkshop covers gathering spots, which are workshops without input slots.
func (k Kind) IsWorkshop() bool { return k == KindWorkshop || k == KindGatheringSpot }

// Storage roles.
const (
	RoleInput     = "input"
	RoleTool      = "tool"
	RoleOutput    = "output"
	RoleCargo     = "cargo"
	RoleDispenser = "dispenser"
	RoleCarried   = "carried"
	RoleDelivered = "delivered"
)

// Storage marks an entity held by a container. Stored entities never block.
type Storage struct {
	ContainerID string `json:"container_id"`
	Role        string `json:"role"`
	Offset      Cell   `json:"offset"`
}

type Entity struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Zone   string `json:"zone"`
	Pos    Cell   `json:"pos"`
	Size   Size   `json:"size"`
	Facing Dir    `json:"facing,omitempty"`
	Blocks bool   `json:"blocks"`

	OwnerID string   `json:"owner_id,omitempty"`
	Stored  *Storage `json:"stored,omitempty"`

	// Contents lists held entity ids in deposit order (workshops, wagons, dispensers).
	Contents []string `json:"contents,omitempty"`

	Monster   *Monster   `json:"monster,omitempty"`
	Item      *Item      `json:"item,omitempty"`
	Workshop  *Workshop  `json:"workshop,omitempty"`
	Wagon     *Wagon     `json:"wagon,omitempty"`
	Dispenser *Dispenser `json:"dispenser,omitempty"`
	Delivery  *Delivery  `json:"delivery,omitempty"`
	Signpost  *Signpost  `json:"signpost,omitempty"`
}

func (e *Entity) Rect() Rect { return RectAt(e.Pos, e.Size) }

// Blocking reports whether e currently occupies its cells exclusively.
func (e *Entity) Blocking() bool {
	if e == nil || e.Stored != nil {
		return false
	}
	return e.Blocks
}

func (e *Entity) RemoveContent(id string) bool {
	for i, c := range e.Contents {
		if c == id {
			e.Contents = append(e.Contents[:i], e.Contents[i+1:]...)
			return true
		}
	}
	return false
}

type Monster struct {
	Name         string           `json:"name"`
	Archetype    string           `json:"archetype"`
	Abilities    skills.Abilities `json:"abilities"`
	Transferable []string         `json:"transferable,omitempty"`
	Skills       skills.Set       `json:"skills"`

	CarriedID      string `json:"carried_id,omitempty"`
	HitchedWagonID string `json:"hitched_wagon_id,omitempty"`

	Task     *tasks.Task           `json:"task,omitempty"`
	Recorder *recording.Controller `json:"recorder,omitempty"`

	SpawnTick uint64 `json:"spawn_tick"`
	Online    bool   `json:"online"`
}

func (m *Monster) Busy() bool { return m != nil && m.Task != nil }

type Item struct {
	GoodType string           `json:"good_type"`
	Quality  float64          `json:"quality"`
	Quantity int              `json:"quantity"`
	Tags     []string         `json:"tags,omitempty"`
	Lineage  crafting.Lineage `json:"lineage"`
	Value    int              `json:"value"`
	Weight   int              `json:"weight"`
	Shares   ledger.Shares    `json:"shares,omitempty"`

	Durability    int `json:"durability,omitempty"`
	MaxDurability int `json:"max_durability,omitempty"`

	ProducerID  string `json:"producer_id,omitempty"`
	CreatedTick uint64 `json:"created_tick"`
}

func (it *Item) IsTool() bool { return it != nil && it.MaxDurability > 0 }

type Workshop struct {
	Name         string `json:"name"`
	WorkshopType string `json:"workshop_type"`
	// GatheringGood is set for gathering spots only.
	GatheringGood string `json:"gathering_good,omitempty"`

	SelectedRecipe string     `json:"selected_recipe,omitempty"`
	CrafterID      string     `json:"crafter_id,omitempty"`
	MissingInputs  [][]string `json:"missing_inputs,omitempty"`
	MissingTools   []string   `json:"missing_tools,omitempty"`
}

// Interior is the slot area: the footprint minus its one-cell frame.
func (e *Entity) Interior() Rect {
	r := e.Rect()
	if r.W <= 2 || r.H <= 2 {
		return r
	}
	return Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}
}

type Wagon struct {
	HitchedBy string `json:"hitched_by,omitempty"`
	GoodType  string `json:"good_type,omitempty"`
}

type Dispenser struct {
	GoodType string `json:"good_type,omitempty"`
}

type Delivery struct {
	Name         string   `json:"name"`
	AcceptedTags []string `json:"accepted_tags,omitempty"`
}

type Signpost struct {
	Label    string `json:"label"`
	DestZone string `json:"dest_zone"`
	DestCell Cell   `json:"dest_cell"`
}
