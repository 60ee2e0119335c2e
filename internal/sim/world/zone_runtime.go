package world

import (
	"fmt"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/crafting"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/grid"
	"monsterworkshop.game/internal/sim/skills"
	"monsterworkshop.game/internal/sim/zones"
)

// zoneRuntime is the private state of one zone. During the zone phase it is
// touched by exactly one goroutine; anything that crosses zones or reaches
// the bank is queued as an op for the serial phase.
type zoneRuntime struct {
	spec zones.ZoneSpec
	grid *grid.Zone

	// nextItem numbers items created in this zone. Ids are zone-scoped so
	// concurrent zones allocate deterministically.
	nextItem uint64

	intents   []IntentEnvelope
	results   []resultOut
	credits   []creditOp
	transfers []transferOp
	departed  []string // monsters removed by removeMonster
	audits    []AuditEntry

	lastViews map[string]string
}

type resultOut struct {
	PlayerID  string
	SessionID string
	Msg       protocol.ResultMsg
}

type creditOp struct {
	PlayerID string
	Amount   int
	ItemID   string
}

type transferOp struct {
	MonsterID  string
	SignpostID string
	FromZone   string
	ToZone     string
	To         entity.Cell
}

func newZoneRuntime(spec zones.ZoneSpec) *zoneRuntime {
	return &zoneRuntime{
		spec:      spec,
		grid:      grid.NewZone(spec.ID, spec.Width, spec.Height),
		lastViews: map[string]string{},
	}
}

func (zr *zoneRuntime) beginTick() {
	zr.intents = zr.intents[:0]
	zr.results = zr.results[:0]
	zr.credits = zr.credits[:0]
	zr.transfers = zr.transfers[:0]
	zr.departed = zr.departed[:0]
	zr.audits = zr.audits[:0]
}

func (zr *zoneRuntime) newItemID() string {
	zr.nextItem++
	return fmt.Sprintf("%s.%d", zr.grid.ID, zr.nextItem)
}

func (zr *zoneRuntime) newTaskID() string {
	zr.nextItem++
	return fmt.Sprintf("%s.T%d", zr.grid.ID, zr.nextItem)
}

func (zr *zoneRuntime) audit(e AuditEntry) {
	e.Zone = zr.grid.ID
	zr.audits = append(zr.audits, e)
}

// destroy removes an entity and unlinks it from its container or carrier.
func (zr *zoneRuntime) destroy(id string) {
	e, ok := zr.grid.Get(id)
	if !ok {
		return
	}
	if st := e.Stored; st != nil {
		if c, ok := zr.grid.Get(st.ContainerID); ok {
			c.RemoveContent(id)
			if c.Monster != nil && c.Monster.CarriedID == id {
				c.Monster.CarriedID = ""
			}
		}
	}
	zr.grid.Remove(id)
}

// monsters returns the zone's monsters sorted by id.
func (zr *zoneRuntime) monsters() []*entity.Entity {
	var out []*entity.Entity
	for _, e := range zr.grid.Entities() {
		if e.Kind == entity.KindMonster && e.Monster != nil {
			out = append(out, e)
		}
	}
	return out
}

// makeItem builds a fresh single-unit item of good at quality q. Raw goods
// get a raw lineage and raw value; tools and workshop goods get full
// durability.
func (w *World) makeItem(zr *zoneRuntime, good catalogs.GoodType, q float64, nowTick uint64) *entity.Entity {
	q = crafting.NormalizeQuality(q)
	it := &entity.Item{
		GoodType:    good.Name,
		Quality:     q,
		Quantity:    1,
		CreatedTick: nowTick,
	}
	if good.IsRaw() {
		it.Lineage = crafting.RawLineage(good.Name, good.BaseValue(), good.RawDensity)
		it.Value = crafting.RawValue(good.BaseValue(), q)
	}
	it.Weight = crafting.Weight(good.IsRaw(), good.RawDensity, good.Volume(), it.Lineage)
	w.applyDurability(it, good)

	fw, fh := good.Footprint()
	return &entity.Entity{
		ID:     zr.newItemID(),
		Kind:   entity.KindItem,
		Size:   entity.Size{W: fw, H: fh},
		Blocks: true,
		Item:   it,
	}
}

func (w *World) applyDurability(it *entity.Item, good catalogs.GoodType) {
	switch {
	case good.IsWorkshop():
		it.MaxDurability = crafting.WorkshopMaxDurability
	case good.Tool():
		it.MaxDurability = crafting.ToolMaxDurability
	default:
		return
	}
	it.Durability = it.MaxDurability
}

func (w *World) effectiveAbilities(m *entity.Monster, nowTick uint64) skills.Abilities {
	return m.Abilities.Plus(skills.AgeBonus(w.ageDays(m.SpawnTick, nowTick)))
}

// itemTags is the good type tags plus the item's carried-over tags.
func (w *World) itemTags(it *entity.Item) []string {
	var out []string
	if g, ok := w.catalogs.Good(it.GoodType); ok {
		out = append(out, g.TypeTags...)
	}
	return append(out, it.Tags...)
}

func hasTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if skills.Key(h) == skills.Key(w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		if hasTags(have, []string{w}) {
			return true
		}
	}
	return false
}
