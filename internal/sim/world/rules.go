package world

import (
	"errors"
	"fmt"

	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/grid"
	"monsterworkshop.game/internal/sim/skills"
)

// zoneRules answers the movement resolver's receiver questions for one tick.
type zoneRules struct {
	w   *World
	now uint64
}

func (r zoneRules) Capacity(mover *entity.Entity) int {
	if mover.Monster == nil {
		return 0
	}
	return r.w.effectiveAbilities(mover.Monster, r.now).STR
}

func (r zoneRules) Accept(z *grid.Zone, recv, item *entity.Entity, dest entity.Cell) (string, error) {
	if item.Item == nil {
		return "", errors.New("only items can be stored")
	}
	capacity := r.w.cfg.ContainerCapacity
	switch recv.Kind {
	case entity.KindWagon:
		if recv.Wagon == nil {
			return "", errors.New("not a wagon")
		}
		if len(recv.Contents) >= capacity {
			return "", errors.New("wagon is full")
		}
		if g := recv.Wagon.GoodType; g != "" && skills.Key(g) != skills.Key(item.Item.GoodType) {
			return "", fmt.Errorf("wagon carries %s", g)
		}
		return entity.RoleCargo, nil

	case entity.KindDispenser:
		if recv.Dispenser == nil {
			return "", errors.New("not a dispenser")
		}
		if len(recv.Contents) >= capacity {
			return "", errors.New("dispenser is full")
		}
		if g := recv.Dispenser.GoodType; g != "" && skills.Key(g) != skills.Key(item.Item.GoodType) {
			return "", fmt.Errorf("dispenser holds %s", g)
		}
		return entity.RoleDispenser, nil

	case entity.KindDelivery:
		if recv.Delivery == nil || !hasAnyTag(r.w.itemTags(item.Item), recv.Delivery.AcceptedTags) {
			return "", fmt.Errorf("%s does not accept %s", recv.ID, item.Item.GoodType)
		}
		return entity.RoleDelivered, nil

	case entity.KindWorkshop, entity.KindGatheringSpot:
		return r.acceptWorkshop(z, recv, item, dest)
	}
	return "", fmt.Errorf("%s does not take items", recv.Kind)
}

func (r zoneRules) acceptWorkshop(z *grid.Zone, ws, item *entity.Entity, dest entity.Cell) (string, error) {
	if ws.Workshop == nil {
		return "", errors.New("not a workshop")
	}
	if ws.Workshop.CrafterID != "" {
		return "", errors.New("workshop is busy")
	}
	good, ok := r.w.goodOf(item)
	if !ok {
		return "", fmt.Errorf("unknown good type %s", item.Item.GoodType)
	}
	role := entity.RoleInput
	if good.Tool() {
		role = entity.RoleTool
	}
	if ws.Kind == entity.KindGatheringSpot && role != entity.RoleTool {
		return "", errors.New("gathering spots only take tools")
	}
	if limit := r.w.slotSize(ws.Workshop.WorkshopType, role); item.Size.W > limit.W || item.Size.H > limit.H {
		return "", fmt.Errorf("%s does not fit a %s slot", item.Item.GoodType, role)
	}
	slot := entity.RectAt(dest, item.Size)
	for _, s := range z.Stored(ws) {
		if s.Rect().Overlaps(slot) {
			return "", fmt.Errorf("slot taken by %s", s.ID)
		}
	}
	return role, nil
}

// slotSize is the largest footprint accepted for role at a workshop type.
func (w *World) slotSize(workshopType, role string) entity.Size {
	if s, ok := w.slotSizes[slotKey{workshopType, role}]; ok {
		return s
	}
	return entity.DefaultItemSize
}

type slotKey struct {
	workshopType string
	role         string
}

// indexSlotSizes derives per-role slot sizes from the recipes bound to each
// workshop type: the largest good that can satisfy an input group or a tool
// tag.
func indexSlotSizes(cats *catalogs.Catalogs) map[slotKey]entity.Size {
	out := map[slotKey]entity.Size{}
	grow := func(k slotKey, g catalogs.GoodType) {
		w, h := g.Footprint()
		cur, ok := out[k]
		if !ok {
			cur = entity.DefaultItemSize
		}
		if w > cur.W {
			cur.W = w
		}
		if h > cur.H {
			cur.H = h
		}
		out[k] = cur
	}
	for _, wk := range cats.Goods.Keys {
		ws := cats.Goods.ByKey[wk]
		if !ws.IsWorkshop() {
			continue
		}
		recipes := cats.RecipesFor(ws.Name)
		for _, key := range cats.Goods.Keys {
			g := cats.Goods.ByKey[key]
			if g.IsRaw() {
				// Gathering spots produce raw goods and take their tools.
				recipes = append(recipes, g)
			}
		}
		for _, rec := range recipes {
			for _, key := range cats.Goods.Keys {
				g := cats.Goods.ByKey[key]
				for _, group := range rec.InputTags {
					if g.Matches(group) {
						grow(slotKey{ws.Key(), entity.RoleInput}, g)
					}
				}
				for _, tag := range rec.ToolsRequired {
					if g.ProvidesTool(tag) {
						grow(slotKey{ws.Key(), entity.RoleTool}, g)
					}
				}
			}
		}
	}
	return out
}
