package world

import (
	"fmt"

	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/zones"
)

// bootstrapZone materializes a zone layout: boundary strips, static terrain,
// configured entities, road signposts and the noise-seeded scatter.
func (w *World) bootstrapZone(spec zones.ZoneSpec) (*zoneRuntime, error) {
	zr := newZoneRuntime(spec)
	z := zr.grid

	for i, r := range spec.Boundary() {
		e := &entity.Entity{
			ID:     fmt.Sprintf("%s.boundary.%d", spec.ID, i+1),
			Kind:   entity.KindTerrain,
			Size:   entity.Size{W: r.W, H: r.H},
			Blocks: true,
		}
		if err := z.Place(e, r.Origin()); err != nil {
			return nil, fmt.Errorf("zone %s: boundary: %w", spec.ID, err)
		}
	}
	for _, t := range spec.Terrain {
		for _, c := range t.Rect().Cells() {
			if err := z.SetTerrain(c, true); err != nil {
				return nil, fmt.Errorf("zone %s: terrain: %w", spec.ID, err)
			}
		}
	}

	for _, es := range spec.Entities {
		if err := w.placeSpecEntity(zr, es); err != nil {
			return nil, fmt.Errorf("zone %s: entity %s: %w", spec.ID, es.ID, err)
		}
	}

	for _, r := range spec.Roads {
		e := &entity.Entity{
			ID:   r.ID,
			Kind: entity.KindSignpost,
			Size: entity.Size{W: 1, H: 1},
			Signpost: &entity.Signpost{
				Label:    r.Label,
				DestZone: r.ToZone,
				DestCell: entity.Cell{X: r.ToX, Y: r.ToY},
			},
		}
		if err := z.Place(e, entity.Cell{X: r.X, Y: r.Y}); err != nil {
			return nil, fmt.Errorf("zone %s: road %s: %w", spec.ID, r.ID, err)
		}
	}

	items, rocks := spec.Seed(w.cfg.Seed)
	for _, s := range items {
		good, ok := w.catalogs.Good(s.GoodType)
		if !ok {
			return nil, fmt.Errorf("zone %s: scatter: unknown good type %q", spec.ID, s.GoodType)
		}
		fw, fh := good.Footprint()
		if !z.Free(entity.RectAt(s.Cell, entity.Size{W: fw, H: fh})) || len(z.Overlays(s.Cell)) > 0 {
			continue
		}
		if err := z.Place(w.makeItem(zr, good, s.Quality, 0), s.Cell); err != nil {
			return nil, fmt.Errorf("zone %s: scatter: %w", spec.ID, err)
		}
	}
	for i, c := range rocks {
		if !z.Free(entity.RectAt(c, entity.Size{W: 1, H: 1})) || len(z.Overlays(c)) > 0 {
			continue
		}
		e := &entity.Entity{
			ID:     fmt.Sprintf("%s.rock.%d", spec.ID, i+1),
			Kind:   entity.KindTerrain,
			Size:   entity.Size{W: 1, H: 1},
			Blocks: true,
		}
		if err := z.Place(e, c); err != nil {
			return nil, fmt.Errorf("zone %s: rocks: %w", spec.ID, err)
		}
	}
	return zr, nil
}

func (w *World) placeSpecEntity(zr *zoneRuntime, es zones.EntitySpec) error {
	kind, _ := entity.ParseKind(es.Kind)
	e := &entity.Entity{
		ID:      es.ID,
		Kind:    kind,
		Blocks:  kind.BlocksByDefault(),
		OwnerID: es.Owner,
		Size:    entity.Size{W: es.W, H: es.H},
	}
	at := entity.Cell{X: es.X, Y: es.Y}

	switch kind {
	case entity.KindWorkshop, entity.KindGatheringSpot:
		good, ok := w.catalogs.Good(es.GoodType)
		if !ok || !good.IsWorkshop() {
			return fmt.Errorf("good_type %q is not a workshop", es.GoodType)
		}
		if kind == entity.KindGatheringSpot {
			g, ok := w.catalogs.Good(es.GatheringGood)
			if !ok || !g.IsRaw() {
				return fmt.Errorf("gathering_good %q is not a raw material", es.GatheringGood)
			}
		}
		fw, fh := good.Footprint()
		e.Size = e.Size.OrDefault(entity.Size{W: fw, H: fh})
		name := es.Name
		if name == "" {
			name = good.Name
		}
		e.Workshop = &entity.Workshop{Name: name, WorkshopType: good.Key(), GatheringGood: es.GatheringGood}
	case entity.KindDelivery:
		e.Size = e.Size.OrDefault(entity.Size{W: 2, H: 2})
		e.Delivery = &entity.Delivery{Name: es.Name, AcceptedTags: append([]string(nil), es.AcceptedTags...)}
	case entity.KindDispenser:
		e.Size = e.Size.OrDefault(entity.DefaultItemSize)
		e.Dispenser = &entity.Dispenser{GoodType: es.GoodType}
	case entity.KindWagon:
		e.Size = e.Size.OrDefault(entity.DefaultItemSize)
		e.Wagon = &entity.Wagon{}
	case entity.KindTerrain:
		e.Size = e.Size.OrDefault(entity.Size{W: 1, H: 1})
	case entity.KindItem:
		good, ok := w.catalogs.Good(es.GoodType)
		if !ok {
			return fmt.Errorf("unknown good type %q", es.GoodType)
		}
		item := w.makeItem(zr, good, es.Quality, 0)
		item.ID = es.ID
		item.OwnerID = es.Owner
		return zr.grid.Place(item, at)
	default:
		return fmt.Errorf("unsupported kind %q", es.Kind)
	}

	if err := zr.grid.Place(e, at); err != nil {
		return err
	}
	if kind == entity.KindDispenser && es.Count > 0 {
		return w.prefillDispenser(zr, e, es)
	}
	return nil
}

func (w *World) prefillDispenser(zr *zoneRuntime, d *entity.Entity, es zones.EntitySpec) error {
	good, ok := w.catalogs.Good(es.GoodType)
	if !ok {
		return fmt.Errorf("dispenser good type %q unknown", es.GoodType)
	}
	n := es.Count
	if n > w.cfg.ContainerCapacity {
		n = w.cfg.ContainerCapacity
	}
	for i := 0; i < n; i++ {
		item := w.makeItem(zr, good, es.Quality, 0)
		item.Stored = &entity.Storage{ContainerID: d.ID, Role: entity.RoleDispenser}
		if err := zr.grid.Place(item, d.Pos); err != nil {
			return err
		}
		d.Contents = append(d.Contents, item.ID)
	}
	return nil
}

// goodOf returns the catalog entry of an item entity.
func (w *World) goodOf(e *entity.Entity) (catalogs.GoodType, bool) {
	if e == nil || e.Item == nil {
		return catalogs.GoodType{}, false
	}
	return w.catalogs.Good(e.Item.GoodType)
}
