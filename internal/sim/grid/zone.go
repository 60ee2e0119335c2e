package grid

import (
	"fmt"
	"sort"

	"monsterworkshop.game/internal/sim/entity"
)

// Pseudo occupants reported by OccupiedCellError when no entity is involved.
const (
	OccupantTerrain = "#terrain"
	OccupantBounds  = "#bounds"
)

type OccupiedCellError struct {
	Cell     entity.Cell
	Occupant string
}

func (e *OccupiedCellError) Error() string {
	return fmt.Sprintf("cell %s is occupied by %s", e.Cell, e.Occupant)
}

// Zone indexes the entities of one bounded grid. A cell holds at most one
// blocking entity and any number of overlays. Stored entities are tracked by
// id only and never occupy cells.
type Zone struct {
	ID     string
	Width  int
	Height int

	terrain  []bool
	entities map[string]*entity.Entity
	blockers map[entity.Cell]string
	overlays map[entity.Cell][]string
}

func NewZone(id string, w, h int) *Zone {
	return &Zone{
		ID:       id,
		Width:    w,
		Height:   h,
		terrain:  make([]bool, w*h),
		entities: map[string]*entity.Entity{},
		blockers: map[entity.Cell]string{},
		overlays: map[entity.Cell][]string{},
	}
}

func (z *Zone) Bounds() entity.Rect { return entity.Rect{W: z.Width, H: z.Height} }

func (z *Zone) InBounds(r entity.Rect) bool { return r.W > 0 && r.H > 0 && r.Within(z.Bounds()) }

func (z *Zone) idx(c entity.Cell) int { return c.Y*z.Width + c.X }

// SetTerrain marks a static blocked cell. Cells under a blocking entity
// cannot become terrain.
func (z *Zone) SetTerrain(c entity.Cell, blocked bool) error {
	if !z.Bounds().Contains(c) {
		return &OccupiedCellError{Cell: c, Occupant: OccupantBounds}
	}
	if id, ok := z.blockers[c]; ok && blocked {
		return &OccupiedCellError{Cell: c, Occupant: id}
	}
	z.terrain[z.idx(c)] = blocked
	return nil
}

// Terrain reports static blocked cells. Out-of-bounds cells count as terrain.
func (z *Zone) Terrain(c entity.Cell) bool {
	if !z.Bounds().Contains(c) {
		return true
	}
	return z.terrain[z.idx(c)]
}

// TerrainMask returns the static terrain in row-major order.
func (z *Zone) TerrainMask() []bool { return append([]bool(nil), z.terrain...) }

func (z *Zone) Get(id string) (*entity.Entity, bool) {
	e, ok := z.entities[id]
	return e, ok
}

// Entities returns every entity of the zone sorted by id.
func (z *Zone) Entities() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(z.entities))
	for _, e := range z.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (z *Zone) Len() int { return len(z.entities) }

// At returns the blocking occupant of c.
func (z *Zone) At(c entity.Cell) (*entity.Entity, bool) {
	id, ok := z.blockers[c]
	if !ok {
		return nil, false
	}
	return z.entities[id], true
}

// Overlays returns the non-blocking, non-stored entities covering c, by id.
func (z *Zone) Overlays(c entity.Cell) []*entity.Entity {
	ids := z.overlays[c]
	out := make([]*entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, z.entities[id])
	}
	return out
}

// BlockersIn returns the distinct blocking entities overlapping r, by id.
func (z *Zone) BlockersIn(r entity.Rect) []*entity.Entity {
	seen := map[string]bool{}
	var out []*entity.Entity
	for _, c := range r.Cells() {
		if id, ok := z.blockers[c]; ok && !seen[id] {
			seen[id] = true
			out = append(out, z.entities[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Free reports whether a blocking footprint r could be placed, ignoring the
// listed ids.
func (z *Zone) Free(r entity.Rect, ignore ...string) bool {
	return z.check(r, ignore) == nil
}

func (z *Zone) check(r entity.Rect, ignore []string) error {
	if !z.InBounds(r) {
		return &OccupiedCellError{Cell: r.Origin(), Occupant: OccupantBounds}
	}
	for _, c := range r.Cells() {
		if z.terrain[z.idx(c)] {
			return &OccupiedCellError{Cell: c, Occupant: OccupantTerrain}
		}
		if id, ok := z.blockers[c]; ok && !contains(ignore, id) {
			return &OccupiedCellError{Cell: c, Occupant: id}
		}
	}
	return nil
}

// Place adds e at cell. Blocking entities need every footprint cell free.
func (z *Zone) Place(e *entity.Entity, cell entity.Cell) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("grid: place: entity without id")
	}
	if _, dup := z.entities[e.ID]; dup {
		return fmt.Errorf("grid: place: duplicate id %s", e.ID)
	}
	r := entity.RectAt(cell, e.Size)
	if e.Stored == nil {
		if e.Blocks {
			if err := z.check(r, nil); err != nil {
				return err
			}
		} else if !z.InBounds(r) {
			return &OccupiedCellError{Cell: cell, Occupant: OccupantBounds}
		}
	}
	e.Pos = cell
	e.Zone = z.ID
	z.entities[e.ID] = e
	z.index(e)
	return nil
}

// Remove drops id from the zone and returns it.
func (z *Zone) Remove(id string) (*entity.Entity, bool) {
	e, ok := z.entities[id]
	if !ok {
		return nil, false
	}
	z.unindex(e)
	delete(z.entities, id)
	return e, true
}

// Move relocates a single entity.
func (z *Zone) Move(id string, to entity.Cell) error {
	return z.MoveGroup([]Move{{ID: id, To: to}})
}

type Move struct {
	ID string
	To entity.Cell
}

// MoveGroup relocates several entities at once. Members may move into cells
// vacated by other members. On error nothing changes.
func (z *Zone) MoveGroup(moves []Move) error {
	ents := make([]*entity.Entity, len(moves))
	for i, m := range moves {
		e, ok := z.entities[m.ID]
		if !ok {
			return fmt.Errorf("grid: move: unknown entity %s", m.ID)
		}
		ents[i] = e
	}
	for _, e := range ents {
		z.unindex(e)
	}
	claimed := map[entity.Cell]string{}
	var err error
	for i, m := range moves {
		e := ents[i]
		r := entity.RectAt(m.To, e.Size)
		if !e.Blocking() {
			if e.Stored == nil && !z.InBounds(r) {
				err = &OccupiedCellError{Cell: m.To, Occupant: OccupantBounds}
				break
			}
			continue
		}
		if err = z.check(r, nil); err != nil {
			break
		}
		for _, c := range r.Cells() {
			if other, dup := claimed[c]; dup {
				err = &OccupiedCellError{Cell: c, Occupant: other}
				break
			}
			claimed[c] = e.ID
		}
		if err != nil {
			break
		}
	}
	if err == nil {
		for i, m := range moves {
			ents[i].Pos = m.To
		}
	}
	for _, e := range ents {
		z.index(e)
	}
	return err
}

// SetStored hands id to a container. The entity stops occupying cells and is
// repositioned at pos for display.
func (z *Zone) SetStored(id string, st *entity.Storage, pos entity.Cell) error {
	e, ok := z.entities[id]
	if !ok {
		return fmt.Errorf("grid: store: unknown entity %s", id)
	}
	z.unindex(e)
	e.Stored = st
	e.Pos = pos
	z.index(e)
	return nil
}

// Unstore releases a stored entity back onto the grid at cell.
func (z *Zone) Unstore(id string, cell entity.Cell) error {
	e, ok := z.entities[id]
	if !ok {
		return fmt.Errorf("grid: unstore: unknown entity %s", id)
	}
	if e.Stored == nil {
		return nil
	}
	r := entity.RectAt(cell, e.Size)
	if e.Blocks {
		if err := z.check(r, nil); err != nil {
			return err
		}
	} else if !z.InBounds(r) {
		return &OccupiedCellError{Cell: cell, Occupant: OccupantBounds}
	}
	e.Stored = nil
	e.Pos = cell
	z.index(e)
	return nil
}

// Stored returns the entities held by container in deposit order.
func (z *Zone) Stored(container *entity.Entity) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(container.Contents))
	for _, id := range container.Contents {
		if e, ok := z.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (z *Zone) index(e *entity.Entity) {
	if e.Stored != nil {
		return
	}
	for _, c := range e.Rect().Cells() {
		if e.Blocks {
			z.blockers[c] = e.ID
			continue
		}
		ids := append(z.overlays[c], e.ID)
		sort.Strings(ids)
		z.overlays[c] = ids
	}
}

func (z *Zone) unindex(e *entity.Entity) {
	if e.Stored != nil {
		return
	}
	for _, c := range e.Rect().Cells() {
		if e.Blocks {
			if z.blockers[c] == e.ID {
				delete(z.blockers, c)
			}
			continue
		}
		ids := z.overlays[c]
		for i, id := range ids {
			if id == e.ID {
				ids = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(z.overlays, c)
		} else {
			z.overlays[c] = ids
		}
	}
}

func contains(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}
