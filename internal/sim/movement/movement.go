package movement

import (
	"errors"
	"fmt"

	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/grid"
)

// Block reasons.
const (
	ReasonWall     = "wall"
	ReasonTerrain  = "terrain"
	ReasonMonster  = "monster"
	ReasonWagon    = "wagon"
	ReasonTooHeavy = "too_heavy"
	ReasonRejected = "rejected"
	ReasonBusy     = "busy"
)

type BlockedError struct {
	Reason string
	By     string
	Detail string
}

func (e *BlockedError) Error() string {
	msg := "blocked: " + e.Reason
	if e.By != "" {
		msg += " by " + e.By
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

type AlreadyHitchedError struct {
	WagonID   string
	HitchedBy string
}

func (e *AlreadyHitchedError) Error() string {
	return fmt.Sprintf("wagon %s is already hitched by %s", e.WagonID, e.HitchedBy)
}

var (
	ErrNotHitched  = errors.New("monster has no hitched wagon")
	ErrNotAdjacent = errors.New("wagon is not adjacent")
	ErrNotWagon    = errors.New("target is not a wagon")
)

// Rules lets the world decide how receivers treat pushed items.
type Rules interface {
	// Capacity is the heaviest chain the mover can push.
	Capacity(mover *entity.Entity) int
	// Accept returns the storage role for item landing at dest inside
	// receiver, or an error when the receiver refuses it.
	Accept(z *grid.Zone, receiver, item *entity.Entity, dest entity.Cell) (role string, err error)
}

type Absorption struct {
	ItemID     string
	ReceiverID string
	Role       string
	At         entity.Cell
	From       entity.Cell
}

// Plan is a validated move. Apply executes it.
type Plan struct {
	MoverID string
	Dir     entity.Dir
	From    entity.Cell
	To      entity.Cell
	// Moves lists pushed entities followed by the mover and a trailing wagon.
	Moves  []grid.Move
	Absorb []Absorption
	// Pushed lists the ids moved or absorbed by the chain, in visit order.
	Pushed []string
	Weight int
}

// Resolve computes the effect of mover stepping one cell in dir.
func Resolve(z *grid.Zone, mover *entity.Entity, dir entity.Dir, rules Rules) (*Plan, error) {
	if mover.Monster != nil && mover.Monster.Busy() {
		return nil, &BlockedError{Reason: ReasonBusy}
	}
	dx, dy := dir.Delta()
	if dx == 0 && dy == 0 {
		return nil, &BlockedError{Reason: ReasonWall, Detail: "no direction"}
	}
	dest := mover.Rect().Shift(dx, dy)
	if err := checkCells(z, dest); err != nil {
		return nil, err
	}

	plan := &Plan{MoverID: mover.ID, Dir: dir, From: mover.Pos, To: dest.Origin()}
	visited := map[string]bool{mover.ID: true}
	queue := blockersExcept(z, dest, visited)
	for _, b := range queue {
		visited[b.ID] = true
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		switch {
		case b.Kind == entity.KindMonster:
			return nil, &BlockedError{Reason: ReasonMonster, By: b.ID}
		case b.Kind == entity.KindTerrain:
			return nil, &BlockedError{Reason: ReasonTerrain, By: b.ID}
		case b.Kind == entity.KindWagon:
			if b.Wagon == nil || b.Wagon.HitchedBy != mover.ID {
				return nil, &BlockedError{Reason: ReasonWagon, By: b.ID}
			}
		case b.Kind == entity.KindItem:
		default:
			return nil, &BlockedError{Reason: ReasonTerrain, By: b.ID}
		}

		bDest := b.Rect().Shift(dx, dy)
		if b.Kind == entity.KindItem {
			plan.Weight += itemWeight(b)
			if recv := findReceiver(z, b, bDest, visited); recv != nil {
				role, err := rules.Accept(z, recv, b, bDest.Origin())
				if err != nil {
					return nil, &BlockedError{Reason: ReasonRejected, By: recv.ID, Detail: err.Error()}
				}
				plan.Absorb = append(plan.Absorb, Absorption{ItemID: b.ID, ReceiverID: recv.ID, Role: role, At: bDest.Origin(), From: b.Pos})
				plan.Pushed = append(plan.Pushed, b.ID)
				continue
			}
		}
		if err := checkCells(z, bDest); err != nil {
			return nil, err
		}
		next := blockersExcept(z, bDest, visited)
		for _, n := range next {
			visited[n.ID] = true
		}
		queue = append(queue, next...)
		plan.Moves = append(plan.Moves, grid.Move{ID: b.ID, To: bDest.Origin()})
		plan.Pushed = append(plan.Pushed, b.ID)
	}

	if limit := rules.Capacity(mover); plan.Weight > limit {
		return nil, &BlockedError{Reason: ReasonTooHeavy, Detail: fmt.Sprintf("weight %d exceeds %d", plan.Weight, limit)}
	}
	plan.Moves = append(plan.Moves, grid.Move{ID: mover.ID, To: plan.To})

	if m := mover.Monster; m != nil && m.HitchedWagonID != "" && !visited[m.HitchedWagonID] {
		if w, ok := z.Get(m.HitchedWagonID); ok && w.Stored == nil {
			to := trailCell(mover.Pos, dir, w)
			if !z.Free(entity.RectAt(to, w.Size), mover.ID, w.ID) || entity.RectAt(to, w.Size).Overlaps(entity.RectAt(plan.To, mover.Size)) {
				return nil, &BlockedError{Reason: ReasonWagon, By: w.ID, Detail: "no room to trail"}
			}
			plan.Moves = append(plan.Moves, grid.Move{ID: w.ID, To: to})
		}
	}
	return plan, nil
}

// Apply executes a plan: absorptions first, then one atomic group move.
func Apply(z *grid.Zone, p *Plan) error {
	done := make([]Absorption, 0, len(p.Absorb))
	for _, a := range p.Absorb {
		recv, ok := z.Get(a.ReceiverID)
		if !ok {
			rollback(z, done)
			return fmt.Errorf("movement: receiver %s vanished", a.ReceiverID)
		}
		st := &entity.Storage{ContainerID: recv.ID, Role: a.Role, Offset: entity.Cell{X: a.At.X - recv.Pos.X, Y: a.At.Y - recv.Pos.Y}}
		if err := z.SetStored(a.ItemID, st, a.At); err != nil {
			rollback(z, done)
			return err
		}
		recv.Contents = append(recv.Contents, a.ItemID)
		done = append(done, a)
	}
	if err := z.MoveGroup(p.Moves); err != nil {
		rollback(z, done)
		return err
	}
	if mover, ok := z.Get(p.MoverID); ok {
		mover.Facing = p.Dir
	}
	return nil
}

func rollback(z *grid.Zone, done []Absorption) {
	for i := len(done) - 1; i >= 0; i-- {
		a := done[i]
		if recv, ok := z.Get(a.ReceiverID); ok {
			recv.RemoveContent(a.ItemID)
		}
		_ = z.Unstore(a.ItemID, a.From)
	}
}

func checkCells(z *grid.Zone, r entity.Rect) error {
	if !z.InBounds(r) {
		return &BlockedError{Reason: ReasonWall}
	}
	for _, c := range r.Cells() {
		if z.Terrain(c) {
			return &BlockedError{Reason: ReasonTerrain, Detail: c.String()}
		}
	}
	return nil
}

func blockersExcept(z *grid.Zone, r entity.Rect, skip map[string]bool) []*entity.Entity {
	var out []*entity.Entity
	for _, b := range z.BlockersIn(r) {
		if !skip[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// findReceiver returns the container that would absorb item at dest: a wagon
// in the way, a workshop whose interior holds dest, or a dispenser or delivery
// under it.
func findReceiver(z *grid.Zone, item *entity.Entity, dest entity.Rect, visited map[string]bool) *entity.Entity {
	for _, b := range z.BlockersIn(dest) {
		if b.ID != item.ID && b.Kind == entity.KindWagon && !visited[b.ID] {
			return b
		}
	}
	for _, c := range dest.Cells() {
		for _, o := range z.Overlays(c) {
			switch o.Kind {
			case entity.KindWorkshop, entity.KindGatheringSpot:
				if dest.Within(o.Interior()) {
					return o
				}
			case entity.KindDispenser, entity.KindDelivery:
				return o
			}
		}
	}
	return nil
}

func itemWeight(e *entity.Entity) int {
	if e.Item == nil {
		return 0
	}
	q := e.Item.Quantity
	if q < 1 {
		q = 1
	}
	return e.Item.Weight * q
}

// trailCell places a trailing wagon so that it ends on the cell the mover
// vacated, on the side opposite to dir.
func trailCell(from entity.Cell, dir entity.Dir, wagon *entity.Entity) entity.Cell {
	switch dir {
	case entity.DirRight:
		return entity.Cell{X: from.X - (wagon.Size.W - 1), Y: from.Y}
	case entity.DirDown:
		return entity.Cell{X: from.X, Y: from.Y - (wagon.Size.H - 1)}
	default:
		return from
	}
}

// Hitch attaches wagonID to the monster. The wagon must be adjacent.
func Hitch(z *grid.Zone, mover *entity.Entity, wagonID string) error {
	w, ok := z.Get(wagonID)
	if !ok || w.Kind != entity.KindWagon || w.Wagon == nil {
		return ErrNotWagon
	}
	m := mover.Monster
	if m == nil {
		return fmt.Errorf("movement: %s cannot hitch", mover.ID)
	}
	if w.Wagon.HitchedBy == mover.ID && m.HitchedWagonID == w.ID {
		return nil
	}
	if w.Wagon.HitchedBy != "" {
		return &AlreadyHitchedError{WagonID: w.ID, HitchedBy: w.Wagon.HitchedBy}
	}
	if m.HitchedWagonID != "" {
		return &AlreadyHitchedError{WagonID: m.HitchedWagonID, HitchedBy: mover.ID}
	}
	if !mover.Rect().Touches(w.Rect()) {
		return ErrNotAdjacent
	}
	w.Wagon.HitchedBy = mover.ID
	m.HitchedWagonID = w.ID
	return nil
}

// Unhitch clears both sides of the link. A dangling link on the monster is
// cleared as well.
func Unhitch(z *grid.Zone, mover *entity.Entity) error {
	m := mover.Monster
	if m == nil || m.HitchedWagonID == "" {
		return ErrNotHitched
	}
	if w, ok := z.Get(m.HitchedWagonID); ok && w.Wagon != nil && w.Wagon.HitchedBy == mover.ID {
		w.Wagon.HitchedBy = ""
	}
	m.HitchedWagonID = ""
	return nil
}
