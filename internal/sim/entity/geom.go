package entity

import "fmt"

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) Add(dx, dy int) Cell { return Cell{X: c.X + dx, Y: c.Y + dy} }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

var (
	DefaultItemSize    = Size{W: 2, H: 1}
	DefaultMonsterSize = Size{W: 1, H: 1}
)

func (s Size) OrDefault(def Size) Size {
	if s.W <= 0 || s.H <= 0 {
		return def
	}
	return s
}

// Rect is a cell-aligned footprint. W and H are at least 1 for placed entities.
type Rect struct {
	X, Y, W, H int
}

func RectAt(c Cell, s Size) Rect { return Rect{X: c.X, Y: c.Y, W: s.W, H: s.H} }

func (r Rect) Shift(dx, dy int) Rect { return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H} }

func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

func (r Rect) Contains(c Cell) bool {
	return c.X >= r.X && c.X < r.X+r.W && c.Y >= r.Y && c.Y < r.Y+r.H
}

// Within reports whether r lies entirely inside o.
func (r Rect) Within(o Rect) bool {
	return r.X >= o.X && r.Y >= o.Y && r.X+r.W <= o.X+o.W && r.Y+r.H <= o.Y+o.H
}

// Touches reports whether r overlaps o or shares an edge with it.
func (r Rect) Touches(o Rect) bool {
	if r.Overlaps(o) {
		return true
	}
	for _, d := range AllDirs {
		dx, dy := d.Delta()
		if r.Shift(dx, dy).Overlaps(o) {
			return true
		}
	}
	return false
}

// Cells returns the covered cells in row-major order.
func (r Rect) Cells() []Cell {
	out := make([]Cell, 0, r.W*r.H)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			out = append(out, Cell{X: x, Y: y})
		}
	}
	return out
}

func (r Rect) Origin() Cell { return Cell{X: r.X, Y: r.Y} }

type Dir string

const (
	DirUp    Dir = "up"
	DirDown  Dir = "down"
	DirLeft  Dir = "left"
	DirRight Dir = "right"
)

var AllDirs = []Dir{DirUp, DirDown, DirLeft, DirRight}

func (d Dir) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// ParseDir accepts both the long names and the compass letters N/S/E/W.
func ParseDir(s string) (Dir, bool) {
	switch s {
	case "up", "UP", "N", "n", "north":
		return DirUp, true
	case "down", "DOWN", "S", "s", "south":
		return DirDown, true
	case "left", "LEFT", "W", "w", "west":
		return DirLeft, true
	case "right", "RIGHT", "E", "e", "east":
		return DirRight, true
	default:
		return "", false
	}
}
