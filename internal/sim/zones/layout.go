package zones

import (
	"hash/fnv"

	opensimplex "github.com/ojrac/opensimplex-go"

	"monsterworkshop.game/internal/sim/entity"
)

// Boundary returns the four terrain strips that close a zone.
func (z ZoneSpec) Boundary() []entity.Rect {
	return []entity.Rect{
		{X: 0, Y: 0, W: z.Width, H: 1},
		{X: 0, Y: z.Height - 1, W: z.Width, H: 1},
		{X: 0, Y: 1, W: 1, H: z.Height - 2},
		{X: z.Width - 1, Y: 1, W: 1, H: z.Height - 2},
	}
}

// Seeded is one noise-placed item.
type Seeded struct {
	GoodType string
	Cell     entity.Cell
	Quality  float64
}

// Seed evaluates the scatter and rock layers of the zone. Equal seeds give
// equal layouts. Each layer samples its own noise field; cells are visited in
// row-major order so Max keeps the top-left candidates.
func (z ZoneSpec) Seed(worldSeed int64) (items []Seeded, rocks []entity.Cell) {
	base := worldSeed ^ int64(hashID(z.ID))
	for i, s := range z.Scatter {
		noise := opensimplex.NewNormalized(base + int64(i) + 1)
		for _, c := range s.candidates(noise) {
			items = append(items, Seeded{GoodType: s.GoodType, Cell: c, Quality: s.Quality})
		}
	}
	if z.Rocks != nil {
		noise := opensimplex.NewNormalized(base - 1)
		rocks = z.Rocks.candidates(noise)
	}
	return items, rocks
}

func (s ScatterSpec) candidates(noise opensimplex.Noise) []entity.Cell {
	var out []entity.Cell
	for _, c := range s.Region.Rect().Cells() {
		if s.Max > 0 && len(out) >= s.Max {
			break
		}
		if octaveNoise(noise, float64(c.X), float64(c.Y), s.Octaves, s.Frequency, 0.5) > s.Threshold {
			out = append(out, c)
		}
	}
	return out
}

// octaveNoise layers several frequencies of normalized noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func hashID(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
