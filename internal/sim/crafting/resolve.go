package crafting

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// NewRand returns the generator for one task completion. Equal arguments give
// equal draw sequences.
func NewRand(worldSeed int64, tick uint64, workshopID, crafterID, recipe string) *rand.Rand {
	h := sha256.New()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(worldSeed))
	h.Write(b[:])
	binary.LittleEndian.PutUint64(b[:], tick)
	h.Write(b[:])
	for _, s := range []string{workshopID, crafterID, recipe} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[0:8]), binary.LittleEndian.Uint64(sum[8:16])))
}

type QuantityParams struct {
	Base  int
	Fixed bool
	// Relevant is the crafter's score in the recipe's relevant ability.
	Relevant     int
	Primary      float64
	Specific     float64
	ToolAvg      float64
	SecondaryAvg float64
	STR, DEX     int
}

// Quantity rolls the number of units produced.
func Quantity(r *rand.Rand, p QuantityParams) int {
	base := p.Base
	if base < 1 {
		base = 1
	}
	if p.Fixed {
		return base
	}
	mu := float64(base)
	sigma := mu * 0.05 * float64(p.Relevant) * p.Primary * p.Specific * p.ToolAvg * p.SecondaryAvg
	res := math.Abs(r.NormFloat64())*sigma + mu
	res += math.RoundToEven(res*float64(p.STR-10)/10) + math.RoundToEven(res*float64(p.DEX-10)/10*0.25)
	n := int(math.Round(res))
	if n < 1 {
		return 1
	}
	return n
}

type ToolUse struct {
	Quality float64
	Weight  int
}

type QualityParams struct {
	HasQuality bool

	Inputs       []float64
	Tools        []ToolUse
	Secondary    []float64
	Destabilizer []float64

	Primary    float64
	Specific   float64
	Relevant   int
	Difficulty int
	// Matching is the number of recipe transferable skills the crafter has.
	Matching int
	WIS, STR int
}

func (p QualityParams) inputAvg() float64 { return avg(p.Inputs, 1) }

func (p QualityParams) secondaryAvg() float64 {
	return avg(dropLowest(p.Secondary, p.Matching), 1)
}

func (p QualityParams) toolAvg() float64 {
	var expanded []float64
	for _, t := range p.Tools {
		w := t.Weight
		if w < 1 {
			w = 1
		}
		for i := 0; i < w; i++ {
			expanded = append(expanded, t.Quality)
		}
	}
	return avg(dropLowest(expanded, 2*p.Matching), 1)
}

// Quality rolls the output quality.
func Quality(r *rand.Rand, p QualityParams) float64 {
	in, tool := p.inputAvg(), p.toolAvg()
	if !p.HasQuality {
		return (in + tool) / 2
	}
	diff := p.Difficulty
	if diff < 1 {
		diff = 1
	}
	mu := in*p.Primary*p.secondaryAvg() + tool*p.Specific*math.Min(1.2, float64(p.Relevant)/float64(diff))
	sigma := 0.1 + avg(p.Destabilizer, 0)/10
	q := math.Max(0, r.NormFloat64()*sigma+mu)
	q += (float64(p.WIS) + float64(p.STR)*0.25) / 25 * math.Max(1-q, 0) * 0.25
	return q
}

// Input is one consumed item as seen by the resolver.
type Input struct {
	Quality float64
	Lineage Lineage
	// Tags are the good type tags plus the item's carried tags.
	Tags []string
}

type Output struct {
	GoodType  string
	Raw       bool
	BaseValue float64
	Density   float64
	Volume    float64
	Carryover [][]string
}

type Request struct {
	WorldSeed  int64
	Tick       uint64
	WorkshopID string
	CrafterID  string
	Recipe     string

	Output Output
	// Inputs are ordered by the recipe's required groups.
	Inputs []Input

	Quantity QuantityParams
	Quality  QualityParams
	CHA      int
}

type Outcome struct {
	Quantity int
	Quality  float64
	Value    int
	Weight   int
	Lineage  Lineage
	Tags     []string
}

// Resolve computes the product of a completed task. Quantity is drawn before
// quality from the same generator.
func Resolve(req Request) Outcome {
	r := NewRand(req.WorldSeed, req.Tick, req.WorkshopID, req.CrafterID, req.Recipe)

	qp := req.Quality
	qp.Inputs = make([]float64, len(req.Inputs))
	lins := make([]Lineage, len(req.Inputs))
	tags := make([][]string, len(req.Inputs))
	for i, in := range req.Inputs {
		qp.Inputs[i] = NormalizeQuality(in.Quality)
		lins[i] = in.Lineage
		tags[i] = in.Tags
	}
	qp.Tools = append([]ToolUse(nil), qp.Tools...)
	for i := range qp.Tools {
		qp.Tools[i].Quality = NormalizeQuality(qp.Tools[i].Quality)
	}

	qtyp := req.Quantity
	if qtyp.ToolAvg == 0 {
		qtyp.ToolAvg = qp.toolAvg()
	}
	if qtyp.SecondaryAvg == 0 {
		qtyp.SecondaryAvg = qp.secondaryAvg()
	}

	var out Outcome
	out.Quantity = Quantity(r, qtyp)
	out.Quality = Quality(r, qp)

	if req.Output.Raw && len(req.Inputs) == 0 {
		out.Lineage = RawLineage(req.Output.GoodType, req.Output.BaseValue, req.Output.Density)
		out.Value = RawValue(req.Output.BaseValue, out.Quality)
	} else {
		out.Lineage = Combine(lins)
		v := float64(RefinedValue(out.Lineage.BaseValues(), out.Quality, out.Lineage.Depth)) * CharismaFactor(req.CHA)
		out.Value = int(math.Round(v))
	}
	out.Weight = Weight(req.Output.Raw, req.Output.Density, req.Output.Volume, out.Lineage)
	out.Tags = CarryoverTags(req.Output.Carryover, tags)
	return out
}
