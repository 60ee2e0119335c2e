package crafting

import (
	"math"
	"sort"
)

const (
	ToolMaxDurability     = 100
	WorkshopMaxDurability = 1000
)

// Duration is the effective task length in ticks.
func Duration(base, dex, intel int) int {
	if base <= 0 {
		base = 60
	}
	if dex < 1 {
		dex = 1
	}
	d := float64(base) * (10 / float64(dex)) * (30 / float64(20+intel))
	if d < 1 {
		return 1
	}
	return int(d)
}

// NormalizeQuality treats values above 5 as percentages.
func NormalizeQuality(q float64) float64 {
	if q > 5 {
		return q / 100
	}
	if q < 0 || math.IsNaN(q) {
		return 0
	}
	return q
}

// RawValue prices a raw material at quality q.
func RawValue(base, q float64) int {
	return int(base * math.Pow(q+0.5, 0.5))
}

// RefinedValue prices a refined good from the base values of its lineage.
func RefinedValue(bases []float64, q float64, depth int) int {
	sum := 0.0
	for _, b := range bases {
		sum += b
	}
	return int(math.Round(sum * math.Pow(q+0.5, 0.5+0.5*float64(depth))))
}

// CharismaFactor scales refined value by the crafter's CHA.
func CharismaFactor(cha int) float64 {
	return (10 + float64(cha)/2) / 10
}

// Weight of one unit. Raw goods weigh density*volume, refined goods use the
// average density of their lineage, anything else weighs its volume.
func Weight(raw bool, density, volume float64, lin Lineage) int {
	var w float64
	switch {
	case raw:
		w = density * volume
	case len(lin.Raw) > 0:
		w = lin.AvgDensity() * volume
	default:
		w = volume
	}
	r := int(math.Round(w))
	if r < 1 {
		return 1
	}
	return r
}

// CarryoverTags collects, for each required group i, the carryover tags that
// the input matched to group i actually has.
func CarryoverTags(carry [][]string, matched [][]string) []string {
	seen := map[string]bool{}
	var out []string
	for i, group := range carry {
		if i >= len(matched) {
			break
		}
		have := map[string]bool{}
		for _, t := range matched[i] {
			have[t] = true
		}
		for _, t := range group {
			if have[t] && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// OutputPosition anchors an itemW x itemH output at the bottom-right interior
// cell of a workshop whose footprint starts at (x, y) and spans w x h.
func OutputPosition(x, y, w, h, itemW, itemH int) (int, int) {
	return x + w - 2 - (itemW - 1), y + h - 2 - (itemH - 1)
}

// Wear reduces tool durability by the produced load. broken means the tool is
// used up and must be destroyed.
func Wear(durability, weight, quantity int) (left int, broken bool) {
	left = durability - weight*quantity
	return left, left <= 0
}

func avg(vs []float64, def float64) float64 {
	if len(vs) == 0 {
		return def
	}
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}

// dropLowest sorts a copy of vs and removes the n smallest values.
func dropLowest(vs []float64, n int) []float64 {
	c := append([]float64(nil), vs...)
	sort.Float64s(c)
	if n >= len(c) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return c[n:]
}
