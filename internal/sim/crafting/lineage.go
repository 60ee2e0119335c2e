package crafting

type RawMaterial struct {
	GoodType  string  `json:"good_type"`
	BaseValue float64 `json:"base_value"`
	Density   float64 `json:"density"`
}

// Lineage records the raw materials an item was made from.
type Lineage struct {
	Raw     []RawMaterial `json:"raw,omitempty"`
	Depth   int           `json:"depth"`
	Refined bool          `json:"refined,omitempty"`
}

// RawLineage is the lineage of a freshly gathered raw material.
func RawLineage(goodType string, base, density float64) Lineage {
	return Lineage{Raw: []RawMaterial{{GoodType: goodType, BaseValue: base, Density: density}}}
}

// Combine builds an output lineage from its inputs' lineages.
func Combine(inputs []Lineage) Lineage {
	out := Lineage{Refined: true}
	maxRefined := -1
	for _, in := range inputs {
		out.Raw = append(out.Raw, in.Raw...)
		if in.Refined && in.Depth > maxRefined {
			maxRefined = in.Depth
		}
	}
	if maxRefined >= 0 {
		out.Depth = maxRefined + 1
	}
	return out
}

func (l Lineage) BaseValues() []float64 {
	out := make([]float64, len(l.Raw))
	for i, r := range l.Raw {
		out[i] = r.BaseValue
	}
	return out
}

func (l Lineage) AvgDensity() float64 {
	if len(l.Raw) == 0 {
		return 0
	}
	s := 0.0
	for _, r := range l.Raw {
		s += r.Density
	}
	return s / float64(len(l.Raw))
}

func (l Lineage) Clone() Lineage {
	l.Raw = append([]RawMaterial(nil), l.Raw...)
	return l
}
