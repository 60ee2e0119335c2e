package skills

import (
	"math"
	"sort"
	"strings"
)

// Learning rates per ten ticks of work.
const (
	SpecificRate  = 0.002
	PrimaryRate   = 0.001
	SecondaryRate = 0.0005
	ForgetRate    = 0.0001
)

// Set holds learned totals. The effective level of a skill is its learned
// total minus the shared forgetting accumulator, clamped to [0,1].
type Set struct {
	Applied   map[string]float64 `json:"applied,omitempty"`
	Specific  map[string]float64 `json:"specific,omitempty"`
	Forgotten float64            `json:"forgotten"`
}

// Key normalizes skill and good type names the way catalog data is keyed.
func Key(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func (s *Set) total(m map[string]float64, key string) float64 {
	v, ok := m[key]
	if !ok || v < s.Forgotten {
		return s.Forgotten
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AppliedValue returns the effective level of an applied skill.
func (s *Set) AppliedValue(skill string) float64 {
	if s == nil {
		return 0
	}
	return clamp01(s.total(s.Applied, Key(skill)) - s.Forgotten)
}

// SpecificValue returns the effective level of the good-specific skill.
func (s *Set) SpecificValue(good string) float64 {
	if s == nil {
		return 0
	}
	return clamp01(s.total(s.Specific, Key(good)) - s.Forgotten)
}

type Exercise struct {
	Duration int

	Primary     string
	Specific    string
	Secondary   []string
	Destabilize []string
	// LearnDestabilizers makes destabilizer skills learn at the secondary rate.
	LearnDestabilizers bool

	// RelevantTransferable are the transferable skills linked to Primary.
	RelevantTransferable []string
	Transferable         []string
}

type Gain struct {
	Specific   float64            `json:"specific"`
	Primary    float64            `json:"primary"`
	Secondary  map[string]float64 `json:"secondary,omitempty"`
	Forgetting float64            `json:"forgetting"`
}

// LearningFactor scales every learning increment.
func LearningFactor(a Abilities) float64 {
	return (float64(a.INT)*0.8 + float64(a.CON)*0.2) / 20
}

// ForgettingStep is the pressure added per ten ticks of elapsed work or idleness.
func ForgettingStep(a Abilities) float64 {
	return ForgetRate * (1 - float64(a.WIS)/20*0.25)
}

func accumulate(steps int, start, rate float64) float64 {
	acc := 0.0
	for i := 0; i < steps; i++ {
		acc += rate * (1 - start - acc)
	}
	return acc
}

// Learn applies one completed task of ex.Duration ticks to the set.
// a must be the effective abilities (age bonus included).
func (s *Set) Learn(a Abilities, ex Exercise) Gain {
	var g Gain
	steps := ex.Duration / 10
	if steps <= 0 {
		return g
	}
	if s.Applied == nil {
		s.Applied = map[string]float64{}
	}
	if s.Specific == nil {
		s.Specific = map[string]float64{}
	}
	af := LearningFactor(a)

	primaryKey := Key(ex.Primary)
	specificKey := Key(ex.Specific)

	primaryTotal := s.total(s.Applied, primaryKey)
	specificTotal := s.total(s.Specific, specificKey)
	primaryValue := clamp01(primaryTotal - s.Forgotten)
	specificValue := clamp01(specificTotal - s.Forgotten)

	transferFactor := 1 + float64(overlap(ex.RelevantTransferable, ex.Transferable))/4

	if specificKey != "" {
		g.Specific = accumulate(steps, specificValue, SpecificRate*af*(1+primaryValue))
		s.Specific[specificKey] = specificTotal + g.Specific
	}
	if primaryKey != "" {
		g.Primary = accumulate(steps, primaryValue, PrimaryRate*af*transferFactor)
		s.Applied[primaryKey] = primaryTotal + g.Primary
	}

	secondary := append([]string(nil), ex.Secondary...)
	if ex.LearnDestabilizers {
		secondary = append(secondary, ex.Destabilize...)
	}
	for _, sk := range secondary {
		k := Key(sk)
		if k == "" || k == primaryKey {
			continue
		}
		if _, done := g.Secondary[k]; done {
			continue
		}
		total := s.total(s.Applied, k)
		gain := accumulate(steps, clamp01(total-s.Forgotten), SecondaryRate*af)
		if g.Secondary == nil {
			g.Secondary = map[string]float64{}
		}
		g.Secondary[k] = gain
		s.Applied[k] = total + gain
	}

	g.Forgetting = float64(steps) * ForgettingStep(a)
	s.forget(g.Forgetting)
	return g
}

// Decay adds idle forgetting pressure.
func (s *Set) Decay(a Abilities, steps int) float64 {
	if steps <= 0 {
		return 0
	}
	d := float64(steps) * ForgettingStep(a)
	s.forget(d)
	return d
}

func (s *Set) forget(d float64) {
	s.Forgotten += d
	for k, v := range s.Applied {
		s.Applied[k] = math.Max(v, s.Forgotten)
	}
	for k, v := range s.Specific {
		s.Specific[k] = math.Max(v, s.Forgotten)
	}
}

// Snapshot lists effective levels sorted by kind and key.
func (s *Set) Snapshot() []Level {
	if s == nil {
		return nil
	}
	out := make([]Level, 0, len(s.Applied)+len(s.Specific))
	for k := range s.Applied {
		out = append(out, Level{Kind: "applied", Key: k, Value: s.AppliedValue(k)})
	}
	for k := range s.Specific {
		out = append(out, Level{Kind: "specific", Key: k, Value: s.SpecificValue(k)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Key < out[j].Key
	})
	return out
}

type Level struct {
	Kind  string  `json:"kind"`
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

func overlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[Key(s)] = struct{}{}
	}
	n := 0
	seen := map[string]struct{}{}
	for _, s := range a {
		k := Key(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			n++
		}
	}
	return n
}

// MatchingTransferable counts recipe transferable skills the monster has.
func MatchingTransferable(recipe, monster []string) int { return overlap(recipe, monster) }
