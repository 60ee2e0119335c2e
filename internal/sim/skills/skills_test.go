package skills

import (
	"math"
	"testing"
)

func avg() Abilities { return Abilities{STR: 10, DEX: 10, CON: 10, INT: 10, WIS: 10, CHA: 10} }

func TestLearnOrdersIncrements(t *testing.T) {
	var s Set
	g := s.Learn(avg(), Exercise{
		Duration:  120,
		Primary:   "Smithing",
		Specific:  "Iron Ingot",
		Secondary: []string{"Heat Control"},
	})
	if !(g.Specific > g.Primary && g.Primary > g.Secondary["heat_control"]) {
		t.Fatalf("expected specific > primary > secondary, got %+v", g)
	}
	if got := s.AppliedValue("smithing"); got <= 0 || got >= 1 {
		t.Fatalf("primary level out of range: %v", got)
	}
	if s.SpecificValue("IRON INGOT") <= 0 {
		t.Fatalf("specific lookup must be case-insensitive")
	}
}

func TestLearnScalesWithINT(t *testing.T) {
	dull := avg()
	dull.INT = 4
	bright := avg()
	bright.INT = 18

	var a, b Set
	ga := a.Learn(dull, Exercise{Duration: 100, Primary: "weaving"})
	gb := b.Learn(bright, Exercise{Duration: 100, Primary: "weaving"})
	if gb.Primary <= ga.Primary {
		t.Fatalf("INT 18 gain %v should exceed INT 4 gain %v", gb.Primary, ga.Primary)
	}
}

func TestShortTaskLearnsNothing(t *testing.T) {
	var s Set
	g := s.Learn(avg(), Exercise{Duration: 9, Primary: "weaving"})
	if g.Primary != 0 || g.Forgetting != 0 || s.Forgotten != 0 {
		t.Fatalf("expected no change for duration < 10, got %+v", g)
	}
}

func TestDestabilizersOptIn(t *testing.T) {
	ex := Exercise{Duration: 50, Primary: "brewing", Destabilize: []string{"Impatience"}}
	var off Set
	off.Learn(avg(), ex)
	if off.AppliedValue("impatience") != 0 {
		t.Fatalf("destabilizer learned without opt-in")
	}
	ex.LearnDestabilizers = true
	var on Set
	on.Learn(avg(), ex)
	if on.AppliedValue("impatience") <= 0 {
		t.Fatalf("destabilizer not learned with opt-in")
	}
}

func TestDecayReducesAndClamps(t *testing.T) {
	s := Set{Applied: map[string]float64{"weaving": 0.01}}
	before := s.AppliedValue("weaving")
	s.Decay(avg(), 10)
	after := s.AppliedValue("weaving")
	if !(after < before) {
		t.Fatalf("decay did not reduce level: %v -> %v", before, after)
	}
	s.Decay(avg(), 1_000_000)
	if v := s.AppliedValue("weaving"); v != 0 {
		t.Fatalf("level must clamp at 0, got %v", v)
	}
	if s.Applied["weaving"] < s.Forgotten {
		t.Fatalf("learned total dropped below forgotten")
	}
}

func TestWISSlowsForgetting(t *testing.T) {
	wise := avg()
	wise.WIS = 18
	foolish := avg()
	foolish.WIS = 3
	if !(ForgettingStep(wise) < ForgettingStep(foolish)) {
		t.Fatalf("higher WIS should forget slower")
	}
}

func TestLevelsStayBelowOne(t *testing.T) {
	var s Set
	for i := 0; i < 2000; i++ {
		s.Learn(avg(), Exercise{Duration: 1000, Primary: "p", Specific: "g"})
	}
	for _, l := range s.Snapshot() {
		if l.Value < 0 || l.Value > 1 || math.IsNaN(l.Value) {
			t.Fatalf("level out of bounds: %+v", l)
		}
	}
}

func TestAgeBonus(t *testing.T) {
	cases := map[int]int{0: 0, 29: 0, 30: 1, 59: 1, 60: 2, 400: 2}
	for days, want := range cases {
		if got := AgeBonus(days); got != want {
			t.Fatalf("AgeBonus(%d)=%d want %d", days, got, want)
		}
	}
}
