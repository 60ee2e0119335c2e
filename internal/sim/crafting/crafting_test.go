package crafting

import (
	"math"
	"reflect"
	"testing"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		base, dex, intel, want int
	}{
		{60, 10, 10, 60},
		{60, 18, 10, 33},
		{60, 10, 18, 47},
		{100, 8, 8, 133},
		{1, 18, 18, 1},
	}
	for _, c := range cases {
		if got := Duration(c.base, c.dex, c.intel); got != c.want {
			t.Fatalf("Duration(%d,%d,%d)=%d want %d", c.base, c.dex, c.intel, got, c.want)
		}
	}
}

func TestValueByDepth(t *testing.T) {
	bases := []float64{4}
	want := []int{5, 6, 7}
	for depth, w := range want {
		if got := RefinedValue(bases, 1.0, depth); got != w {
			t.Fatalf("depth %d: got %d want %d", depth, got, w)
		}
	}
	if got := RawValue(4, 1.0); got != 4 {
		t.Fatalf("raw value: got %d want 4", got)
	}
	if got := RefinedValue([]float64{3, 5}, 0.5, 1); got != 8 {
		t.Fatalf("sum of bases: got %d want 8", got)
	}

	// Bases 5 and 3 at quality 0.8: 8 * 1.3^(0.5+0.5*depth).
	for _, tc := range []struct {
		depth int
		want  int
	}{
		{0, 9},
		{1, 10},
		{2, 12},
	} {
		if got := RefinedValue([]float64{5, 3}, 0.8, tc.depth); got != tc.want {
			t.Fatalf("bases 5+3 q=0.8 depth %d: got %d want %d", tc.depth, got, tc.want)
		}
	}
}

func TestCharismaFactor(t *testing.T) {
	if f := CharismaFactor(10); math.Abs(f-1.5) > 1e-9 {
		t.Fatalf("CHA 10: %v", f)
	}
	if CharismaFactor(18) <= CharismaFactor(8) {
		t.Fatalf("CHA factor must grow with CHA")
	}
}

func TestQuantityStrengthBonus(t *testing.T) {
	p := QuantityParams{Base: 2, Relevant: 10, Primary: 0.3, Specific: 0.2, ToolAvg: 1, SecondaryAvg: 1, DEX: 10}
	weak, strong := p, p
	weak.STR = 10
	strong.STR = 16
	for seed := uint64(0); seed < 20; seed++ {
		a := Quantity(NewRand(int64(seed), 7, "W1", "M1", "cloth"), weak)
		b := Quantity(NewRand(int64(seed), 7, "W1", "M1", "cloth"), strong)
		if b <= a {
			t.Fatalf("seed %d: STR16 gave %d, STR10 gave %d", seed, b, a)
		}
	}
}

func TestQuantityFixed(t *testing.T) {
	r := NewRand(1, 1, "W", "M", "shears")
	if got := Quantity(r, QuantityParams{Base: 1, Fixed: true, STR: 18, DEX: 18}); got != 1 {
		t.Fatalf("fixed quantity changed: %d", got)
	}
}

func TestQualityWithoutRoll(t *testing.T) {
	p := QualityParams{Inputs: []float64{0.4, 0.6}, Tools: []ToolUse{{Quality: 1, Weight: 1}}}
	if got := Quality(NewRand(0, 0, "", "", ""), p); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("got %v want 0.75", got)
	}
}

func TestQualityNeverNegative(t *testing.T) {
	p := QualityParams{HasQuality: true, Destabilizer: []float64{1, 1}, Difficulty: 20}
	r := NewRand(3, 3, "W", "M", "x")
	for i := 0; i < 500; i++ {
		if q := Quality(r, p); q < 0 {
			t.Fatalf("negative quality %v", q)
		}
	}
}

func TestSecondaryDropsLowest(t *testing.T) {
	p := QualityParams{Secondary: []float64{0.1, 0.5, 0.9}, Matching: 1}
	if got := p.secondaryAvg(); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("secondaryAvg=%v", got)
	}
	p = QualityParams{Tools: []ToolUse{{Quality: 0.2, Weight: 2}, {Quality: 0.8, Weight: 1}}, Matching: 1}
	if got := p.toolAvg(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("toolAvg=%v", got)
	}
	p.Matching = 3
	if got := p.toolAvg(); got != 1 {
		t.Fatalf("toolAvg with everything dropped=%v", got)
	}
}

func TestLineage(t *testing.T) {
	wool := RawLineage("Wool", 4, 0.3)
	flax := RawLineage("Flax", 3, 0.4)
	thread := Combine([]Lineage{wool})
	if thread.Depth != 0 || !thread.Refined {
		t.Fatalf("thread lineage %+v", thread)
	}
	cloth := Combine([]Lineage{thread, Combine([]Lineage{flax})})
	if cloth.Depth != 1 || len(cloth.Raw) != 2 {
		t.Fatalf("cloth lineage %+v", cloth)
	}
	shirt := Combine([]Lineage{cloth, wool})
	if shirt.Depth != 2 || len(shirt.Raw) != 3 {
		t.Fatalf("shirt lineage %+v", shirt)
	}
}

func TestWeight(t *testing.T) {
	if got := Weight(true, 4, 1, Lineage{}); got != 4 {
		t.Fatalf("raw weight %d", got)
	}
	lin := Lineage{Raw: []RawMaterial{{Density: 0.3}, {Density: 0.5}}}
	if got := Weight(false, 0, 5, lin); got != 2 {
		t.Fatalf("refined weight %d", got)
	}
	if got := Weight(false, 0, 0.2, Lineage{}); got != 1 {
		t.Fatalf("minimum weight %d", got)
	}
}

func TestCarryoverTags(t *testing.T) {
	carry := [][]string{{"animal", "plant"}, {"animal", "plant"}}
	matched := [][]string{{"thread", "animal"}, {"thread", "plant", "dyed"}}
	got := CarryoverTags(carry, matched)
	if !reflect.DeepEqual(got, []string{"animal", "plant"}) {
		t.Fatalf("carryover %v", got)
	}
}

func TestOutputPosition(t *testing.T) {
	x, y := OutputPosition(10, 5, 6, 4, 2, 1)
	if x != 13 || y != 7 {
		t.Fatalf("got (%d,%d)", x, y)
	}
}

func TestWear(t *testing.T) {
	left, broken := Wear(ToolMaxDurability, 3, 2)
	if left != 94 || broken {
		t.Fatalf("wear: %d %v", left, broken)
	}
	if _, broken := Wear(5, 5, 1); !broken {
		t.Fatalf("tool at 0 must break")
	}
}

func TestResolveDeterministic(t *testing.T) {
	req := Request{
		WorldSeed: 42, Tick: 99, WorkshopID: "W1", CrafterID: "M1", Recipe: "cloth",
		Output: Output{GoodType: "Cloth", Volume: 2, Carryover: [][]string{{"animal"}, {"animal"}}},
		Inputs: []Input{
			{Quality: 0.5, Lineage: Combine([]Lineage{RawLineage("Wool", 4, 0.3)}), Tags: []string{"thread", "animal"}},
			{Quality: 50, Lineage: Combine([]Lineage{RawLineage("Flax", 3, 0.4)}), Tags: []string{"thread", "plant"}},
		},
		Quantity: QuantityParams{Base: 1, Relevant: 12, Primary: 0.2, Specific: 0.1, STR: 12, DEX: 14},
		Quality: QualityParams{
			HasQuality: true, Tools: []ToolUse{{Quality: 0.9, Weight: 2}},
			Primary: 0.2, Specific: 0.1, Relevant: 14, Difficulty: 12, WIS: 10, STR: 12,
		},
		CHA: 10,
	}
	a, b := Resolve(req), Resolve(req)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("resolve not deterministic:\n%+v\n%+v", a, b)
	}
	if a.Lineage.Depth != 1 || a.Quantity < 1 || a.Value <= 0 || a.Weight < 1 {
		t.Fatalf("unexpected outcome %+v", a)
	}
	if !reflect.DeepEqual(a.Tags, []string{"animal"}) {
		t.Fatalf("tags %v", a.Tags)
	}
	req.Tick++
	c := Resolve(req)
	if c.Quality == a.Quality {
		t.Fatalf("different tick should draw differently")
	}
}

func TestResolveRawGather(t *testing.T) {
	out := Resolve(Request{
		WorldSeed: 1, Tick: 1, WorkshopID: "G1", CrafterID: "M1", Recipe: "wool",
		Output:   Output{GoodType: "Wool", Raw: true, BaseValue: 4, Density: 0.3, Volume: 2},
		Quantity: QuantityParams{Base: 2, STR: 10, DEX: 10},
		Quality:  QualityParams{HasQuality: true, WIS: 10, STR: 10, Difficulty: 10},
	})
	if out.Lineage.Refined || len(out.Lineage.Raw) != 1 || out.Lineage.Raw[0].GoodType != "Wool" {
		t.Fatalf("raw lineage %+v", out.Lineage)
	}
	if out.Quantity != 2 {
		t.Fatalf("quantity %d", out.Quantity)
	}
	if out.Weight != 1 {
		t.Fatalf("weight %d", out.Weight)
	}
}
