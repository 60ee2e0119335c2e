package ledger

import (
	"fmt"
	"math"
	"sort"
)

// shareEpsilon absorbs float error when checking the sum invariant.
const shareEpsilon = 1e-9

// Shares maps a contributor (player id) to its credit fraction.
// The fractions of a valid ledger sum to at most 1.
type Shares map[string]float64

func Sole(contributor string) Shares {
	if contributor == "" {
		return nil
	}
	return Shares{contributor: 1}
}

func (s Shares) Sum() float64 {
	total := 0.0
	for _, k := range s.Contributors() {
		total += s[k]
	}
	return total
}

// Contributors returns the contributor ids in sorted order.
func (s Shares) Contributors() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s Shares) Clone() Shares {
	if s == nil {
		return nil
	}
	out := make(Shares, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type InvariantError struct {
	Sum float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("share ledger sums to %.12f (> 1)", e.Sum)
}

// Check verifies the share-sum invariant and rejects negative or NaN fractions.
func (s Shares) Check() error {
	for _, k := range s.Contributors() {
		v := s[k]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("share for %q is invalid: %v", k, v)
		}
	}
	if sum := s.Sum(); sum > 1+shareEpsilon {
		return &InvariantError{Sum: sum}
	}
	return nil
}

// Part is one weighted source in a blend.
type Part struct {
	Shares Shares
	Weight float64
}

// Blend is a weighted union: every contributor receives the weight-averaged
// fraction across parts. The result never sums above the largest input sum,
// so valid inputs always produce a valid ledger. Parts with no weight or no
// shares are ignored.
func Blend(parts ...Part) Shares {
	total := 0.0
	for _, p := range parts {
		if p.Weight > 0 && len(p.Shares) > 0 {
			total += p.Weight
		}
	}
	if total <= 0 {
		return nil
	}
	out := Shares{}
	for _, p := range parts {
		if p.Weight <= 0 || len(p.Shares) == 0 {
			continue
		}
		for _, k := range p.Shares.Contributors() {
			if v := p.Shares[k]; v > 0 {
				out[k] += v * p.Weight / total
			}
		}
	}
	return out
}

// Fixed workshop owner weight in output shares.
const WorkshopOwnerWeight = 8

type InputSource struct {
	Shares Shares
	// Producer is used when the input carries no shares of its own.
	Producer string
	Count    int
}

type ToolSource struct {
	Shares Shares
	Weight int
}

type OutputSources struct {
	Inputs        []InputSource
	Tools         []ToolSource
	WorkshopOwner Shares
	OwnerWeight   float64
	Crafter       string
	ValueAdded    int
}

// BuildOutputShares combines input carry-over, tool owners, the workshop
// owner and the crafter's value-added weight into a produced item's ledger.
func BuildOutputShares(src OutputSources) Shares {
	parts := make([]Part, 0, len(src.Inputs)+len(src.Tools)+2)
	for _, in := range src.Inputs {
		sh := in.Shares
		if len(sh) == 0 {
			sh = Sole(in.Producer)
		}
		n := in.Count
		if n < 1 {
			n = 1
		}
		parts = append(parts, Part{Shares: sh, Weight: float64(n)})
	}
	for _, tl := range src.Tools {
		w := tl.Weight
		if w < 1 {
			w = 1
		}
		parts = append(parts, Part{Shares: tl.Shares, Weight: float64(w)})
	}
	if len(src.WorkshopOwner) > 0 {
		w := src.OwnerWeight
		if w <= 0 {
			w = WorkshopOwnerWeight
		}
		parts = append(parts, Part{Shares: src.WorkshopOwner, Weight: w})
	}
	if src.Crafter != "" && src.ValueAdded > 0 {
		parts = append(parts, Part{Shares: Sole(src.Crafter), Weight: float64(src.ValueAdded)})
	}
	return Blend(parts...)
}

// Distribute converts value into per-contributor renown. Each contributor
// receives floor(value * fraction); rounding remainders are not allocated.
func Distribute(value int, s Shares) map[string]int {
	if value <= 0 || len(s) == 0 {
		return nil
	}
	out := map[string]int{}
	for _, k := range s.Contributors() {
		if gain := int(float64(value) * s[k]); gain > 0 {
			out[k] = gain
		}
	}
	return out
}
