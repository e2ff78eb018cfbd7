package trend

import (
	"math"
	"sort"
)

// Tier is the adoption class of a signal within its batch.
type Tier string

const (
	TierEmerging   Tier = "emerging"
	TierBubbling   Tier = "bubbling"
	TierMainstream Tier = "mainstream"
)

// AllTiers lists tiers from least to most adopted.
func AllTiers() []Tier {
	return []Tier{TierEmerging, TierBubbling, TierMainstream}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierEmerging, TierBubbling, TierMainstream:
		return true
	}
	return false
}

// Thresholds are the batch percentiles tiers are cut at.
type Thresholds struct {
	P33 float64 `json:"p33"`
	P66 float64 `json:"p66"`
}

// TierFor classifies a score. The upper boundary is inclusive: score == P66 is mainstream.
func (t Thresholds) TierFor(score float64) Tier {
	switch {
	case score >= t.P66:
		return TierMainstream
	case score >= t.P33:
		return TierBubbling
	default:
		return TierEmerging
	}
}

// Classify computes the 33rd and 66th score percentiles over the whole batch and
// attaches a tier to every signal. An empty batch is left untouched.
func Classify(signals []Signal) Thresholds {
	if len(signals) == 0 {
		return Thresholds{}
	}

	scores := make([]float64, len(signals))
	for i := range signals {
		scores[i] = finiteOrZero(signals[i].TrendScore)
	}

	th := Thresholds{P33: Percentile(scores, 33), P66: Percentile(scores, 66)}
	for i := range signals {
		signals[i].Tier = th.TierFor(scores[i])
	}
	return th
}

// Percentile returns the p-th percentile (0-100) of values using linear interpolation
// between the closest ranks. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = finiteOrZero(v)
	}
	sort.Float64s(sorted)

	p = math.Min(math.Max(p, 0), 100)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
