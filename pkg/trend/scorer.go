package trend

import "math"

const (
	hitWeight     = 0.7
	recencyWeight = 0.3
	recencyScale  = 2.0
)

// Score combines the seed hit count with recency into a trend score rounded to 2 decimals.
// Relevance dominates: every seed hit adds 0.7, while recency adds at most 0.6.
func Score(hitCount int, recency float64) float64 {
	if hitCount < 0 {
		hitCount = 0
	}
	return round2(hitWeight*float64(hitCount) + recencyWeight*(recency*recencyScale))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
