package trend

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	// NeutralRecency is used when an item carries no usable timestamp.
	NeutralRecency = 0.5
	recencyWindow  = 30.0 // days until recency reaches zero
)

// ParseTimestamp parses a feed timestamp in any common format.
// Timestamps without a zone are taken as UTC. ok is false when raw is empty or unparseable.
func ParseTimestamp(raw string) (t time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	defer func() {
		// dateparse panics on a handful of malformed inputs
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// RecencyScore maps a raw timestamp to [0,1], decaying linearly to zero over 30 days.
func RecencyScore(raw string, now time.Time) float64 {
	t, ok := ParseTimestamp(raw)
	return recencyOf(t, ok, now)
}

func recencyOf(t time.Time, ok bool, now time.Time) float64 {
	if !ok {
		return NeutralRecency
	}
	days := math.Floor(now.Sub(t).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return math.Max(0, 1.0-days/recencyWindow)
}
