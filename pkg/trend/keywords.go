package trend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elonfeng/signalradar/pkg/source"
)

// ErrUnknownCategory is returned when an item references a category with no seed list configured.
var ErrUnknownCategory = errors.New("unknown category")

// Assignment is the result of keyword assignment for one item.
type Assignment struct {
	Keyword  string
	Hits     []string // matching seeds in seed-list order, empty on the fallback path
	Fallback bool     // keyword came from the auto-extractor
}

// HitCount is the number of seeds found in the item text.
func (a Assignment) HitCount() int { return len(a.Hits) }

// KeywordAssigner resolves the primary keyword of an item from category seeds,
// falling back to frequency-based extraction when no seed occurs in the text.
type KeywordAssigner struct {
	seeds     map[source.Category][]string
	extractor *Extractor
}

// NewKeywordAssigner creates an assigner. Seeds are copied and lowercased; their order is kept.
func NewKeywordAssigner(seeds map[source.Category][]string, extractor *Extractor) *KeywordAssigner {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	own := make(map[source.Category][]string, len(seeds))
	for cat, list := range seeds {
		lowered := make([]string, 0, len(list))
		for _, s := range list {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				lowered = append(lowered, s)
			}
		}
		own[cat] = lowered
	}
	return &KeywordAssigner{seeds: own, extractor: extractor}
}

// Assign picks the primary keyword for an item.
// The first seed in seed-list order that occurs in the text wins, regardless of where it occurs.
func (k *KeywordAssigner) Assign(title, summary string, category source.Category) (Assignment, error) {
	seeds, ok := k.seeds[category]
	if !ok {
		return Assignment{}, fmt.Errorf("assign keyword for %q: %w", category, ErrUnknownCategory)
	}

	text := strings.ToLower(NormalizeText(title) + " " + NormalizeText(summary))

	var hits []string
	for _, seed := range seeds {
		if strings.Contains(text, seed) {
			hits = append(hits, seed)
		}
	}
	if len(hits) > 0 {
		return Assignment{Keyword: hits[0], Hits: hits}, nil
	}

	return Assignment{Keyword: k.extractor.Extract(text), Fallback: true}, nil
}
