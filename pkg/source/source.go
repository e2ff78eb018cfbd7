package source

import (
	"context"
)

// Category is a configuration-defined topical bucket such as "fashion" or "wellness".
type Category string

// Item is one syndicated entry as it comes out of a feed, before any scoring.
// PublishedRaw is empty when the feed omits every timestamp field.
type Item struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	PublishedRaw string   `json:"published_raw"`
	Link         string   `json:"link"`
	Category     Category `json:"category"`
	FeedURL      string   `json:"feed_url"`
}

// Feed is a single feed URL bound to the category its items belong to.
type Feed struct {
	Category Category
	URL      string
}

// FetchResult is the outcome of fetching one feed. Exactly one of Items or Err is meaningful.
type FetchResult struct {
	Feed  Feed
	Items []Item
	Err   error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// Fetcher retrieves items for a list of feeds.
type Fetcher interface {
	FetchAll(ctx context.Context, feeds []Feed) []FetchResult
}

// Collect flattens successful results in feed order and returns the failed ones separately.
func Collect(results []FetchResult) (items []Item, failed []FetchResult) {
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
			continue
		}
		items = append(items, r.Items...)
	}
	return items, failed
}
