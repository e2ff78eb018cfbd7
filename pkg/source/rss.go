package source

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// RSSOptions configures the RSS fetcher.
type RSSOptions struct {
	Timeout   time.Duration
	Delay     time.Duration // pause between consecutive feed requests
	UserAgent string
	StripHTML bool
}

// RSS fetches RSS/Atom feeds one after another.
type RSS struct {
	client    *http.Client
	parser    *gofeed.Parser
	policy    *bluemonday.Policy
	delay     time.Duration
	userAgent string
}

// NewRSS creates a new RSS fetcher.
func NewRSS(opts RSSOptions) *RSS {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "signalradar/1.0"
	}
	r := &RSS{
		client:    &http.Client{Timeout: opts.Timeout},
		parser:    gofeed.NewParser(),
		delay:     opts.Delay,
		userAgent: opts.UserAgent,
	}
	if opts.StripHTML {
		// block tags separate words, so stripped tags leave a space behind
		r.policy = bluemonday.StrictPolicy()
		r.policy.AddSpaceWhenStrippingTag(true)
	}
	return r
}

// FetchAll fetches every feed serially, sleeping between requests.
// A failing feed yields a FetchResult with Err set; the rest are still fetched.
func (r *RSS) FetchAll(ctx context.Context, feeds []Feed) []FetchResult {
	results := make([]FetchResult, 0, len(feeds))
	for i, feed := range feeds {
		if i > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				results = append(results, FetchResult{Feed: feed, Err: ctx.Err()})
				continue
			case <-time.After(r.delay):
			}
		}
		items, err := r.fetchFeed(ctx, feed)
		if err != nil {
			results = append(results, FetchResult{Feed: feed, Err: err})
			continue
		}
		lgr.Printf("[DEBUG] fetched %d items from %s (%s)", len(items), feed.URL, feed.Category)
		results = append(results, FetchResult{Feed: feed, Items: items})
	}
	return results
}

func (r *RSS) fetchFeed(ctx context.Context, feed Feed) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.URL, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.URL, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.URL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}
		if r.policy != nil {
			summary = strings.Join(strings.Fields(html.UnescapeString(r.policy.Sanitize(summary))), " ")
		}

		items = append(items, Item{
			Title:        entry.Title,
			Summary:      summary,
			PublishedRaw: rawTimestamp(entry),
			Link:         link,
			Category:     feed.Category,
			FeedURL:      feed.URL,
		})
	}
	return items, nil
}

// rawTimestamp picks the first non-empty of published, updated and created.
func rawTimestamp(entry *gofeed.Item) string {
	candidates := []string{entry.Published, entry.Updated}
	if entry.Custom != nil {
		candidates = append(candidates, entry.Custom["created"])
	}
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Date) > 0 {
		candidates = append(candidates, entry.DublinCoreExt.Date[0])
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}
