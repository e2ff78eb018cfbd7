package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/elonfeng/signalradar/internal/store"
	"github.com/elonfeng/signalradar/pkg/alert"
	"github.com/elonfeng/signalradar/pkg/publish"
	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

// ErrBuildRunning is returned when a build is requested while another one is in progress.
var ErrBuildRunning = errors.New("build already running")

// BuildResult describes one completed build.
type BuildResult struct {
	Run     store.Run      `json:"run"`
	Counts  map[string]int `json:"counts"`
	Outputs []string       `json:"outputs"`
	Failed  []string       `json:"failed_feeds,omitempty"`
}

// Builder runs the full pipeline once: fetch, score, classify, publish, persist, alert.
type Builder struct {
	Fetcher   source.Fetcher
	Feeds     []source.Feed
	Engine    *trend.Engine
	Publisher *publish.Publisher
	Store     store.Store    // optional
	Alerts    *alert.Manager // optional
	TopN      int
	Now       func() time.Time

	mu sync.Mutex
}

// Build runs the pipeline. Feed failures are logged and skipped, scoring and publishing errors abort
// the build, store and alert errors are logged only.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	if !b.mu.TryLock() {
		return nil, ErrBuildRunning
	}
	defer b.mu.Unlock()

	log.Printf("[INFO] fetching %d feeds", len(b.Feeds))
	items, failed := source.Collect(b.Fetcher.FetchAll(ctx, b.Feeds))
	failedURLs := make([]string, 0, len(failed))
	for _, f := range failed {
		log.Printf("[WARN] feed %s (%s) skipped: %v", f.Feed.URL, f.Feed.Category, f.Err)
		failedURLs = append(failedURLs, f.Feed.URL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Printf("[INFO] collected %d items from %d feeds", len(items), len(b.Feeds)-len(failed))

	batch, err := b.Engine.Run(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("score items: %w", err)
	}

	if err := b.Publisher.Publish(batch.Signals); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	res := &BuildResult{
		Run: store.Run{
			ID:          batch.RunID,
			StartedAt:   batch.StartedAt,
			FinishedAt:  b.now().UTC(),
			Feeds:       len(b.Feeds),
			FailedFeeds: len(failed),
			Items:       len(batch.Signals),
			P33:         batch.Thresholds.P33,
			P66:         batch.Thresholds.P66,
		},
		Counts:  make(map[string]int, 3),
		Outputs: b.Publisher.Paths(),
		Failed:  failedURLs,
	}
	counts := batch.Counts()
	for _, tier := range trend.AllTiers() {
		res.Counts[string(tier)] = counts[tier]
	}

	if b.Store != nil {
		if err := b.Store.SaveRun(ctx, res.Run, batch.Signals); err != nil {
			log.Printf("[WARN] save run %s: %v", batch.RunID, err)
		}
	}

	if b.Alerts.HasNotifiers() {
		if err := b.Alerts.Broadcast(ctx, alert.Summarize(batch, len(failed), b.topN())); err != nil {
			log.Printf("[WARN] alerts for run %s: %v", batch.RunID, err)
		}
	}

	log.Printf("[INFO] run %s done: %d signals (emerging %d, bubbling %d, mainstream %d)",
		batch.RunID, len(batch.Signals), res.Counts["emerging"], res.Counts["bubbling"], res.Counts["mainstream"])
	return res, nil
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) topN() int {
	if b.TopN <= 0 {
		return 5
	}
	return b.TopN
}
