package trend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/signalradar/pkg/source"
)

// Signal is a scored feed item. Tier stays empty until the batch is classified.
type Signal struct {
	source.Item
	PublishedAt    time.Time `json:"-"`
	PublishedISO   string    `json:"published"`
	PrimaryKeyword string    `json:"primary_keyword"`
	HitCount       int       `json:"hit_count"`
	TrendScore     float64   `json:"trend_score"`
	Tier           Tier      `json:"status"`
}

// Batch is the outcome of one pipeline run. Tiers are only meaningful within it.
type Batch struct {
	RunID      string
	StartedAt  time.Time
	Signals    []Signal
	Thresholds Thresholds
}

// Counts returns the number of signals per tier.
func (b *Batch) Counts() map[Tier]int {
	counts := make(map[Tier]int, 3)
	for _, s := range b.Signals {
		counts[s.Tier]++
	}
	return counts
}

// Options tunes the engine.
type Options struct {
	Workers int              // concurrent scorers in the first pass, 1 = sequential
	Now     func() time.Time // clock, time.Now when nil
}

// Engine scores feed items and classifies them into tiers.
type Engine struct {
	assigner *KeywordAssigner
	workers  int
	now      func() time.Time
}

// NewEngine creates a new scoring engine.
func NewEngine(assigner *KeywordAssigner, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{assigner: assigner, workers: opts.Workers, now: opts.Now}
}

// ScoreItem turns one feed item into a signal, relative to now. It does not set the tier.
func (e *Engine) ScoreItem(item source.Item, now time.Time) (Signal, error) {
	assignment, err := e.assigner.Assign(item.Title, item.Summary, item.Category)
	if err != nil {
		return Signal{}, err
	}

	published, ok := ParseTimestamp(item.PublishedRaw)
	sig := Signal{
		Item:           item,
		PrimaryKeyword: assignment.Keyword,
		HitCount:       assignment.HitCount(),
	}
	sig.Title = NormalizeText(item.Title)
	sig.Summary = NormalizeText(item.Summary)
	if ok {
		sig.PublishedAt = published
		sig.PublishedISO = published.Format(time.RFC3339)
	}
	sig.TrendScore = Score(sig.HitCount, recencyOf(published, ok, now))
	return sig, nil
}

// Run scores every item, classifies the complete batch and sorts it.
// Scoring is independent per item; classification waits for all of them.
func (e *Engine) Run(ctx context.Context, items []source.Item) (*Batch, error) {
	now := e.now().UTC()
	batch := &Batch{RunID: uuid.NewString(), StartedAt: now}

	signals := make([]Signal, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sig, err := e.ScoreItem(item, now)
			if err != nil {
				return fmt.Errorf("score item %q: %w", item.Link, err)
			}
			signals[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch.Thresholds = Classify(signals)
	SortSignals(signals)
	batch.Signals = signals

	lgr.Printf("[DEBUG] run %s: %d signals, p33=%.2f p66=%.2f",
		batch.RunID, len(signals), batch.Thresholds.P33, batch.Thresholds.P66)
	return batch, nil
}

// SortSignals orders by trend score descending, then by publication time descending.
// Signals without a parsed timestamp go last within equal scores.
func SortSignals(signals []Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.TrendScore != b.TrendScore {
			return a.TrendScore > b.TrendScore
		}
		switch {
		case a.PublishedAt.IsZero():
			return false
		case b.PublishedAt.IsZero():
			return true
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
}
