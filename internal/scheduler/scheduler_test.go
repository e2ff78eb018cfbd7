package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/signalradar/internal/store"
	"github.com/elonfeng/signalradar/pkg/alert"
	"github.com/elonfeng/signalradar/pkg/publish"
	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	results []source.FetchResult
	calls   atomic.Int32
}

func (f *fakeFetcher) FetchAll(_ context.Context, _ []source.Feed) []source.FetchResult {
	f.calls.Add(1)
	return f.results
}

type fakeStore struct {
	run     store.Run
	signals []trend.Signal
	err     error
}

func (s *fakeStore) SaveRun(_ context.Context, run store.Run, signals []trend.Signal) error {
	s.run, s.signals = run, signals
	return s.err
}

func (s *fakeStore) LatestRun(context.Context) (*store.Run, error) { return &s.run, nil }

func (s *fakeStore) ListSignals(context.Context, store.SignalListOpts) ([]trend.Signal, error) {
	return s.signals, nil
}

func (s *fakeStore) Close() error { return nil }

type recordingNotifier struct {
	got []*alert.Notification
}

func (r *recordingNotifier) Name() string { return "recorder" }

func (r *recordingNotifier) Send(_ context.Context, n *alert.Notification) error {
	r.got = append(r.got, n)
	return errors.New("destination down")
}

func testBuilder(t *testing.T, fetcher source.Fetcher) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	assigner := trend.NewKeywordAssigner(map[source.Category][]string{
		"wellness": {"magnesium", "creatine"},
	}, trend.NewExtractor(nil))
	clock := func() time.Time { return testNow }
	csvPath := filepath.Join(dir, "out", "signals.csv")
	return &Builder{
		Fetcher:   fetcher,
		Feeds:     []source.Feed{{Category: "wellness", URL: "http://ok"}, {Category: "wellness", URL: "http://bad"}},
		Engine:    trend.NewEngine(assigner, trend.Options{Workers: 2, Now: clock}),
		Publisher: publish.NewPublisher(csvPath, filepath.Join(dir, "site"), "signals.csv"),
		Now:       clock,
	}, csvPath
}

func twoItems() *fakeFetcher {
	return &fakeFetcher{results: []source.FetchResult{
		{Feed: source.Feed{Category: "wellness", URL: "http://ok"}, Items: []source.Item{
			{Title: "Plain update", PublishedRaw: "2025-06-15T10:00:00Z", Link: "https://x/2", Category: "wellness"},
			{Title: "Magnesium for sleep", PublishedRaw: "2025-06-15T09:00:00Z", Link: "https://x/1", Category: "wellness"},
		}},
		{Feed: source.Feed{Category: "wellness", URL: "http://bad"}, Err: errors.New("status 500")},
	}}
}

func TestBuilder_Build(t *testing.T) {
	b, csvPath := testBuilder(t, twoItems())
	st := &fakeStore{}
	rec := &recordingNotifier{}
	b.Store = st
	b.Alerts = alert.NewManager([]alert.Notifier{rec})

	res, err := b.Build(context.Background())
	require.NoError(t, err, "store and alert failures do not fail the build")

	assert.Equal(t, 2, res.Run.Feeds)
	assert.Equal(t, 1, res.Run.FailedFeeds)
	assert.Equal(t, 2, res.Run.Items)
	assert.Equal(t, testNow, res.Run.FinishedAt)
	assert.Equal(t, []string{"http://bad"}, res.Failed)
	assert.Equal(t, map[string]int{"emerging": 1, "bubbling": 0, "mainstream": 1}, res.Counts)
	assert.InDelta(t, 0.831, res.Run.P33, 1e-9)
	assert.InDelta(t, 1.062, res.Run.P66, 1e-9)
	require.Len(t, res.Outputs, 2)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := publish.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://x/1", rows[0]["link"])
	assert.Equal(t, "magnesium", rows[0]["primary_keyword"])
	assert.Equal(t, "1.3", rows[0]["trend_score"])
	assert.Equal(t, "mainstream", rows[0]["status"])
	assert.Equal(t, "plain update", rows[1]["primary_keyword"])
	assert.Equal(t, "emerging", rows[1]["status"])

	_, err = os.Stat(res.Outputs[1])
	require.NoError(t, err, "site copy written")

	assert.Equal(t, res.Run.ID, st.run.ID)
	assert.Len(t, st.signals, 2)

	require.Len(t, rec.got, 1)
	assert.Equal(t, res.Run.ID, rec.got[0].RunID)
	assert.Contains(t, rec.got[0].Body, "(1 feeds failed)")
}

func TestBuilder_BuildNoItems(t *testing.T) {
	b, csvPath := testBuilder(t, &fakeFetcher{})

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Run.Items)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "published,title,link,category,primary_keyword,trend_score,status\n", string(data))
}

func TestBuilder_BuildUnknownCategoryFails(t *testing.T) {
	fetcher := &fakeFetcher{results: []source.FetchResult{
		{Feed: source.Feed{Category: "travel", URL: "http://ok"}, Items: []source.Item{
			{Title: "Somewhere", Link: "https://x/9", Category: "travel"},
		}},
	}}
	b, csvPath := testBuilder(t, fetcher)

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, trend.ErrUnknownCategory)

	_, statErr := os.Stat(csvPath)
	assert.True(t, os.IsNotExist(statErr), "nothing published on a failed build")
}

func TestBuilder_BuildAlreadyRunning(t *testing.T) {
	b, _ := testBuilder(t, &fakeFetcher{})
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrBuildRunning)
}

type countingBuilder struct {
	calls atomic.Int32
}

func (c *countingBuilder) Build(context.Context) (*BuildResult, error) {
	c.calls.Add(1)
	return &BuildResult{}, nil
}

func TestScheduler_Run(t *testing.T) {
	cb := &countingBuilder{}
	s := New(cb, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, cb.calls.Load(), int32(3), "initial build plus ticks")
}

func TestScheduler_DefaultInterval(t *testing.T) {
	s := New(&countingBuilder{}, 0)
	assert.Equal(t, 6*time.Hour, s.interval)
}
