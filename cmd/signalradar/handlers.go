package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-pkgz/lgr"

	"github.com/elonfeng/signalradar/internal/config"
	"github.com/elonfeng/signalradar/internal/scheduler"
	"github.com/elonfeng/signalradar/internal/store"
	"github.com/elonfeng/signalradar/pkg/alert"
	"github.com/elonfeng/signalradar/pkg/publish"
	"github.com/elonfeng/signalradar/pkg/server"
	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

type signalsQuery struct {
	json     bool
	category string
	status   string
	limit    int
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// re-setup logging to hide alert credentials
	var secrets []string
	for _, s := range []string{cfg.Alerts.Slack.WebhookURL, cfg.Alerts.Webhook.Secret} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	setupLog(dbg, secrets...)
	return cfg, nil
}

func buildEngine(cfg *config.Config) *trend.Engine {
	assigner := trend.NewKeywordAssigner(cfg.Seeds(), trend.NewExtractor(cfg.Keywords.ExtraStopwords))
	return trend.NewEngine(assigner, trend.Options{Workers: cfg.Pipeline.Workers})
}

func buildFetcher(cfg *config.Config) *source.RSS {
	return source.NewRSS(source.RSSOptions{
		Timeout:   cfg.Fetch.ParseTimeout(),
		Delay:     cfg.Fetch.ParseDelay(),
		UserAgent: cfg.Fetch.UserAgent,
		StripHTML: cfg.Fetch.StripHTML,
	})
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// openStore returns a nil Store when the snapshot database is disabled.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func requireStore(cfg *config.Config) (store.Store, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("database.path is empty, snapshot store disabled")
	}
	return db, nil
}

func newBuilder(cfg *config.Config, db store.Store) *scheduler.Builder {
	return &scheduler.Builder{
		Fetcher:   buildFetcher(cfg),
		Feeds:     cfg.Feeds(),
		Engine:    buildEngine(cfg),
		Publisher: publish.NewPublisher(cfg.Output.CSVPath, cfg.Output.SiteDir, cfg.Output.SiteFile),
		Store:     db,
		Alerts:    buildAlertManager(cfg),
		TopN:      cfg.Alerts.TopN,
	}
}

func runBuild(ctx context.Context, output string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if output != "" {
		cfg.Output.CSVPath = output
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	res, err := newBuilder(cfg, db).Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nrun %s: %d signals (emerging %d, bubbling %d, mainstream %d), %d/%d feeds failed\n",
		res.Run.ID, res.Run.Items, res.Counts["emerging"], res.Counts["bubbling"], res.Counts["mainstream"],
		res.Run.FailedFeeds, res.Run.Feeds)
	for _, path := range res.Outputs {
		fmt.Fprintf(os.Stderr, "  wrote %s\n", path)
	}
	return nil
}

func runSignals(ctx context.Context, q signalsQuery) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tier := trend.Tier(q.status)
	if q.status != "" && !tier.Valid() {
		return fmt.Errorf("unknown status %q", q.status)
	}

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	signals, err := db.ListSignals(ctx, store.SignalListOpts{
		Category: source.Category(q.category),
		Tier:     tier,
		Limit:    q.limit,
	})
	if err != nil {
		return fmt.Errorf("list signals: %w", err)
	}

	if q.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(signals)
	}

	if len(signals) == 0 {
		fmt.Println("no signals found (try building first: signalradar build)")
		return nil
	}
	return writeSignalsTable(os.Stdout, signals)
}

func writeSignalsTable(out io.Writer, signals []trend.Signal) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSTATUS\tCATEGORY\tKEYWORD\tPUBLISHED\tTITLE")
	for _, s := range signals {
		published := s.PublishedISO
		if published == "" {
			published = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			publish.FormatScore(s.TrendScore), s.Tier, s.Category, s.PrimaryKeyword, published, s.Title)
	}
	return w.Flush()
}

func runServe(ctx context.Context, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, newBuilder(cfg, db), server.Options{
		Port:    port,
		SiteDir: cfg.Output.SiteDir,
		Version: revision,
		Debug:   dbg,
	})
	return srv.Run(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	builder := newBuilder(cfg, db)
	sched := scheduler.New(builder, cfg.Schedule.ParseBuildInterval())

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			lgr.Printf("[ERROR] scheduler: %v", err)
		}
	}()

	srv := server.New(db, builder, server.Options{
		Port:    port,
		SiteDir: cfg.Output.SiteDir,
		Version: revision,
		Debug:   dbg,
	})
	err = srv.Run(ctx)
	lgr.Printf("[INFO] shutdown complete")
	return err
}
