package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/signalradar/pkg/source"
)

// ErrInvalid marks structural configuration problems.
var ErrInvalid = errors.New("invalid config")

// Config is the root configuration. It is loaded once and never mutated afterwards.
type Config struct {
	Categories []CategoryConfig `yaml:"categories"`
	Keywords   KeywordsConfig   `yaml:"keywords"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Server     ServerConfig     `yaml:"server"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// CategoryConfig binds feed URLs and seed phrases to one category.
type CategoryConfig struct {
	Name  string   `yaml:"name"`
	Feeds []string `yaml:"feeds"`
	Seeds []string `yaml:"seeds"`
}

// KeywordsConfig tunes the fallback keyword extractor.
type KeywordsConfig struct {
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// FetchConfig configures feed fetching.
type FetchConfig struct {
	Timeout   string `yaml:"timeout"`
	Delay     string `yaml:"delay"` // pause between feed requests
	UserAgent string `yaml:"user_agent"`
	StripHTML bool   `yaml:"strip_html"`
}

// ParseTimeout returns the fetch timeout as time.Duration.
func (f FetchConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ParseDelay returns the delay between feed requests as time.Duration.
func (f FetchConfig) ParseDelay() time.Duration {
	d, err := time.ParseDuration(f.Delay)
	if err != nil {
		return time.Second
	}
	return d
}

// PipelineConfig configures scoring.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig configures where the CSV is published.
type OutputConfig struct {
	CSVPath  string `yaml:"csv_path"`
	SiteDir  string `yaml:"site_dir"`  // empty disables the site copy
	SiteFile string `yaml:"site_file"` // file name inside site_dir
}

// DatabaseConfig configures the SQLite snapshot of the latest run.
type DatabaseConfig struct {
	Path string `yaml:"path"` // empty disables the snapshot
}

// ScheduleConfig configures daemon mode.
type ScheduleConfig struct {
	BuildInterval string `yaml:"build_interval"`
}

// ParseBuildInterval returns the build interval as time.Duration.
func (s ScheduleConfig) ParseBuildInterval() time.Duration {
	d, err := time.ParseDuration(s.BuildInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AlertsConfig configures run summaries sent after each build.
type AlertsConfig struct {
	TopN    int           `yaml:"top_n"`
	Slack   SlackConfig   `yaml:"slack"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Feeds returns every (category, url) pair in configuration order.
func (c *Config) Feeds() []source.Feed {
	var feeds []source.Feed
	for _, cat := range c.Categories {
		for _, u := range cat.Feeds {
			feeds = append(feeds, source.Feed{Category: cat.category(), URL: u})
		}
	}
	return feeds
}

// Seeds returns a fresh map of seed phrases per category.
func (c *Config) Seeds() map[source.Category][]string {
	res := make(map[source.Category][]string, len(c.Categories))
	for _, cat := range c.Categories {
		res[cat.category()] = append([]string(nil), cat.Seeds...)
	}
	return res
}

// category is the trimmed name, the same key Validate checks for uniqueness.
func (c CategoryConfig) category() source.Category {
	return source.Category(strings.TrimSpace(c.Name))
}

// Validate checks the structure of the configuration.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories configured", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		name := string(cat.category())
		if name == "" {
			return fmt.Errorf("%w: category #%d has no name", ErrInvalid, i+1)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalid, name)
		}
		seen[name] = true
		if cat.Seeds == nil {
			return fmt.Errorf("%w: category %q has no seeds list", ErrInvalid, name)
		}
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be at least 1, got %d", ErrInvalid, c.Pipeline.Workers)
	}
	if c.Output.CSVPath == "" {
		return fmt.Errorf("%w: output.csv_path is empty", ErrInvalid)
	}
	if c.Output.SiteDir != "" && c.Output.SiteFile == "" {
		return fmt.Errorf("%w: output.site_file is empty", ErrInvalid)
	}
	for name, v := range map[string]string{
		"fetch.timeout":           c.Fetch.Timeout,
		"fetch.delay":             c.Fetch.Delay,
		"schedule.build_interval": c.Schedule.BuildInterval,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
		if d < 0 || (d == 0 && name != "fetch.delay") {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, name, v)
		}
	}
	return nil
}

// Default returns a Config with the stock fashion, beauty and wellness categories.
func Default() *Config {
	return &Config{
		Categories: []CategoryConfig{
			{
				Name: "fashion",
				Feeds: []string{
					"https://www.hypebeast.com/feed",
					"https://www.highsnobiety.com/feed",
					"https://theimpression.com/feed/",
					"https://news.google.com/rss/search?q=fashion%20innovation&hl=en&gl=US&ceid=US:en",
				},
				Seeds: []string{
					"quiet luxury", "stealth wealth", "balletcore", "coquette", "blokette", "mob wife",
					"archival", "gorpcore", "techwear", "digital couture", "3d knit", "upcycled",
					"deadstock", "rental", "resale", "made-to-order", "kitten heels", "ballet flats", "rosette", "bows",
				},
			},
			{
				Name: "beauty",
				Feeds: []string{
					"https://www.beautymatter.com/rss.xml",
					"https://www.allure.com/feed/all/rss",
					"https://www.glossy.co/feed/",
					"https://news.google.com/rss/search?q=beauty%20skincare%20trend&hl=en&gl=US&ceid=US:en",
				},
				Seeds: []string{
					"skin cycling", "skin flooding", "skin barrier", "slugging", "glass skin", "jello skin", "mochi skin",
					"latte makeup", "lip oil", "lip stain", "peptide", "copper peptide", "fermented", "microbiome",
					"mushroom", "adaptogen", "spf stick", "mineral sunscreen", "led mask", "red light", "microcurrent", "scalp care",
				},
			},
			{
				Name: "wellness",
				Feeds: []string{
					"https://www.wellandgood.com/feed/",
					"https://www.mindbodygreen.com/feeds/latest",
					"https://examine.com/feed/",
					"https://news.google.com/rss/search?q=wellness%20longevity%20trend&hl=en&gl=US&ceid=US:en",
				},
				Seeds: []string{
					"longevity", "glp-1", "red light", "cold plunge", "sauna", "heat therapy", "breathwork", "vagus nerve",
					"magnesium", "creatine", "protein water", "gut health", "microbiome", "prebiotic", "electrolytes",
					"sleep tourism", "mouth taping", "zone 2", "walking pad", "wearable",
				},
			},
		},
		Fetch: FetchConfig{
			Timeout:   "30s",
			Delay:     "1s",
			UserAgent: "signalradar/1.0",
			StripHTML: true,
		},
		Pipeline: PipelineConfig{Workers: 4},
		Output: OutputConfig{
			CSVPath:  "docs/signals_simple.csv",
			SiteDir:  "site",
			SiteFile: "signals_simple.csv",
		},
		Database: DatabaseConfig{Path: "./signalradar.db"},
		Schedule: ScheduleConfig{BuildInterval: "6h"},
		Server:   ServerConfig{Port: 8080},
		Alerts:   AlertsConfig{TopN: 5},
	}
}

// Load reads configuration from a YAML file, applies env var overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIGNALRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SIGNALRADAR_OUTPUT"); v != "" {
		cfg.Output.CSVPath = v
	}
	if v := os.Getenv("SIGNALRADAR_SITE_DIR"); v != "" {
		cfg.Output.SiteDir = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("SIGNALRADAR_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Webhook.URL = v
		cfg.Alerts.Webhook.Enabled = true
	}
}
