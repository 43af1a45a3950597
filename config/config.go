package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store     StoreConfig
	Scheduler SchedulerConfig
	Workers   int
	MaxEvents int
	StartFrom int

	HTTPTimeout time.Duration
	DBPath      string
	LogLevel    string

	Sources map[string]*SourceConfig
}

type StoreConfig struct {
	Driver string // rest or postgres
	URL    string // REST base URL
	Key    string // static bearer token
	DBURL  string // direct Postgres connection string
}

type SchedulerConfig struct {
	SyncCron     string
	RankingsCron string
	Interval     time.Duration
}

// SourceConfig carries the load-bearing scrape heuristics per upstream
// source so page restructuring can be handled without code changes.
type SourceConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	IndexURL    string `yaml:"index_url"`
	RankingsURL string `yaml:"rankings_url"`
	AthleteURL  string `yaml:"athlete_url"` // base URL, slug appended
	RateLimitMS int    `yaml:"rate_limit_ms"`

	// Discovery heuristics (events index page).
	TableToken    string `yaml:"table_token"`     // substring counted to pick the past-events table
	MinIndexCells int    `yaml:"min_index_cells"` // minimum cells for a usable index row

	// Fight-table heuristics (event pages).
	FightColumns int    `yaml:"fight_columns"` // canonical column count of a fight row
	DefeatMarker string `yaml:"defeat_marker"` // literal token separating winner and loser
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "rest"),
			URL:    os.Getenv("STORE_URL"),
			Key:    os.Getenv("STORE_KEY"),
			DBURL:  os.Getenv("STORE_DB_URL"),
		},
		Scheduler: SchedulerConfig{
			SyncCron:     os.Getenv("SYNC_CRON"),
			RankingsCron: getEnv("RANKINGS_CRON", "@hourly"),
		},
		Workers:     getEnvInt("WORKERS", 5),
		MaxEvents:   getEnvInt("MAX_EVENTS", 0),
		StartFrom:   getEnvInt("START_FROM", 0),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		DBPath:      getEnv("DB_PATH", "fightsync.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Sources:     make(map[string]*SourceConfig),
	}

	if interval := os.Getenv("SYNC_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}
	cfg.applySourceDefaults()

	return cfg, nil
}

// Validate checks the options the pipeline cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "rest":
		if c.Store.URL == "" || c.Store.Key == "" {
			return fmt.Errorf("config: STORE_URL and STORE_KEY are required for the rest driver")
		}
	case "postgres":
		if c.Store.DBURL == "" {
			return fmt.Errorf("config: STORE_DB_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: WORKERS must be positive, got %d", c.Workers)
	}
	return nil
}

// RateLimits returns the per-host minimum request spacing, keyed by host
// suffix, built from the source configs on top of the baseline floors.
func (c *Config) RateLimits() map[string]time.Duration {
	limits := map[string]time.Duration{
		"wikipedia.org": 1 * time.Second,
		"ufc.com":       2 * time.Second,
		"nitter.net":    3 * time.Second,
	}
	for _, src := range c.Sources {
		if src.RateLimitMS <= 0 {
			continue
		}
		d := time.Duration(src.RateLimitMS) * time.Millisecond
		for _, u := range []string{src.IndexURL, src.RankingsURL, src.AthleteURL} {
			if host := hostSuffix(u); host != "" {
				limits[host] = d
			}
		}
	}
	return limits
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var src SourceConfig
		if err := yaml.Unmarshal(data, &src); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		c.Sources[src.ID] = &src
	}

	return nil
}

// applySourceDefaults fills in the built-in sources and heuristic defaults
// so a bare environment still runs against the canonical pages.
func (c *Config) applySourceDefaults() {
	if _, ok := c.Sources["wikipedia_events"]; !ok {
		c.Sources["wikipedia_events"] = &SourceConfig{
			ID:       "wikipedia_events",
			Name:     "Wikipedia UFC events",
			IndexURL: "https://en.wikipedia.org/wiki/List_of_UFC_events",
		}
	}
	if _, ok := c.Sources["ufc_rankings"]; !ok {
		c.Sources["ufc_rankings"] = &SourceConfig{
			ID:          "ufc_rankings",
			Name:        "UFC rankings",
			RankingsURL: "https://www.ufc.com/rankings",
			AthleteURL:  "https://www.ufc.com/athlete/",
		}
	}

	for _, src := range c.Sources {
		if src.TableToken == "" {
			src.TableToken = "UFC"
		}
		if src.MinIndexCells == 0 {
			src.MinIndexCells = 6
		}
		if src.FightColumns == 0 {
			src.FightColumns = 8
		}
		if src.DefeatMarker == "" {
			src.DefeatMarker = "def."
		}
	}
}

func hostSuffix(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	// Strip one leading label (www., en.) to match by registrable suffix.
	if i := strings.Index(host, "."); i >= 0 && strings.Count(host, ".") > 1 {
		host = host[i+1:]
	}
	return host
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
