package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent is a conventional desktop browser user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config is the root configuration for listgoat.
type Config struct {
	Render  RenderConfig  `mapstructure:"render"  yaml:"render"`
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Resolve ResolveConfig `mapstructure:"resolve" yaml:"resolve"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// RenderConfig controls how pages are fetched and rendered. One value is
// threaded through every render call.
type RenderConfig struct {
	StaticTimeout   time.Duration `mapstructure:"static_timeout"   yaml:"static_timeout"`
	DynamicTimeout  time.Duration `mapstructure:"dynamic_timeout"  yaml:"dynamic_timeout"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	NoSandbox       bool          `mapstructure:"no_sandbox"       yaml:"no_sandbox"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	BrowserBin      string        `mapstructure:"browser_bin"      yaml:"browser_bin"`
	InitialWait     time.Duration `mapstructure:"initial_wait"     yaml:"initial_wait"`
	ClickSettle     time.Duration `mapstructure:"click_settle"     yaml:"click_settle"`
	ScrollWait      time.Duration `mapstructure:"scroll_wait"      yaml:"scroll_wait"`
	ScrollNudges    int           `mapstructure:"scroll_nudges"    yaml:"scroll_nudges"`
	ThinHTMLBytes   int           `mapstructure:"thin_html_bytes"  yaml:"thin_html_bytes"`
	WaitStableDelta time.Duration `mapstructure:"wait_stable"      yaml:"wait_stable"`
}

// CrawlConfig controls the crawl orchestrator.
type CrawlConfig struct {
	DetailWorkers     int           `mapstructure:"detail_workers"      yaml:"detail_workers"`
	DetailTimeout     time.Duration `mapstructure:"detail_timeout"      yaml:"detail_timeout"`
	DetailWait        time.Duration `mapstructure:"detail_wait"         yaml:"detail_wait"`
	MaxLoadMore       int           `mapstructure:"max_load_more"       yaml:"max_load_more"`
	StallTolerance    int           `mapstructure:"stall_tolerance"     yaml:"stall_tolerance"`
	PagingSettle      time.Duration `mapstructure:"paging_settle"       yaml:"paging_settle"`
	MaxPages          int           `mapstructure:"max_pages"           yaml:"max_pages"`
	ItemLimit         int           `mapstructure:"item_limit"          yaml:"item_limit"`
	FallbackControls  []string      `mapstructure:"fallback_controls"   yaml:"fallback_controls"`
	UseDetailFallback bool          `mapstructure:"use_detail_fallback" yaml:"use_detail_fallback"`
}

// ResolveConfig controls selector resolution.
type ResolveConfig struct {
	SampleLimit int `mapstructure:"sample_limit" yaml:"sample_limit"`
	ClimbDepth  int `mapstructure:"climb_depth"  yaml:"climb_depth"`
	BandMin     int `mapstructure:"band_min"     yaml:"band_min"`
	BandMax     int `mapstructure:"band_max"     yaml:"band_max"`
}

// StorageConfig selects the recipe, record and job backends.
type StorageConfig struct {
	Recipes   string      `mapstructure:"recipes"    yaml:"recipes"`
	RecipeDir string      `mapstructure:"recipe_dir" yaml:"recipe_dir"`
	Records   string      `mapstructure:"records"    yaml:"records"`
	Output    string      `mapstructure:"output"     yaml:"output"`
	Format    string      `mapstructure:"format"     yaml:"format"`
	Jobs      string      `mapstructure:"jobs"       yaml:"jobs"`
	JobsDSN   string      `mapstructure:"jobs_dsn"   yaml:"jobs_dsn"`
	Mongo     MongoConfig `mapstructure:"mongo"      yaml:"mongo"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI              string        `mapstructure:"uri"               yaml:"uri"`
	Database         string        `mapstructure:"database"          yaml:"database"`
	RecipeCollection string        `mapstructure:"recipe_collection" yaml:"recipe_collection"`
	RecordCollection string        `mapstructure:"record_collection" yaml:"record_collection"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"   yaml:"connect_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			StaticTimeout:   30 * time.Second,
			DynamicTimeout:  60 * time.Second,
			UserAgent:       DefaultUserAgent,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			Headless:        true,
			NoSandbox:       true,
			Stealth:         true,
			InitialWait:     1500 * time.Millisecond,
			ClickSettle:     1200 * time.Millisecond,
			ScrollWait:      800 * time.Millisecond,
			ScrollNudges:    3,
			ThinHTMLBytes:   5000,
			WaitStableDelta: 300 * time.Millisecond,
		},
		Crawl: CrawlConfig{
			DetailWorkers:  4,
			DetailTimeout:  45 * time.Second,
			DetailWait:     2 * time.Second,
			MaxLoadMore:    30,
			StallTolerance: 2,
			PagingSettle:   1200 * time.Millisecond,
			MaxPages:       50,
			FallbackControls: []string{
				"load more", "see more", "show more", "xem thêm", "next",
			},
			UseDetailFallback: true,
		},
		Resolve: ResolveConfig{
			SampleLimit: 20,
			ClimbDepth:  8,
			BandMin:     3,
			BandMax:     300,
		},
		Storage: StorageConfig{
			Recipes:   "file",
			RecipeDir: "./recipes",
			Records:   "file",
			Output:    "./output/records.json",
			Format:    "json",
			Jobs:      "sqlite",
			JobsDSN:   "file:listgoat.db?_pragma=busy_timeout(5000)",
			Mongo: MongoConfig{
				URI:              "mongodb://localhost:27017",
				Database:         "listgoat",
				RecipeCollection: "recipes",
				RecordCollection: "records",
				ConnectTimeout:   10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
