package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("LISTGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("listgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".listgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env vars bind to them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("render.static_timeout", cfg.Render.StaticTimeout)
	v.SetDefault("render.dynamic_timeout", cfg.Render.DynamicTimeout)
	v.SetDefault("render.user_agent", cfg.Render.UserAgent)
	v.SetDefault("render.max_body_size", cfg.Render.MaxBodySize)
	v.SetDefault("render.headless", cfg.Render.Headless)
	v.SetDefault("render.no_sandbox", cfg.Render.NoSandbox)
	v.SetDefault("render.stealth", cfg.Render.Stealth)
	v.SetDefault("render.browser_bin", cfg.Render.BrowserBin)
	v.SetDefault("render.initial_wait", cfg.Render.InitialWait)
	v.SetDefault("render.click_settle", cfg.Render.ClickSettle)
	v.SetDefault("render.scroll_wait", cfg.Render.ScrollWait)
	v.SetDefault("render.scroll_nudges", cfg.Render.ScrollNudges)
	v.SetDefault("render.thin_html_bytes", cfg.Render.ThinHTMLBytes)
	v.SetDefault("render.wait_stable", cfg.Render.WaitStableDelta)

	v.SetDefault("crawl.detail_workers", cfg.Crawl.DetailWorkers)
	v.SetDefault("crawl.detail_timeout", cfg.Crawl.DetailTimeout)
	v.SetDefault("crawl.detail_wait", cfg.Crawl.DetailWait)
	v.SetDefault("crawl.max_load_more", cfg.Crawl.MaxLoadMore)
	v.SetDefault("crawl.stall_tolerance", cfg.Crawl.StallTolerance)
	v.SetDefault("crawl.paging_settle", cfg.Crawl.PagingSettle)
	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)
	v.SetDefault("crawl.item_limit", cfg.Crawl.ItemLimit)
	v.SetDefault("crawl.fallback_controls", cfg.Crawl.FallbackControls)
	v.SetDefault("crawl.use_detail_fallback", cfg.Crawl.UseDetailFallback)

	v.SetDefault("resolve.sample_limit", cfg.Resolve.SampleLimit)
	v.SetDefault("resolve.climb_depth", cfg.Resolve.ClimbDepth)
	v.SetDefault("resolve.band_min", cfg.Resolve.BandMin)
	v.SetDefault("resolve.band_max", cfg.Resolve.BandMax)

	v.SetDefault("storage.recipes", cfg.Storage.Recipes)
	v.SetDefault("storage.recipe_dir", cfg.Storage.RecipeDir)
	v.SetDefault("storage.records", cfg.Storage.Records)
	v.SetDefault("storage.output", cfg.Storage.Output)
	v.SetDefault("storage.format", cfg.Storage.Format)
	v.SetDefault("storage.jobs", cfg.Storage.Jobs)
	v.SetDefault("storage.jobs_dsn", cfg.Storage.JobsDSN)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.recipe_collection", cfg.Storage.Mongo.RecipeCollection)
	v.SetDefault("storage.mongo.record_collection", cfg.Storage.Mongo.RecordCollection)
	v.SetDefault("storage.mongo.connect_timeout", cfg.Storage.Mongo.ConnectTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
