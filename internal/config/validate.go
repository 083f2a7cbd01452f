package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Render.StaticTimeout <= 0 {
		return fmt.Errorf("render.static_timeout must be > 0")
	}
	if cfg.Render.DynamicTimeout <= 0 {
		return fmt.Errorf("render.dynamic_timeout must be > 0")
	}
	if cfg.Render.MaxBodySize <= 0 {
		return fmt.Errorf("render.max_body_size must be > 0")
	}
	if cfg.Render.ThinHTMLBytes < 0 {
		return fmt.Errorf("render.thin_html_bytes must be >= 0, got %d", cfg.Render.ThinHTMLBytes)
	}
	if cfg.Render.ScrollNudges < 0 {
		return fmt.Errorf("render.scroll_nudges must be >= 0, got %d", cfg.Render.ScrollNudges)
	}

	if cfg.Crawl.DetailWorkers < 1 {
		return fmt.Errorf("crawl.detail_workers must be >= 1, got %d", cfg.Crawl.DetailWorkers)
	}
	if cfg.Crawl.DetailWorkers > 64 {
		return fmt.Errorf("crawl.detail_workers must be <= 64, got %d", cfg.Crawl.DetailWorkers)
	}
	if cfg.Crawl.MaxLoadMore < 0 {
		return fmt.Errorf("crawl.max_load_more must be >= 0, got %d", cfg.Crawl.MaxLoadMore)
	}
	if cfg.Crawl.StallTolerance < 1 {
		return fmt.Errorf("crawl.stall_tolerance must be >= 1, got %d", cfg.Crawl.StallTolerance)
	}
	if cfg.Crawl.MaxPages < 1 {
		return fmt.Errorf("crawl.max_pages must be >= 1, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.ItemLimit < 0 {
		return fmt.Errorf("crawl.item_limit must be >= 0, got %d", cfg.Crawl.ItemLimit)
	}

	if cfg.Resolve.SampleLimit < 1 {
		return fmt.Errorf("resolve.sample_limit must be >= 1, got %d", cfg.Resolve.SampleLimit)
	}
	if cfg.Resolve.ClimbDepth < 1 {
		return fmt.Errorf("resolve.climb_depth must be >= 1, got %d", cfg.Resolve.ClimbDepth)
	}
	if cfg.Resolve.BandMin < 1 || cfg.Resolve.BandMin > cfg.Resolve.BandMax {
		return fmt.Errorf("resolve band must satisfy 1 <= band_min <= band_max, got [%d, %d]",
			cfg.Resolve.BandMin, cfg.Resolve.BandMax)
	}

	validRecipes := map[string]bool{"file": true, "mongo": true, "memory": true}
	if !validRecipes[cfg.Storage.Recipes] {
		return fmt.Errorf("storage.recipes %q is not supported (valid: file, mongo, memory)", cfg.Storage.Recipes)
	}
	validRecords := map[string]bool{"file": true, "mongo": true, "memory": true}
	if !validRecords[cfg.Storage.Records] {
		return fmt.Errorf("storage.records %q is not supported (valid: file, mongo, memory)", cfg.Storage.Records)
	}
	if cfg.Storage.Format != "json" && cfg.Storage.Format != "jsonl" {
		return fmt.Errorf("storage.format must be 'json' or 'jsonl', got %q", cfg.Storage.Format)
	}
	if cfg.Storage.Jobs != "sqlite" && cfg.Storage.Jobs != "memory" {
		return fmt.Errorf("storage.jobs must be 'sqlite' or 'memory', got %q", cfg.Storage.Jobs)
	}
	if cfg.Storage.Recipes == "mongo" || cfg.Storage.Records == "mongo" {
		if cfg.Storage.Mongo.URI == "" || cfg.Storage.Mongo.Database == "" {
			return fmt.Errorf("storage.mongo.uri and storage.mongo.database are required for the mongo backend")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
