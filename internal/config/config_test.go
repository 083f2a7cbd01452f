package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Crawl.DetailWorkers = 0 }},
		{"inverted band", func(c *Config) { c.Resolve.BandMin, c.Resolve.BandMax = 10, 5 }},
		{"zero stall tolerance", func(c *Config) { c.Crawl.StallTolerance = 0 }},
		{"unknown record backend", func(c *Config) { c.Storage.Records = "csv" }},
		{"unknown format", func(c *Config) { c.Storage.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"mongo without uri", func(c *Config) {
			c.Storage.Records = "mongo"
			c.Storage.Mongo.URI = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "listgoat.yaml")
	data := []byte(`
render:
  thin_html_bytes: 1234
  click_settle: 2s
crawl:
  detail_workers: 8
storage:
  records: memory
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.ThinHTMLBytes != 1234 {
		t.Errorf("thin_html_bytes = %d, want 1234", cfg.Render.ThinHTMLBytes)
	}
	if cfg.Render.ClickSettle != 2*time.Second {
		t.Errorf("click_settle = %v, want 2s", cfg.Render.ClickSettle)
	}
	if cfg.Crawl.DetailWorkers != 8 {
		t.Errorf("detail_workers = %d, want 8", cfg.Crawl.DetailWorkers)
	}
	if cfg.Storage.Records != "memory" {
		t.Errorf("storage.records = %q, want memory", cfg.Storage.Records)
	}
	// Untouched keys keep their defaults.
	if cfg.Resolve.SampleLimit != 20 {
		t.Errorf("sample_limit = %d, want 20", cfg.Resolve.SampleLimit)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://example.com/tours"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateURL("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
