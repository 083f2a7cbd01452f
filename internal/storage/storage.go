// Package storage holds the recipe config store, the record persistence
// store and the crawl job history, each with MongoDB, file, SQLite and
// in-memory backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

// RecipeStore loads and saves recipes by id.
type RecipeStore interface {
	LoadRecipe(ctx context.Context, id string) (*types.Recipe, error)
	SaveRecipe(ctx context.Context, r *types.Recipe) (string, error)
	Close() error
}

// RecordStore persists crawled records. SaveRecords upserts by
// (source site, code) and returns how many records were written. Exists
// matches a detail URL on any site and a code only within site.
type RecordStore interface {
	SaveRecords(ctx context.Context, recs []*types.OutputRecord) (int, error)
	Exists(ctx context.Context, site, code, detailURL string) (bool, error)
	Close() error
}

// JobStore keeps the history of asynchronous crawls.
type JobStore interface {
	Create(ctx context.Context, recipeID string) (string, error)
	Update(ctx context.Context, id string, status types.JobStatus, log string) error
	Get(ctx context.Context, id string) (*types.CrawlJob, error)
	List(ctx context.Context, limit int) ([]*types.CrawlJob, error)
	Close() error
}

// recordKey is the upsert identity of a record: its code within a site,
// or its detail URL when it has no code.
func recordKey(r *types.OutputRecord) string {
	if code := strings.TrimSpace(r.Code); code != "" {
		return r.SourceSite + "|code|" + code
	}
	return r.SourceSite + "|url|" + strings.TrimSpace(r.DetailURL)
}

// matches reports whether r is the record Exists(site, code, detailURL)
// asks about. A detail URL is the stronger identity and is checked first.
// Codes are only unique within a site.
func matches(r *types.OutputRecord, site, code, detailURL string) bool {
	if detailURL = strings.TrimSpace(detailURL); detailURL != "" && r.DetailURL == detailURL {
		return true
	}
	code = strings.TrimSpace(code)
	return code != "" && r.Code == code && r.SourceSite == site
}

// Stores bundles the three backends a CLI run needs.
type Stores struct {
	Recipes RecipeStore
	Records RecordStore
	Jobs    JobStore
}

// Close closes every backend and returns the first error.
func (s *Stores) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{s.Recipes, s.Records, s.Jobs} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open builds the configured backends. A MongoDB connection is shared when
// both recipes and records live there; closing it twice is harmless.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Stores, error) {
	s := &Stores{}
	var mongo *MongoStore
	mongoStore := func() (*MongoStore, error) {
		if mongo != nil {
			return mongo, nil
		}
		m, err := NewMongoStore(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		mongo = m
		return m, nil
	}
	memory := NewMemoryStore()

	switch cfg.Recipes {
	case "file", "":
		s.Recipes = NewFileRecipeStore(cfg.RecipeDir, logger)
	case "mongo":
		m, err := mongoStore()
		if err != nil {
			return nil, err
		}
		s.Recipes = m
	case "memory":
		s.Recipes = memory
	default:
		return nil, fmt.Errorf("unknown recipe backend %q", cfg.Recipes)
	}

	switch cfg.Records {
	case "file", "":
		fs, err := NewFileRecordStore(cfg.Output, cfg.Format, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Records = fs
	case "mongo":
		m, err := mongoStore()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Records = m
	case "memory":
		s.Records = memory
	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown record backend %q", cfg.Records)
	}

	switch cfg.Jobs {
	case "sqlite", "":
		js, err := NewSQLiteJobStore(ctx, cfg.JobsDSN, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Jobs = js
	case "memory":
		s.Jobs = memory
	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown job backend %q", cfg.Jobs)
	}

	return s, nil
}
