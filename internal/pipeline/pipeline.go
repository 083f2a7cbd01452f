// Package pipeline normalizes crawled records through a chain of
// middleware before they are stored.
package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/listgoat/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.OutputRecord) (*types.OutputRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default builds the standard record chain for a recipe: clean text,
// absolute URLs, departure dates, noise filter and source stamping.
func Default(recipe *types.Recipe, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&CleanMiddleware{})
	p.Use(&AbsoluteURLMiddleware{BaseDomain: recipe.BaseDomain})
	p.Use(&DepartureDateMiddleware{})
	p.Use(&NoiseFilterMiddleware{})
	p.Use(&SourceMiddleware{Site: recipe.SourceSite(), RecipeID: recipe.ID})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order. A nil record
// with a nil error means it was dropped.
func (p *Pipeline) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "detail_url", rec.DetailURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
