// Package validator runs a trial crawl of a recipe and reports how well
// each output field is filled.
package validator

import (
	"context"
	"log/slog"
	"math"

	"github.com/IshaanNene/listgoat/internal/engine"
	"github.com/IshaanNene/listgoat/internal/selector"
	"github.com/IshaanNene/listgoat/internal/types"
)

// DefaultSampleLimit is the number of sample records returned when the
// caller does not ask for a specific count.
const DefaultSampleLimit = 20

// Crawler runs a recipe. *engine.Engine satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, recipe *types.Recipe, itemLimit int) (*engine.Result, error)
}

// Validator is the coverage gate applied to candidate recipes.
type Validator struct {
	crawler Crawler
	logger  *slog.Logger
}

// New creates a validator. The crawler should not be backed by a record
// store, or records already persisted would be reported as missing.
func New(crawler Crawler, logger *slog.Logger) *Validator {
	return &Validator{
		crawler: crawler,
		logger:  logger.With("component", "validator"),
	}
}

// Validate crawls recipe and returns per-field coverage, lint warnings and
// up to sampleLimit sample records. Selector warnings are reported even
// when the crawl itself fails.
func (v *Validator) Validate(ctx context.Context, recipe *types.Recipe, sampleLimit int) (*types.ValidationReport, error) {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}

	report := &types.ValidationReport{
		Coverage: make(map[string]float64, len(types.OutputFields)),
		Warnings: Lint(recipe),
		Samples:  []*types.OutputRecord{},
	}

	res, err := v.crawler.Crawl(ctx, recipe, 0)
	if err != nil {
		return report, err
	}

	recs := res.Records
	report.ItemsFound = len(recs)
	for _, field := range types.OutputFields {
		report.Coverage[field] = Coverage(recs, field)
	}
	if len(recs) == 0 {
		report.Warnings = append(report.Warnings, "no records were produced: check the item list selector and paging type")
	}
	report.Samples = recs[:min(sampleLimit, len(recs))]

	v.logger.Info("recipe validated",
		"recipe", recipe.ID,
		"items", report.ItemsFound,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

// Lint returns advisory warnings for the recipe's item-relative field
// selectors, deduplicated in order.
func Lint(recipe *types.Recipe) []string {
	warnings := []string{}
	seen := make(map[string]bool)
	for _, s := range recipe.FieldSelectors() {
		for _, w := range selector.LintField(s.Field, types.Selector(s.Selector)) {
			if !seen[w] {
				seen[w] = true
				warnings = append(warnings, w)
			}
		}
	}
	return warnings
}

// Coverage is the percentage of recs carrying field, rounded to two
// decimals. An empty batch has zero coverage.
func Coverage(recs []*types.OutputRecord, field string) float64 {
	if len(recs) == 0 {
		return 0
	}
	with := 0
	for _, r := range recs {
		if r.HasField(field) {
			with++
		}
	}
	return math.Round(10000*float64(with)/float64(len(recs))) / 100
}
