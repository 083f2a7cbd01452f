// Package resolver answers "which selector corresponds to this click, and
// how good is it" for one rendered page.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/selector"
	"github.com/IshaanNene/listgoat/internal/types"
)

// Renderer obtains a page DOM.
type Renderer interface {
	Render(ctx context.Context, req types.RenderRequest) (*types.RenderResult, error)
}

// Resolver turns a selection on a rendered page into an item container
// XPath and an item-relative field XPath, and measures how well they
// generalize across the page's items.
type Resolver struct {
	renderer Renderer
	cfg      config.ResolveConfig
	logger   *slog.Logger
}

// New creates a resolver.
func New(renderer Renderer, cfg config.ResolveConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		renderer: renderer,
		cfg:      cfg,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve renders req.Render and resolves the selection against it.
func (r *Resolver) Resolve(ctx context.Context, req types.ResolveRequest) (*types.ResolveResult, error) {
	if err := req.Selection.Validate(); err != nil {
		return nil, err
	}
	rendered, err := r.renderer.Render(ctx, req.Render)
	if err != nil {
		return nil, err
	}
	res, err := r.ResolveDocument(rendered.HTML, req)
	if err != nil {
		return nil, err
	}
	res.Render = rendered
	return res, nil
}

// ResolveDocument resolves the selection against already rendered HTML.
func (r *Resolver) ResolveDocument(body string, req types.ResolveRequest) (*types.ResolveResult, error) {
	if err := req.Selection.Validate(); err != nil {
		return nil, err
	}
	doc, err := parser.Parse(body)
	if err != nil {
		return nil, err
	}

	node, err := locate(doc, req.Selection)
	if err != nil {
		return nil, err
	}

	ancestor, ancestorXPath, err := r.ancestor(doc, node, req.Ancestor)
	if err != nil {
		return nil, err
	}

	res := &types.ResolveResult{
		AncestorXPath: ancestorXPath,
		RelativeXPath: selector.RelativeXPath(ancestor, node),
		Samples:       []string{},
		Warnings:      []string{},
	}
	res.Attributes.ImageAttr, res.Attributes.LinkAttr = selector.SuggestAttributes(node)

	items, err := parser.QueryAll(doc, ancestorXPath)
	if err != nil {
		return nil, err
	}
	res.ItemsMatched = len(items)

	limit := r.sampleLimit(req.SampleLimit)
	sampled := items
	if len(sampled) > limit {
		sampled = sampled[:limit]
	}
	withValue := 0
	for _, item := range sampled {
		m, err := parser.Query(item, res.RelativeXPath)
		if err != nil || m == nil {
			continue
		}
		if v := parser.SampleValue(m, res.Attributes); v != "" {
			withValue++
			res.Samples = append(res.Samples, v)
		}
	}
	res.CoveragePct = coverage(withValue, res.ItemsMatched, limit)

	res.Warnings = append(res.Warnings, selector.LintField("", res.RelativeXPath)...)
	res.Warnings = append(res.Warnings, selector.LintAncestor(res.AncestorXPath, res.ItemsMatched)...)

	r.logger.Debug("selection resolved",
		"ancestor", res.AncestorXPath,
		"relative", res.RelativeXPath,
		"items", res.ItemsMatched,
		"coverage", res.CoveragePct,
	)
	return res, nil
}

func (r *Resolver) sampleLimit(n int) int {
	if n > 0 {
		return n
	}
	if r.cfg.SampleLimit > 0 {
		return r.cfg.SampleLimit
	}
	return 20
}

// coverage is the share of sampled items with a value, as a percentage
// rounded to two decimals. No items means zero coverage.
func coverage(withValue, matched, limit int) float64 {
	if matched <= 0 {
		return 0
	}
	denom := min(matched, max(1, limit))
	pct := float64(withValue) / float64(denom) * 100
	pct = math.Round(pct*100) / 100
	return math.Max(0, math.Min(100, pct))
}

// locate finds the selected element. XPath is used verbatim, CSS is
// translated first, and a text hint picks the deepest element containing
// it.
func locate(doc *html.Node, sel types.SelectionSpec) (*html.Node, error) {
	var (
		node *html.Node
		err  error
	)
	switch {
	case strings.TrimSpace(sel.XPath) != "":
		node, err = parser.Query(doc, strings.TrimSpace(sel.XPath))
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, fmt.Errorf("xpath %q: %w", sel.XPath, types.ErrNodeNotFound)
		}
	case strings.TrimSpace(sel.CSS) != "":
		xp := selector.Translate(sel.CSS)
		if xp == "" {
			return nil, types.ErrNoSelection
		}
		node, err = parser.Query(doc, xp)
		if err != nil {
			var serr *types.SelectorSyntaxError
			if errors.As(err, &serr) {
				serr.Expr = sel.CSS
			}
			return nil, err
		}
		if node == nil {
			return nil, fmt.Errorf("css %q (xpath %q): %w", sel.CSS, xp, types.ErrNodeNotFound)
		}
	default:
		node = parser.FindByText(doc, sel.Text)
		if node == nil {
			return nil, fmt.Errorf("text %q: %w", sel.Text, types.ErrNodeNotFound)
		}
	}

	for node != nil && node.Type != html.ElementNode {
		node = node.Parent
	}
	if node == nil {
		return nil, types.ErrNodeNotFound
	}
	return node, nil
}

// ancestor resolves the item container for node. An explicit selector
// wins, then auto-detection, and otherwise node is its own container.
func (r *Resolver) ancestor(doc, node *html.Node, spec types.AncestorSpec) (*html.Node, string, error) {
	explicit := strings.TrimSpace(spec.XPath)
	if explicit == "" && strings.TrimSpace(spec.CSS) != "" {
		explicit = selector.Translate(spec.CSS)
	}

	switch {
	case explicit != "":
		items, err := parser.QueryAll(doc, explicit)
		if err != nil {
			var serr *types.SelectorSyntaxError
			if errors.As(err, &serr) && spec.XPath == "" {
				serr.Expr = spec.CSS
			}
			return nil, "", err
		}
		set := make(map[*html.Node]bool, len(items))
		for _, it := range items {
			set[it] = true
		}
		for cur := node; cur != nil; cur = cur.Parent {
			if set[cur] {
				return cur, explicit, nil
			}
		}
		return nil, "", &types.AncestorNotFoundError{XPath: explicit}

	case spec.Auto:
		d := selector.Detector{MaxLevels: r.cfg.ClimbDepth, BandMin: r.cfg.BandMin, BandMax: r.cfg.BandMax}
		if d.MaxLevels <= 0 || d.BandMax <= 0 {
			d = selector.DefaultDetector()
		}
		c := d.Detect(doc, node)
		if c.Node == nil || c.Count == 0 {
			return nil, "", &types.AncestorNotFoundError{XPath: selector.RepeatingXPath(node)}
		}
		return c.Node, c.XPath, nil

	default:
		return node, selector.RepeatingXPath(node), nil
	}
}
