// Package fetcher obtains page DOMs, either from a plain HTTP GET or from
// a headless browser session, and picks between the two in auto mode.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

// Page is what a PageLoader returns for one URL.
type Page struct {
	URL   string
	HTML  string
	Notes []string
}

// PageLoader loads the DOM of one URL.
type PageLoader interface {
	Load(ctx context.Context, req types.RenderRequest) (*Page, error)
	Close() error
}

// Renderer implements static, dynamic and auto rendering over a pair of
// loaders.
type Renderer struct {
	cfg     config.RenderConfig
	static  PageLoader
	dynamic PageLoader
	logger  *slog.Logger
}

// NewRenderer creates a renderer backed by a StaticClient and a
// BrowserLoader.
func NewRenderer(cfg config.RenderConfig, logger *slog.Logger) (*Renderer, error) {
	static, err := NewStaticClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewRendererWith(cfg, static, NewBrowserLoader(cfg, logger), logger), nil
}

// NewRendererWith creates a renderer over the given loaders.
func NewRendererWith(cfg config.RenderConfig, static, dynamic PageLoader, logger *slog.Logger) *Renderer {
	return &Renderer{
		cfg:     cfg,
		static:  static,
		dynamic: dynamic,
		logger:  logger.With("component", "renderer"),
	}
}

// Render fetches req.URL in the requested mode. In auto mode a failed or
// thin static response falls back to dynamic rendering and the fallback
// is recorded in the result's logs.
func (r *Renderer) Render(ctx context.Context, req types.RenderRequest) (*types.RenderResult, error) {
	req.URL = NormalizeURL(req.URL)
	if req.URL == "" {
		return nil, &types.RenderError{URL: req.URL, Mode: req.Mode, Err: errors.New("empty url")}
	}
	if err := config.ValidateURL(req.URL); err != nil {
		return nil, &types.RenderError{URL: req.URL, Mode: req.Mode, Err: err}
	}
	if req.Mode == "" {
		req.Mode = types.ModeAuto
	}

	res := &types.RenderResult{FinalURL: req.URL, BaseDomain: BaseDomain(req.URL)}

	switch req.Mode {
	case types.ModeStatic:
		err := r.load(ctx, r.static, types.ModeStatic, req, res)
		return r.done(res, err)

	case types.ModeDynamic:
		err := r.load(ctx, r.dynamic, types.ModeDynamic, req, res)
		return r.done(res, err)

	case types.ModeAuto:
		err := r.load(ctx, r.static, types.ModeStatic, req, res)
		switch {
		case err != nil:
			r.logf(res, "static render failed (%v); falling back to dynamic", err)
		case len(res.HTML) < r.cfg.ThinHTMLBytes:
			r.logf(res, "static html is thin (%d < %d bytes); falling back to dynamic", len(res.HTML), r.cfg.ThinHTMLBytes)
		default:
			return r.done(res, nil)
		}

		thin := err == nil
		staticHTML, staticURL := res.HTML, res.FinalURL
		if derr := r.load(ctx, r.dynamic, types.ModeDynamic, req, res); derr != nil {
			if thin {
				r.logf(res, "dynamic render failed (%v); keeping static html", derr)
				res.HTML, res.FinalURL, res.ModeUsed = staticHTML, staticURL, types.ModeStatic
				return r.done(res, nil)
			}
			return r.done(res, derr)
		}
		return r.done(res, nil)
	}

	return nil, fmt.Errorf("%w: %q", types.ErrInvalidMode, req.Mode)
}

func (r *Renderer) load(ctx context.Context, l PageLoader, mode types.RenderMode, req types.RenderRequest, res *types.RenderResult) error {
	if l == nil {
		return &types.RenderError{URL: req.URL, Mode: mode, Err: errors.New("no loader configured")}
	}
	page, err := l.Load(ctx, req)
	if err != nil {
		return err
	}
	res.ModeUsed = mode
	res.HTML = page.HTML
	if page.URL != "" {
		res.FinalURL = page.URL
		if d := BaseDomain(page.URL); d != "" {
			res.BaseDomain = d
		}
	}
	for _, n := range page.Notes {
		r.logf(res, "%s", n)
	}
	r.logf(res, "%s render of %s returned %d bytes", mode, res.FinalURL, len(page.HTML))
	return nil
}

func (r *Renderer) done(res *types.RenderResult, err error) (*types.RenderResult, error) {
	if err != nil {
		r.logger.Warn("render failed", "url", res.FinalURL, "error", err)
		return nil, err
	}
	return res, nil
}

func (r *Renderer) logf(res *types.RenderResult, format string, args ...any) {
	res.Logf(format, args...)
	r.logger.Debug(res.Logs[len(res.Logs)-1], "url", res.FinalURL)
}

// Close releases both loaders.
func (r *Renderer) Close() error {
	var errs []error
	for _, l := range []PageLoader{r.static, r.dynamic} {
		if l != nil {
			if err := l.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
