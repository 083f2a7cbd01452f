package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"

	"github.com/IshaanNene/listgoat/internal/automation"
	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/fetcher"
	"github.com/IshaanNene/listgoat/internal/types"
)

// Strategy is the crawl variant chosen once per recipe.
type Strategy struct {
	Crawl  types.CrawlStrategy
	Paging types.PagingType
}

// StrategyFor derives the strategy from a recipe.
func StrategyFor(r *types.Recipe) Strategy {
	return Strategy{
		Crawl:  types.ParseCrawlStrategy(string(r.Strategy)),
		Paging: types.ParsePagingType(string(r.Paging)),
	}
}

func (s Strategy) String() string {
	return string(s.Crawl) + "/" + string(s.Paging)
}

// ListRequest asks a session for one list page.
type ListRequest struct {
	URL       string
	ItemXPath string
	// Control is driven when Interactive is set.
	Control     automation.Control
	Interactive bool
}

// ListPage is a rendered list page.
type ListPage struct {
	URL   string
	HTML  string
	Notes []string
}

// Session renders the pages of one crawl. List calls are sequential;
// Detail may be called from several workers at once.
type Session interface {
	List(ctx context.Context, req ListRequest) (*ListPage, error)
	Detail(ctx context.Context, url string) (string, error)
	Close() error
}

// SessionFunc opens a session for a strategy.
type SessionFunc func(ctx context.Context, s Strategy) (Session, error)

// DefaultSessions opens a static HTTP session or a browser session.
func DefaultSessions(render config.RenderConfig, crawl config.CrawlConfig, logger *slog.Logger) SessionFunc {
	return func(ctx context.Context, s Strategy) (Session, error) {
		if s.Crawl == types.StrategyDynamic {
			return newBrowserSession(render, crawl, logger)
		}
		client, err := fetcher.NewStaticClient(render, logger)
		if err != nil {
			return nil, err
		}
		return &staticSession{client: client}, nil
	}
}

// --- Static ---

type staticSession struct {
	client *fetcher.StaticClient
}

func (s *staticSession) List(ctx context.Context, req ListRequest) (*ListPage, error) {
	body, finalURL, err := s.client.Get(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return &ListPage{URL: finalURL, HTML: body}, nil
}

func (s *staticSession) Detail(ctx context.Context, url string) (string, error) {
	body, _, err := s.client.Get(ctx, url)
	return body, err
}

func (s *staticSession) Close() error { return s.client.Close() }

// --- Dynamic ---

// browserSession owns one browser for the whole crawl. The list is
// rendered in a single tab and every detail page gets its own tab.
type browserSession struct {
	browser *fetcher.Browser
	render  config.RenderConfig
	crawl   config.CrawlConfig
	logger  *slog.Logger

	mu   sync.Mutex
	list *rod.Page
}

func newBrowserSession(render config.RenderConfig, crawl config.CrawlConfig, logger *slog.Logger) (*browserSession, error) {
	b, err := fetcher.LaunchBrowser(render, logger)
	if err != nil {
		return nil, &types.RenderError{Mode: types.ModeDynamic, Err: err}
	}
	return &browserSession{
		browser: b,
		render:  render,
		crawl:   crawl,
		logger:  logger.With("component", "browser_session"),
	}, nil
}

func (s *browserSession) listPage() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list != nil {
		return s.list, nil
	}
	page, err := s.browser.NewPage()
	if err != nil {
		return nil, err
	}
	s.list = page
	return page, nil
}

func (s *browserSession) List(ctx context.Context, req ListRequest) (*ListPage, error) {
	fail := func(err error) (*ListPage, error) {
		return nil, &types.RenderError{URL: req.URL, Mode: types.ModeDynamic, Err: err}
	}

	page, err := s.listPage()
	if err != nil {
		return fail(err)
	}
	finalURL, err := s.browser.Navigate(ctx, page, req.URL)
	if err != nil {
		return nil, err
	}
	if !automation.Sleep(ctx, s.render.InitialWait) {
		return fail(ctx.Err())
	}

	out := &ListPage{URL: finalURL}
	ba := automation.NewBrowserAutomation(page.Context(ctx), s.logger)
	if req.Interactive {
		stats := automation.LoadMore(ctx, automation.NewControlPager(ba, req.Control, req.ItemXPath), automation.LoadMoreOptions{
			MaxIterations:  s.crawl.MaxLoadMore,
			StallTolerance: s.crawl.StallTolerance,
			Settle:         s.crawl.PagingSettle,
		})
		out.Notes = append(out.Notes, fmt.Sprintf("paging: %d clicks, items %d -> %d (%s)",
			stats.Clicks, stats.FirstCount, stats.FinalCount, stats.Reason))
		if stats.Err != nil {
			s.logger.Warn("paging stopped on error", "url", req.URL, "error", stats.Err)
		}
	} else if s.render.ScrollNudges > 0 {
		n := ba.ScrollNudges(ctx, s.render.ScrollNudges, s.render.ScrollWait)
		out.Notes = append(out.Notes, fmt.Sprintf("scrolled to bottom %d time(s)", n))
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return fail(err)
	}
	out.HTML = html
	return out, nil
}

func (s *browserSession) Detail(ctx context.Context, url string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &types.RenderError{URL: url, Mode: types.ModeDynamic, Err: err}
	}

	tab, err := s.browser.NewPage()
	if err != nil {
		return fail(err)
	}
	defer tab.Close()

	if _, err := s.browser.Navigate(ctx, tab, url); err != nil {
		return "", err
	}
	if !automation.Sleep(ctx, s.crawl.DetailWait) {
		return fail(ctx.Err())
	}
	html, err := tab.Context(ctx).HTML()
	if err != nil {
		return fail(err)
	}
	return html, nil
}

func (s *browserSession) Close() error {
	s.mu.Lock()
	if s.list != nil {
		_ = s.list.Close()
		s.list = nil
	}
	s.mu.Unlock()
	return s.browser.Close()
}
