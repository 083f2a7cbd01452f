package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/listgoat/internal/automation"
	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

// Browser is one headless browser session. A session belongs to exactly
// one render or crawl call and is never shared between calls.
type Browser struct {
	browser *rod.Browser
	cfg     config.RenderConfig
	logger  *slog.Logger
}

// LaunchBrowser starts Chromium with the configured flags and connects to it.
func LaunchBrowser(cfg config.RenderConfig, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1366,900")
	if cfg.NoSandbox {
		l = l.NoSandbox(true).Set("disable-setuid-sandbox")
	}
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b := &Browser{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser"),
	}
	b.logger.Debug("browser session ready", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return b, nil
}

// NewPage opens a blank tab, patched against headless detection when
// stealth is on.
func (b *Browser) NewPage() (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	ua := b.cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		b.logger.Warn("failed to set user agent", "error", err)
	}
	return page, nil
}

// Navigate loads rawURL in page, waits for the DOM to settle and returns
// the URL after redirects.
func (b *Browser) Navigate(ctx context.Context, page *rod.Page, rawURL string) (string, error) {
	timeout := b.cfg.DynamicTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	p := page.Context(ctx).Timeout(timeout)

	if err := p.Navigate(rawURL); err != nil {
		return "", &types.RenderError{URL: rawURL, Mode: types.ModeDynamic, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		b.logger.Debug("page load wait failed, continuing", "url", rawURL, "error", err)
	}
	if b.cfg.WaitStableDelta > 0 {
		if err := p.WaitStable(b.cfg.WaitStableDelta); err != nil {
			b.logger.Debug("page stability timeout, continuing", "url", rawURL, "error", err)
		}
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}
	return finalURL, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	if b.browser == nil {
		return nil
	}
	return b.browser.Close()
}

// BrowserLoader renders a single URL in a fresh browser session, driving an
// optional load-more control or scroll nudges before taking the DOM.
type BrowserLoader struct {
	cfg    config.RenderConfig
	logger *slog.Logger
}

// NewBrowserLoader creates a loader that launches one session per Load.
func NewBrowserLoader(cfg config.RenderConfig, logger *slog.Logger) *BrowserLoader {
	return &BrowserLoader{cfg: cfg, logger: logger.With("component", "browser_loader")}
}

// Load implements PageLoader.
func (l *BrowserLoader) Load(ctx context.Context, req types.RenderRequest) (*Page, error) {
	fail := func(err error) (*Page, error) {
		return nil, &types.RenderError{URL: req.URL, Mode: types.ModeDynamic, Err: err}
	}

	b, err := LaunchBrowser(l.cfg, l.logger)
	if err != nil {
		return fail(err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return fail(err)
	}
	defer page.Close()

	finalURL, err := b.Navigate(ctx, page, req.URL)
	if err != nil {
		return nil, err
	}

	out := &Page{URL: finalURL}
	if !automation.Sleep(ctx, l.cfg.InitialWait) {
		return fail(ctx.Err())
	}

	ba := automation.NewBrowserAutomation(page.Context(ctx), l.logger)
	if req.LoadMoreSelector != "" && req.LoadMoreClicks > 0 {
		control := automation.Control{Selector: req.LoadMoreSelector}
		stats := automation.LoadMore(ctx, automation.NewControlPager(ba, control, ""), automation.LoadMoreOptions{
			MaxIterations: req.LoadMoreClicks,
			Settle:        l.cfg.ClickSettle,
		})
		out.Notes = append(out.Notes, fmt.Sprintf("load-more: %d of %d clicks (%s)", stats.Clicks, req.LoadMoreClicks, stats.Reason))
	} else if l.cfg.ScrollNudges > 0 {
		n := ba.ScrollNudges(ctx, l.cfg.ScrollNudges, l.cfg.ScrollWait)
		out.Notes = append(out.Notes, fmt.Sprintf("scrolled to bottom %d time(s)", n))
	}

	html, err := page.HTML()
	if err != nil {
		return fail(err)
	}
	out.HTML = html
	return out, nil
}

// Close implements PageLoader. Sessions are closed after every Load.
func (l *BrowserLoader) Close() error { return nil }
