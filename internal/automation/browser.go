package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/types"
)

// BrowserAutomation wraps a Rod page with the interactions paging needs.
type BrowserAutomation struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewBrowserAutomation wraps a Rod page with automation helpers.
func NewBrowserAutomation(page *rod.Page, logger *slog.Logger) *BrowserAutomation {
	return &BrowserAutomation{
		page:   page,
		logger: logger.With("component", "browser_automation"),
	}
}

// Control describes how to find a paging control.
type Control struct {
	Selector string
	Kind     types.LoadMoreKind
	// TextPatterns are lower-case labels tried when Selector finds nothing.
	TextPatterns []string
}

// ControlQuery says how a selector will be run against the page.
type ControlQuery struct {
	XPath bool
	Expr  string
}

// ResolveControl turns a selector and its declared kind into a page query.
// Without a kind: a leading // means XPath, a leading . or # or any space
// or bracket means CSS, and anything else is taken as a bare class name.
func ResolveControl(selector string, kind types.LoadMoreKind) ControlQuery {
	sel := strings.TrimSpace(selector)
	switch kind {
	case types.LoadMoreByXPath:
		return ControlQuery{XPath: true, Expr: sel}
	case types.LoadMoreByID:
		return ControlQuery{Expr: "#" + strings.TrimPrefix(sel, "#")}
	case types.LoadMoreByClass:
		if strings.HasPrefix(sel, "//") {
			return ControlQuery{XPath: true, Expr: sel}
		}
		return ControlQuery{Expr: classQuery(sel)}
	}

	switch {
	case strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, "(//"):
		return ControlQuery{XPath: true, Expr: sel}
	case strings.HasPrefix(sel, ".") || strings.HasPrefix(sel, "#") ||
		strings.ContainsAny(sel, " [>:"):
		return ControlQuery{Expr: sel}
	default:
		return ControlQuery{Expr: classQuery(sel)}
	}
}

// classQuery turns "btn load-more" or ".btn.load-more" into ".btn.load-more".
func classQuery(sel string) string {
	if strings.HasPrefix(sel, ".") && !strings.Contains(sel, " ") {
		return sel
	}
	fields := strings.Fields(strings.ReplaceAll(sel, ".", " "))
	if len(fields) == 0 {
		return sel
	}
	return "." + strings.Join(fields, ".")
}

// FindControl returns the first visible, enabled element matching the
// control, falling back to clickable elements whose text matches one of
// the text patterns. It returns nil when nothing qualifies.
func (ba *BrowserAutomation) FindControl(ctx context.Context, c Control) (*rod.Element, error) {
	page := ba.page.Context(ctx)

	if strings.TrimSpace(c.Selector) != "" {
		q := ResolveControl(c.Selector, c.Kind)
		var (
			els rod.Elements
			err error
		)
		if q.XPath {
			els, err = page.ElementsX(q.Expr)
		} else {
			els, err = page.Elements(q.Expr)
		}
		if err != nil {
			return nil, fmt.Errorf("query control %q: %w", q.Expr, err)
		}
		if el := firstUsable(els); el != nil {
			return el, nil
		}
	}

	if len(c.TextPatterns) == 0 {
		return nil, nil
	}
	els, err := page.Elements("button, a, [role='button'], input[type='button']")
	if err != nil {
		return nil, fmt.Errorf("query text controls: %w", err)
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" || len(text) > 40 {
			continue
		}
		for _, p := range c.TextPatterns {
			if strings.Contains(text, p) && usable(el) {
				return el, nil
			}
		}
	}
	return nil, nil
}

func firstUsable(els rod.Elements) *rod.Element {
	for _, el := range els {
		if usable(el) {
			return el
		}
	}
	return nil
}

func usable(el *rod.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	disabled, err := el.Attribute("disabled")
	if err == nil && disabled != nil {
		return false
	}
	ariaDisabled, err := el.Attribute("aria-disabled")
	return err != nil || ariaDisabled == nil || *ariaDisabled != "true"
}

// Click scrolls the element into view and clicks it, falling back to a
// script click when the element is covered.
func (ba *BrowserAutomation) Click(el *rod.Element) error {
	_ = el.ScrollIntoView()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
		return nil
	}
	if _, err := el.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("click control: %w", err)
	}
	return nil
}

// ScrollToBottom scrolls to the bottom of the page.
func (ba *BrowserAutomation) ScrollToBottom() error {
	_, err := ba.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// ScrollNudges scrolls to the bottom n times, waiting between scrolls so
// lazy content can load.
func (ba *BrowserAutomation) ScrollNudges(ctx context.Context, n int, wait time.Duration) int {
	done := 0
	for i := 0; i < n; i++ {
		if err := ba.ScrollToBottom(); err != nil {
			ba.logger.Debug("scroll failed", "error", err)
			break
		}
		done++
		if !Sleep(ctx, wait) {
			break
		}
	}
	return done
}

// ControlPager is a Pager over a live page: Next clicks the paging
// control and Count evaluates the item XPath against the current DOM.
type ControlPager struct {
	ba        *BrowserAutomation
	control   Control
	itemXPath string
}

// NewControlPager creates a pager for the given control and item XPath.
func NewControlPager(ba *BrowserAutomation, control Control, itemXPath string) *ControlPager {
	return &ControlPager{ba: ba, control: control, itemXPath: itemXPath}
}

// Next implements Pager.
func (p *ControlPager) Next(ctx context.Context) (bool, error) {
	el, err := p.ba.FindControl(ctx, p.control)
	if err != nil {
		p.ba.logger.Debug("control lookup failed", "error", err)
		return false, nil
	}
	if el == nil {
		return false, nil
	}
	if err := p.ba.Click(el); err != nil {
		p.ba.logger.Debug("control click failed", "error", err)
		return false, nil
	}
	return true, nil
}

// Count implements Pager.
func (p *ControlPager) Count(ctx context.Context) (int, error) {
	if p.itemXPath == "" {
		return 0, nil
	}
	body, err := p.ba.page.Context(ctx).HTML()
	if err != nil {
		return 0, err
	}
	doc, err := parser.Parse(body)
	if err != nil {
		return 0, nil
	}
	return parser.Count(doc, p.itemXPath)
}
