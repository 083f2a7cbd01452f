package types

import (
	"fmt"
	"strings"
)

// RenderMode selects how a page's DOM is obtained.
type RenderMode string

const (
	ModeStatic  RenderMode = "static"
	ModeDynamic RenderMode = "dynamic"
	ModeAuto    RenderMode = "auto"
)

// ParseRenderMode validates a mode name. Empty means auto.
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "static", "server_side":
		return ModeStatic, nil
	case "dynamic", "client_side":
		return ModeDynamic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// RenderRequest describes one page render.
type RenderRequest struct {
	URL              string     `json:"url"`
	Mode             RenderMode `json:"mode"`
	LoadMoreSelector string     `json:"load_more_selector,omitempty"`
	LoadMoreClicks   int        `json:"load_more_clicks,omitempty"`
}

// RenderResult is the outcome of a render. Logs are human readable notes
// about what the renderer did, including any fallback.
type RenderResult struct {
	FinalURL   string     `json:"final_url"`
	BaseDomain string     `json:"base_domain"`
	HTML       string     `json:"-"`
	ModeUsed   RenderMode `json:"mode_used"`
	Logs       []string   `json:"logs"`
}

// Logf appends a formatted line to the render log.
func (r *RenderResult) Logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}
