package types

import "strings"

// SelectionSpec names the clicked element. Exactly one field must be set.
type SelectionSpec struct {
	CSS   string `json:"css,omitempty"`
	XPath string `json:"xpath,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Validate returns ErrNoSelection unless exactly one field is set.
func (s SelectionSpec) Validate() error {
	n := 0
	for _, v := range []string{s.CSS, s.XPath, s.Text} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	if n != 1 {
		return ErrNoSelection
	}
	return nil
}

// AncestorSpec names the repeating item container. With Auto set the
// container is detected from the selection; with neither Auto nor a
// selector the selected element itself is the container.
type AncestorSpec struct {
	Auto  bool   `json:"auto,omitempty"`
	CSS   string `json:"css,omitempty"`
	XPath string `json:"xpath,omitempty"`
}

// AttributeSuggestion names attributes worth extracting instead of text.
type AttributeSuggestion struct {
	ImageAttr string `json:"image_attr,omitempty"`
	LinkAttr  string `json:"link_attr,omitempty"`
}

// ResolveRequest is the input to a resolve call.
type ResolveRequest struct {
	Render      RenderRequest `json:"render"`
	Selection   SelectionSpec `json:"selection"`
	Ancestor    AncestorSpec  `json:"ancestor"`
	SampleLimit int           `json:"sample_limit"`
}

// ResolveResult describes the selector that corresponds to a click.
type ResolveResult struct {
	AncestorXPath string              `json:"ancestor_xpath"`
	RelativeXPath string              `json:"relative_xpath"`
	Attributes    AttributeSuggestion `json:"attributes"`
	ItemsMatched  int                 `json:"items_matched"`
	CoveragePct   float64             `json:"field_coverage_pct"`
	Samples       []string            `json:"samples"`
	Warnings      []string            `json:"warnings"`
	Render        *RenderResult       `json:"render,omitempty"`
}

// ValidationReport summarizes a trial crawl of a candidate recipe.
type ValidationReport struct {
	ItemsFound int                `json:"items_found"`
	Coverage   map[string]float64 `json:"per_field_coverage"`
	Warnings   []string           `json:"warnings"`
	Samples    []*OutputRecord    `json:"samples"`
}
