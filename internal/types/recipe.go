package types

import (
	"net/url"
	"strings"
	"time"
)

// CrawlStrategy selects how list and detail pages are rendered.
type CrawlStrategy string

const (
	StrategyStatic  CrawlStrategy = "static"
	StrategyDynamic CrawlStrategy = "dynamic"
)

// ParseCrawlStrategy accepts the canonical names plus the legacy
// server_side/client_side aliases. Unknown values fall back to static.
func ParseCrawlStrategy(s string) CrawlStrategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dynamic", "client_side", "client-side", "browser":
		return StrategyDynamic
	default:
		return StrategyStatic
	}
}

// PagingType selects how additional list items are reached.
type PagingType string

const (
	PagingNone        PagingType = "none"
	PagingQueryString PagingType = "querystring"
	PagingLoadMore    PagingType = "load_more"
	PagingCarousel    PagingType = "carousel"
)

// ParsePagingType normalizes a paging name. Unknown values mean no paging.
func ParsePagingType(s string) PagingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "querystring", "query_string", "query":
		return PagingQueryString
	case "load_more", "loadmore", "load-more":
		return PagingLoadMore
	case "carousel":
		return PagingCarousel
	default:
		return PagingNone
	}
}

// Interactive reports whether the paging type needs a clickable control.
func (p PagingType) Interactive() bool {
	return p == PagingLoadMore || p == PagingCarousel
}

// LoadMoreKind says how LoadMore.Selector should be interpreted.
type LoadMoreKind string

const (
	LoadMoreByID    LoadMoreKind = "id"
	LoadMoreByClass LoadMoreKind = "class"
	LoadMoreByXPath LoadMoreKind = "xpath"
)

// NullSelector marks a recipe field as intentionally unset.
const NullSelector = "NULL"

// ListFields are item-relative selectors applied to each list item node.
type ListFields struct {
	Name              string `yaml:"name" json:"name" bson:"name"`
	Code              string `yaml:"code" json:"code" bson:"code"`
	Price             string `yaml:"price" json:"price" bson:"price"`
	Image             string `yaml:"image" json:"image" bson:"image"`
	ImageAttr         string `yaml:"image_attr" json:"image_attr" bson:"image_attr"`
	DetailURL         string `yaml:"detail_url" json:"detail_url" bson:"detail_url"`
	DetailURLAttr     string `yaml:"detail_url_attr" json:"detail_url_attr" bson:"detail_url_attr"`
	DepartureLocation string `yaml:"departure_location" json:"departure_location" bson:"departure_location"`
	DepartureDates    string `yaml:"departure_dates" json:"departure_dates" bson:"departure_dates"`
	Duration          string `yaml:"duration" json:"duration" bson:"duration"`
}

// DetailFields are document-level selectors applied to a detail page.
type DetailFields struct {
	DayTitle   string `yaml:"day_title" json:"day_title" bson:"day_title"`
	DayContent string `yaml:"day_content" json:"day_content" bson:"day_content"`
	Note       string `yaml:"note" json:"note" bson:"note"`
}

// LoadMore names the paging control for load_more and carousel paging.
type LoadMore struct {
	Selector string       `yaml:"selector" json:"selector" bson:"selector"`
	Kind     LoadMoreKind `yaml:"kind" json:"kind" bson:"kind"`
}

// Recipe is a declarative description of how to crawl one site.
type Recipe struct {
	ID         string        `yaml:"id" json:"id" bson:"_id"`
	Name       string        `yaml:"name" json:"name" bson:"name"`
	BaseDomain string        `yaml:"base_domain" json:"base_domain" bson:"base_domain"`
	BaseURL    string        `yaml:"base_url" json:"base_url" bson:"base_url"`
	Strategy   CrawlStrategy `yaml:"strategy" json:"strategy" bson:"strategy"`
	Paging     PagingType    `yaml:"paging" json:"paging" bson:"paging"`
	ItemList   string        `yaml:"item_list" json:"item_list" bson:"item_list"`
	Fields     ListFields    `yaml:"fields" json:"fields" bson:"fields"`
	Detail     DetailFields  `yaml:"detail" json:"detail" bson:"detail"`
	LoadMore   LoadMore      `yaml:"load_more" json:"load_more" bson:"load_more"`
	CreatedAt  time.Time     `yaml:"created_at,omitempty" json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time     `yaml:"updated_at,omitempty" json:"updated_at" bson:"updated_at"`
}

// Normalize fills defaults and canonicalizes enum values in place.
func (r *Recipe) Normalize() {
	r.Strategy = ParseCrawlStrategy(string(r.Strategy))
	r.Paging = ParsePagingType(string(r.Paging))
	if strings.TrimSpace(r.Fields.ImageAttr) == "" {
		r.Fields.ImageAttr = "src"
	}
	if strings.TrimSpace(r.Fields.DetailURLAttr) == "" {
		r.Fields.DetailURLAttr = "href"
	}
	if r.LoadMore.Selector != "" && r.LoadMore.Kind == "" {
		r.LoadMore.Kind = LoadMoreByClass
	}
	if r.BaseDomain == "" {
		if urls := r.BaseURLs(); len(urls) > 0 {
			r.BaseDomain = BaseDomainOf(urls[0])
		}
	}
	r.BaseDomain = strings.TrimRight(r.BaseDomain, "/")
}

// BaseURLs splits BaseURL on newlines and commas.
func (r *Recipe) BaseURLs() []string {
	parts := strings.FieldsFunc(r.BaseURL, func(c rune) bool {
		return c == '\n' || c == '\r' || c == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SourceSite is the recipe's host without a leading "www.".
func (r *Recipe) SourceSite() string {
	u, err := url.Parse(r.BaseDomain)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.TrimSpace(r.BaseDomain), "www.")
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FieldSelectors returns the non-empty item-relative selectors keyed by
// field name, in a stable order.
func (r *Recipe) FieldSelectors() []NamedSelector {
	all := []NamedSelector{
		{FieldName, r.Fields.Name},
		{FieldCode, r.Fields.Code},
		{FieldPrice, r.Fields.Price},
		{FieldImage, r.Fields.Image},
		{FieldDetailURL, r.Fields.DetailURL},
		{FieldDepartureLocation, r.Fields.DepartureLocation},
		{FieldDepartureDates, r.Fields.DepartureDates},
		{FieldDuration, r.Fields.Duration},
	}
	out := all[:0]
	for _, s := range all {
		if Selector(s.Selector) != "" {
			out = append(out, s)
		}
	}
	return out
}

// NamedSelector pairs an output field with its recipe selector.
type NamedSelector struct {
	Field    string
	Selector string
}

// Selector returns s trimmed, or "" when it is blank or the NULL marker.
func Selector(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NullSelector) {
		return ""
	}
	return s
}

// BaseDomainOf returns scheme://host for a raw URL, or "" if it has no host.
func BaseDomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}
