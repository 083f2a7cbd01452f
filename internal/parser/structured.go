package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageMeta is what a page says about itself in JSON-LD and OpenGraph.
type PageMeta struct {
	Name  string
	Image string
	Price string
}

// ExtractMeta reads JSON-LD objects first and fills what they lack from
// og: and product: meta tags.
func ExtractMeta(root *html.Node) PageMeta {
	var m PageMeta
	if root == nil {
		return m
	}
	doc := goquery.NewDocumentFromNode(root)

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		for _, obj := range decodeJSONLD(sel.Text()) {
			m.fill(PageMeta{
				Name:  stringValue(obj["name"]),
				Image: imageValue(obj["image"]),
				Price: offerPrice(obj["offers"]),
			})
		}
	})

	og := func(prop string) string {
		v, _ := doc.Find(`meta[property="` + prop + `"]`).First().Attr("content")
		return CleanText(v)
	}
	m.fill(PageMeta{
		Name:  og("og:title"),
		Image: og("og:image"),
		Price: og("product:price:amount"),
	})
	return m
}

func (m *PageMeta) fill(o PageMeta) {
	if m.Name == "" {
		m.Name = o.Name
	}
	if m.Image == "" {
		m.Image = o.Image
	}
	if m.Price == "" {
		m.Price = o.Price
	}
}

// decodeJSONLD returns the objects in a JSON-LD block: a single object, an
// array of objects, or the members of an @graph.
func decodeJSONLD(raw string) []map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var out []map[string]any
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		out = append(out, obj)
	} else {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil
		}
		out = arr
	}

	var flat []map[string]any
	for _, o := range out {
		if graph, ok := o["@graph"].([]any); ok {
			for _, g := range graph {
				if gm, ok := g.(map[string]any); ok {
					flat = append(flat, gm)
				}
			}
			continue
		}
		flat = append(flat, o)
	}
	return flat
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return CleanText(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	}
	return ""
}

// imageValue accepts a URL, an ImageObject or a list of either.
func imageValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return stringValue(t["url"])
	case []any:
		for _, e := range t {
			if s := imageValue(e); s != "" {
				return s
			}
		}
	}
	return ""
}

// offerPrice accepts an Offer, an AggregateOffer or a list of offers.
func offerPrice(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if p := stringValue(t["price"]); p != "" {
			return p
		}
		return stringValue(t["lowPrice"])
	case []any:
		for _, e := range t {
			if p := offerPrice(e); p != "" {
				return p
			}
		}
	}
	return ""
}
