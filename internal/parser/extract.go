package parser

import (
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/types"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[^\S\n]+`)
	newlineRunRe      = regexp.MustCompile(`\s*\n\s*`)
)

// CleanText decodes HTML entities and collapses whitespace. Line breaks
// survive as single newlines.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpaceRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Text returns the cleaned inner text of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return CleanText(htmlquery.InnerText(n))
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "dd": true, "dt": true,
}

// BlockText is like Text but keeps a line break at every block boundary
// and <br>, so paragraphs and list items come out as separate lines.
func BlockText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipTextTags[n.Data] {
				return
			}
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return CleanText(b.String())
}

// ExtractScalar returns the cleaned text of the first match of expr under
// n. A blank expression, an invalid one, or no match all yield "".
func ExtractScalar(n *html.Node, expr string) string {
	m := first(n, expr)
	if m == nil {
		return ""
	}
	return Text(m)
}

// ExtractAttr returns attr of the first match of expr under n. With no
// attribute name it falls back to the match's text.
func ExtractAttr(n *html.Node, expr, attr string) string {
	m := first(n, expr)
	if m == nil {
		return ""
	}
	attr = strings.TrimSpace(attr)
	if attr == "" || strings.EqualFold(attr, "text") {
		return Text(m)
	}
	return strings.TrimSpace(html.UnescapeString(Attr(m, attr)))
}

// ExtractMultiple returns the cleaned, non-empty text of every match.
func ExtractMultiple(n *html.Node, expr string) []string {
	out := []string{}
	for _, m := range MustQueryAll(n, types.Selector(expr)) {
		if t := Text(m); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SampleValue reads the value a field selector would yield for an item:
// the suggested attribute for images, the link text or href for anchors,
// and the text otherwise.
func SampleValue(n *html.Node, attrs types.AttributeSuggestion) string {
	if n == nil {
		return ""
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "img":
			if attrs.ImageAttr != "" {
				if v := strings.TrimSpace(Attr(n, attrs.ImageAttr)); v != "" {
					return v
				}
			}
			return strings.TrimSpace(Attr(n, "src"))
		case "a":
			if t := Text(n); t != "" {
				return t
			}
			return strings.TrimSpace(Attr(n, "href"))
		}
	}
	return Text(n)
}

func first(n *html.Node, expr string) *html.Node {
	expr = types.Selector(expr)
	if n == nil || expr == "" {
		return nil
	}
	m, err := Query(n, expr)
	if err != nil {
		return nil
	}
	return m
}
