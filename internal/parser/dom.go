package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/types"
)

// Compile validates an XPath expression. Failures are reported as a
// SelectorSyntaxError carrying the expression and the parser message.
func Compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, &types.SelectorSyntaxError{Expr: expr, XPath: expr, Err: err}
	}
	return e, nil
}

// QueryAll evaluates expr against n.
func QueryAll(n *html.Node, expr string) ([]*html.Node, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return htmlquery.QuerySelectorAll(n, e), nil
}

// Query returns the first match of expr under n, or nil.
func Query(n *html.Node, expr string) (*html.Node, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return htmlquery.QuerySelector(n, e), nil
}

// Count returns how many nodes expr matches under n.
func Count(n *html.Node, expr string) (int, error) {
	nodes, err := QueryAll(n, expr)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// MustQueryAll is QueryAll with invalid expressions treated as no match.
func MustQueryAll(n *html.Node, expr string) []*html.Node {
	if n == nil || strings.TrimSpace(expr) == "" {
		return nil
	}
	nodes, err := QueryAll(n, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Classes returns the whitespace separated tokens of n's class attribute.
func Classes(n *html.Node) []string {
	return strings.Fields(htmlquery.SelectAttr(n, "class"))
}

// Attr returns the value of an attribute on n, or "".
func Attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

var skipTextTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true, "template": true,
}

// FindByText returns the deepest element whose normalized text contains
// hint. Ties between equally deep elements go to the longest text.
func FindByText(doc *html.Node, hint string) *html.Node {
	needle := normalizeSpace(strings.ToLower(hint))
	if needle == "" {
		return nil
	}

	var (
		best      *html.Node
		bestDepth = -1
		bestLen   = -1
	)
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			if skipTextTags[n.Data] {
				return
			}
			text := normalizeSpace(strings.ToLower(VisibleText(n)))
			if !strings.Contains(text, needle) {
				return
			}
			if depth > bestDepth || (depth == bestDepth && len(text) > bestLen) {
				best, bestDepth, bestLen = n, depth, len(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(doc, 0)
	return best
}

// VisibleText is the concatenated text under n, skipping script and style
// content.
func VisibleText(n *html.Node) string {
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
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
