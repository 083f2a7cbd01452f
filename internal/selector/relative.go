package selector

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/parser"
)

// SelfPath selects the item node itself when evaluated against it.
const SelfPath = ".//self::*"

// RelativeXPath builds an item-relative path from ancestor down to node.
// Each step prefers a stable class over a positional index among
// same-tag siblings. If node is not below ancestor the walk stops at the
// document root and the path is rooted there instead.
func RelativeXPath(ancestor, node *html.Node) string {
	var steps []string
	for cur := node; cur != nil && cur != ancestor; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		steps = append(steps, step(cur))
	}
	if len(steps) == 0 {
		return SelfPath
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return ".//" + strings.Join(steps, "/")
}

func step(n *html.Node) string {
	if cls := StableClasses(n, 1); len(cls) > 0 {
		return n.Data + "[" + ClassPredicate(cls[0]) + "]"
	}
	if n.Parent == nil {
		return n.Data
	}
	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || s.Data != n.Data {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	if total > 1 {
		return n.Data + "[" + strconv.Itoa(idx) + "]"
	}
	return n.Data
}

// SuggestAttributes names the attribute to read instead of text: the first
// populated lazy-load or src attribute for images, href for links.
func SuggestAttributes(n *html.Node) (imageAttr, linkAttr string) {
	if !parser.IsElement(n) {
		return "", ""
	}
	switch strings.ToLower(n.Data) {
	case "img":
		for _, a := range []string{"data-src", "src", "data-original", "data-lazy", "srcset"} {
			if strings.TrimSpace(parser.Attr(n, a)) != "" {
				return a, ""
			}
		}
	case "a":
		if strings.TrimSpace(parser.Attr(n, "href")) != "" {
			return "", "href"
		}
	}
	return "", ""
}
