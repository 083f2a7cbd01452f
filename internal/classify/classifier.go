// Package classify sorts the free-form notes on a detail page into a fixed
// set of categories.
package classify

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/selector"
	"github.com/IshaanNene/listgoat/internal/types"
)

const (
	headingSelector = "h1,h2,h3,h4,h5,h6,strong,b,p"
	walkSelector    = "h1,h2,h3,h4,h5,h6,strong,b,p,ul,ol"
	blockSelector   = "p,div,ul,ol,table,section,blockquote,dl,span"
	maxHeadingRunes = 120
)

// inlineBlockSelector is blockSelector without span.
const inlineBlockSelector = "p,div,ul,ol,table,section,blockquote,dl"

// Classifier maps detail-page notes onto Categories.
type Classifier struct {
	logger *slog.Logger
}

// New creates a classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger.With("component", "classifier")}
}

// Classify returns category -> newline-joined text for the detail page
// rooted at root. The first note selector that matches names the
// container; a container made of headings followed by lists is read
// structurally, anything else falls back to a heading scan of the whole
// page. Categories with no text are absent.
func (c *Classifier) Classify(root *html.Node, noteSelectors ...string) map[string]string {
	if root == nil {
		return map[string]string{}
	}
	doc := goquery.NewDocumentFromNode(root)
	b := buckets{}

	container := c.container(doc, root, noteSelectors)
	if container == nil || !structured(container, b) {
		unstructured(doc.Selection, b)
	}
	if len(b) == 0 {
		// No heading named a category: labelled running text is all there is.
		scope := container
		if scope == nil {
			scope = doc.Find("body").First()
		}
		if scope.Length() > 0 {
			b.add("", parser.BlockText(scope.Get(0)))
		}
	}
	b.reclassifyChild()
	return b.result()
}

func (c *Classifier) container(doc *goquery.Document, root *html.Node, selectors []string) *goquery.Selection {
	for _, raw := range selectors {
		s := types.Selector(raw)
		if s == "" {
			continue
		}
		xp := s
		if !looksLikeXPath(s) {
			xp = selector.Translate(s)
		}
		n, err := parser.Query(root, xp)
		if err != nil {
			c.logger.Debug("note selector rejected", "selector", s, "error", err)
			continue
		}
		if n != nil {
			return doc.FindNodes(n)
		}
	}
	return nil
}

func looksLikeXPath(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") || strings.HasPrefix(s, ".")
}

// structured reads lists under the nearest preceding heading, walking the
// container in document order. It reports whether any list followed a
// heading at all.
func structured(container *goquery.Selection, b buckets) bool {
	var (
		cur     Category
		mapped  bool
		heading bool
		shaped  bool
	)
	container.Find(walkSelector).Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "ul", "ol":
			if s.ParentsUntilSelection(container).Filter("ul,ol,li").Length() > 0 {
				return
			}
			if !heading {
				return
			}
			shaped = true
			if !mapped {
				return
			}
			s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				b.add(cur, parser.BlockText(li.Get(0)))
			})
		default:
			if !isHeading(s) {
				return
			}
			heading = true
			cur, mapped = Match(headingText(s))
		}
	})
	return shaped
}

// unstructured finds every heading that maps to a category and takes the
// block-level siblings after it, up to the next heading.
func unstructured(doc *goquery.Selection, b buckets) {
	doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		if !isHeading(s) {
			return
		}
		cat, ok := Match(headingText(s))
		if !ok {
			return
		}

		block := s
		if name := goquery.NodeName(s); name == "strong" || name == "b" {
			if tail := inlineTail(s); tail != "" {
				b.add(cat, tail)
				return
			}
			block = s.Parent()
		}
		for i := 0; i < 2 && block.NextAll().Length() == 0; i++ {
			p := block.Parent()
			if p.Length() == 0 || p.Is("body,html") {
				break
			}
			block = p
		}

		block.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			if containsHeading(sib) {
				return false
			}
			if !sib.Is(blockSelector) {
				return true
			}
			if sib.Is("ul,ol") {
				sib.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
					b.add(cat, parser.BlockText(li.Get(0)))
				})
				return true
			}
			b.add(cat, parser.BlockText(sib.Get(0)))
			return true
		})
	})
}

func containsHeading(s *goquery.Selection) bool {
	if isHeading(s) {
		return true
	}
	found := false
	s.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		found = isHeading(h)
		return !found
	})
	return found
}

// inlineTail returns the text that follows a bold heading inside its own
// block, one line per <br> or nested block, up to the next bold heading.
func inlineTail(s *goquery.Selection) string {
	parent := s.Parent()
	var b strings.Builder
	for n := s.Get(0).NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			sib := parent.FindNodes(n)
			switch {
			case n.Data == "br":
				b.WriteByte('\n')
			case (n.Data == "strong" || n.Data == "b") && isHeading(sib):
				return parser.CleanText(b.String())
			case sib.Is(inlineBlockSelector):
				b.WriteString("\n" + parser.BlockText(n) + "\n")
			default:
				b.WriteString(parser.VisibleText(n))
			}
		}
	}
	return parser.CleanText(b.String())
}

// isHeading reports whether s reads as a heading: h1..h6, a strong/b that
// is the whole text of its block or opens a line of it, or a paragraph
// whose only content is one bold child. Nothing inside a list item is a
// heading.
func isHeading(s *goquery.Selection) bool {
	text := headingText(s)
	if text == "" || utf8.RuneCountInString(text) > maxHeadingRunes {
		return false
	}
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	case "strong", "b":
		if s.ParentsFiltered("li").Length() > 0 {
			return false
		}
		parent := s.Parent()
		if text == parser.CleanText(parent.Text()) {
			return goquery.NodeName(parent) != "p"
		}
		return opensLine(s.Get(0), strings.HasSuffix(text, ":"))
	case "p":
		if s.ParentsFiltered("li").Length() > 0 {
			return false
		}
		bold := s.ChildrenFiltered("strong,b")
		return bold.Length() == 1 && parser.CleanText(bold.Text()) == text
	}
	return false
}

// opensLine reports whether n starts a line of its parent and is followed
// by a line break, a block, the end of the parent or, when colon is set,
// anything at all.
func opensLine(n *html.Node, colon bool) bool {
	prev := adjacent(n, func(n *html.Node) *html.Node { return n.PrevSibling })
	if prev != nil && !breaksLine(prev) {
		return false
	}
	if colon {
		return true
	}
	next := adjacent(n, func(n *html.Node) *html.Node { return n.NextSibling })
	return next == nil || breaksLine(next)
}

// adjacent steps from n until it reaches a node that is not blank text.
func adjacent(n *html.Node, step func(*html.Node) *html.Node) *html.Node {
	for c := step(n); c != nil; c = step(c) {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if c.Type == html.CommentNode {
			continue
		}
		return c
	}
	return nil
}

func breaksLine(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "br", "hr", "p", "div", "ul", "ol", "table", "section", "blockquote", "dl",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func headingText(s *goquery.Selection) string {
	return parser.CleanText(s.Text())
}

// buckets collects lines per category.
type buckets map[Category][]string

// add splits text at category labels and files every non-empty line
// under its category. Text before the first label stays in cat and is
// dropped when cat is empty.
func (b buckets) add(cat Category, text string) {
	for _, seg := range splitAnchors(text, cat) {
		if seg.cat == "" {
			continue
		}
		for _, line := range strings.Split(seg.text, "\n") {
			line = strings.TrimLeft(line, "-•*:;,. \t")
			line = strings.TrimSpace(strings.TrimRight(line, ",;: \t"))
			if line != "" {
				b[seg.cat] = append(b[seg.cat], line)
			}
		}
	}
}

type segment struct {
	cat  Category
	text string
}

// splitAnchors cuts text at every label naming a category other than the
// current one. A label splits when it opens a clause, when a colon follows
// it, or when it is a bare label such as "không bao gồm"; a mid-sentence
// mention like "đặt cọc 50%" does not. Colon-terminated and bare labels
// are cut out of the text, the rest stay with their clause.
func splitAnchors(text string, cat Category) []segment {
	folded, idx := foldIndexed(text)
	var (
		segs  []segment
		start int
		cur   = cat
	)
	for _, m := range anchorWord.FindAllStringSubmatchIndex(folded, -1) {
		label := folded[m[2]:m[3]]
		next := anchorCategory(label)
		if next == "" || next == cur {
			continue
		}
		colon := m[5] > m[4]
		bare := labelOnly.MatchString(label)
		if !colon && !bare && !clauseStart(folded[:m[2]]) {
			continue
		}
		labelStart := idx[m[2]]
		segs = append(segs, segment{cur, text[start:labelStart]})
		cur = next
		switch {
		case colon:
			start = idx[m[5]]
		case bare:
			start = idx[m[3]]
		default:
			start = labelStart
		}
	}
	return append(segs, segment{cur, text[start:]})
}

// reclassifyChild moves child-policy lines that carry another category's
// label and never mention children ("tre em") to that category.
func (b buckets) reclassifyChild() {
	lines := b[ChildPolicy]
	if len(lines) == 0 {
		return
	}
	keep := lines[:0:0]
	for _, line := range lines {
		if strings.Contains(keywordForm(line), " tre em ") {
			keep = append(keep, line)
			continue
		}
		moved := false
		for _, m := range anchorAny.FindAllStringSubmatch(Fold(line), -1) {
			if to := anchorCategory(m[1]); to != "" && to != ChildPolicy {
				b[to] = append(b[to], line)
				moved = true
				break
			}
		}
		if !moved {
			keep = append(keep, line)
		}
	}
	b[ChildPolicy] = keep
}

// result dedupes lines per category, case-insensitively and keeping first
// occurrences, and joins them with newlines.
func (b buckets) result() map[string]string {
	out := make(map[string]string)
	for _, c := range Categories {
		seen := make(map[string]bool)
		var uniq []string
		for _, line := range b[c] {
			k := strings.ToLower(line)
			if seen[k] {
				continue
			}
			seen[k] = true
			uniq = append(uniq, line)
		}
		if len(uniq) > 0 {
			out[string(c)] = strings.Join(uniq, "\n")
		}
	}
	return out
}
