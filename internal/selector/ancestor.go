package selector

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/parser"
)

var (
	generatedClassRe = regexp.MustCompile(`(?i)^(ng-|css-|sc-|chakra-|Mui-)`)
	generatedIDRe    = regexp.MustCompile(`\d{3,}`)
)

// Detector finds the repeating item container above a sample node.
type Detector struct {
	// MaxLevels bounds the climb, counting the start node.
	MaxLevels int
	// BandMin and BandMax delimit a plausible list size.
	BandMin int
	BandMax int
}

// DefaultDetector climbs 8 levels and accepts 3 to 300 matches.
func DefaultDetector() Detector {
	return Detector{MaxLevels: 8, BandMin: 3, BandMax: 300}
}

// Candidate is a container found by Detect.
type Candidate struct {
	Node  *html.Node
	XPath string
	Count int
}

// Detect climbs from start toward the document root. At each level it
// builds the node's repeating XPath and counts its matches in doc. The
// first level whose count falls inside the band wins. When that level is
// a bare tag such as //span, the nearest ancestor with a class or id
// pattern that is also in band is preferred. The winner is then extended
// upward to ancestors matching exactly as many nodes (wrappers of the same
// item), looking past unclassed intermediates. With no level in band, the
// level with the most matches is returned. Node is nil if nothing matched
// at all.
func (d Detector) Detect(doc, start *html.Node) Candidate {
	levels := d.climb(doc, start)

	pick := -1
	for i, c := range levels {
		if d.inBand(c.Count) {
			pick = i
			break
		}
	}
	if pick < 0 {
		var best Candidate
		for _, c := range levels {
			if c.Count > best.Count {
				best = c
			}
		}
		return best
	}

	if !qualified(levels[pick].XPath) {
		for j := pick + 1; j < len(levels); j++ {
			if qualified(levels[j].XPath) && d.inBand(levels[j].Count) {
				pick = j
				break
			}
		}
	}

	found := levels[pick]
	adjacent := true
	for _, c := range levels[pick+1:] {
		if c.Count != found.Count {
			adjacent = false
			continue
		}
		if adjacent || qualified(c.XPath) {
			found = c
		}
	}
	return found
}

// climb returns one candidate per level, starting at the first element at
// or above start.
func (d Detector) climb(doc, start *html.Node) []Candidate {
	cur := start
	for cur != nil && cur.Type == html.TextNode {
		cur = cur.Parent
	}
	var levels []Candidate
	for ; cur != nil && cur.Type == html.ElementNode && len(levels) < d.MaxLevels; cur = cur.Parent {
		xp := RepeatingXPath(cur)
		count, err := parser.Count(doc, xp)
		if err != nil {
			count = 0
		}
		levels = append(levels, Candidate{Node: cur, XPath: xp, Count: count})
	}
	return levels
}

// qualified reports whether a repeating XPath carries a class or id
// predicate rather than the bare tag.
func qualified(xp string) bool {
	return strings.HasSuffix(xp, "]")
}

func (d Detector) inBand(count int) bool {
	return count >= d.BandMin && count <= d.BandMax
}

// RepeatingXPath builds //tag[...] for n using up to two stable classes,
// or a stable id when the node has no stable class.
func RepeatingXPath(n *html.Node) string {
	var preds []string
	for _, c := range StableClasses(n, 2) {
		preds = append(preds, ClassPredicate(c))
	}
	if len(preds) == 0 {
		if id := strings.TrimSpace(parser.Attr(n, "id")); StableID(id) {
			preds = append(preds, "@id="+literal(id))
		}
	}
	xp := "//" + n.Data
	if len(preds) > 0 {
		xp += "[" + strings.Join(preds, " and ") + "]"
	}
	return xp
}

// StableClasses returns up to limit distinct class tokens on n that do not
// look generated: longer than two characters, not starting with a digit,
// and without a framework prefix.
func StableClasses(n *html.Node, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range parser.Classes(n) {
		if len(out) == limit {
			break
		}
		if !StableClass(c) || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// StableClass reports whether a class token is likely hand written.
func StableClass(c string) bool {
	if len(c) <= 2 {
		return false
	}
	if c[0] >= '0' && c[0] <= '9' {
		return false
	}
	return !generatedClassRe.MatchString(c)
}

// StableID reports whether an id is short and free of long digit runs.
func StableID(id string) bool {
	return id != "" && len(id) < 40 && !generatedIDRe.MatchString(id)
}
