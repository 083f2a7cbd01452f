// Package selector converts user selections into XPath: a CSS subset
// translator, repeating-container detection, and item-relative paths.
package selector

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	cssEscapeRe     = regexp.MustCompile(`\\([:.\[\]#>+~,])`)
	pseudoElementRe = regexp.MustCompile(`::[A-Za-z-]+(\([^)]*\))?`)
	nthOfTypeRe     = regexp.MustCompile(`:nth-of-type\(\s*(\d+)\s*\)`)
	pseudoClassRe   = regexp.MustCompile(`:[A-Za-z-]+(\([^)]*\))?`)
	attrEqRe        = regexp.MustCompile(`\[\s*([^\]=\s]+)\s*=\s*['"]?([^\]'"]+)['"]?\s*\]`)
	attrHasRe       = regexp.MustCompile(`\[\s*([A-Za-z_:][A-Za-z0-9_:.-]*)\s*\]`)
	attrAnyRe       = regexp.MustCompile(`\[[^\]]*\]?`)
	idRe            = regexp.MustCompile(`#([A-Za-z0-9_:-]+)`)
	classRe         = regexp.MustCompile(`\.([A-Za-z0-9_:-]+)`)
	tagRe           = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9:_-]*$`)
)

// Translate converts a CSS selector from the supported subset (tag, class
// list, id, attribute equality, :nth-of-type) into an absolute XPath.
// It never fails: fragments it cannot parse are dropped, which can only
// make the result broader.
func Translate(css string) string {
	css = Normalize(css)
	if css == "" {
		return ""
	}

	var b strings.Builder
	for i, tok := range tokenize(css) {
		switch {
		case i == 0:
			b.WriteString("//")
		case tok.combinator == '>':
			b.WriteString("/")
		case tok.combinator == '~' || tok.combinator == '+':
			b.WriteString("/following-sibling::")
		default:
			b.WriteString("//")
		}
		b.WriteString(translateSimple(tok.simple))
	}
	return b.String()
}

// Normalize unescapes CSS meta characters, strips pseudo-elements and keeps
// only the first comma separated alternative.
func Normalize(css string) string {
	css = cssEscapeRe.ReplaceAllString(css, "$1")
	css = pseudoElementRe.ReplaceAllString(css, "")
	if i := topLevelIndex(css, ','); i >= 0 {
		css = css[:i]
	}
	return strings.TrimSpace(css)
}

type cssToken struct {
	simple     string
	combinator byte // combinator preceding this simple selector; 0 means descendant
}

// tokenize splits a selector into simple selectors and the combinators
// joining them, ignoring separators inside [...] and (...).
func tokenize(css string) []cssToken {
	var (
		tokens  []cssToken
		cur     strings.Builder
		pending byte
		depth   int
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tokens = append(tokens, cssToken{simple: cur.String(), combinator: pending})
		cur.Reset()
		pending = 0
	}
	for i := 0; i < len(css); i++ {
		c := css[i]
		switch {
		case c == '[' || c == '(':
			depth++
		case (c == ']' || c == ')') && depth > 0:
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			flush()
			continue
		case depth == 0 && (c == '>' || c == '~' || c == '+'):
			flush()
			pending = c
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return tokens
}

// translateSimple converts one compound selector such as
// "li.card.active[data-id=3]:nth-of-type(2)" into an XPath step.
func translateSimple(s string) string {
	var attrs []string
	for _, m := range attrEqRe.FindAllStringSubmatch(s, -1) {
		attrs = append(attrs, "@"+m[1]+"="+literal(strings.TrimSpace(m[2])))
	}
	s = attrEqRe.ReplaceAllString(s, "")
	for _, m := range attrHasRe.FindAllStringSubmatch(s, -1) {
		attrs = append(attrs, "@"+m[1])
	}
	s = attrHasRe.ReplaceAllString(s, "")
	s = attrAnyRe.ReplaceAllString(s, "")

	position := ""
	if m := nthOfTypeRe.FindStringSubmatch(s); m != nil {
		position = m[1]
	}
	s = nthOfTypeRe.ReplaceAllString(s, "")
	s = pseudoClassRe.ReplaceAllString(s, "")

	var preds []string
	if ids := idRe.FindAllStringSubmatch(s, -1); len(ids) > 0 {
		preds = append(preds, "@id="+literal(ids[len(ids)-1][1]))
	}
	s = idRe.ReplaceAllString(s, "")

	for _, m := range classRe.FindAllStringSubmatch(s, -1) {
		preds = append(preds, ClassPredicate(m[1]))
	}
	s = classRe.ReplaceAllString(s, "")
	preds = append(preds, attrs...)

	tag := strings.TrimSpace(s)
	if !tagRe.MatchString(tag) {
		tag = "*"
	} else {
		tag = strings.ToLower(tag)
	}

	// :nth-of-type counts every sibling of the tag, not only those that pass
	// the other predicates, so it cannot be a plain [n] after them. Without
	// a tag the type is unknown and the position is dropped.
	if n, err := strconv.Atoi(position); err == nil && n > 0 && tag != "*" {
		preds = append(preds, "count(preceding-sibling::"+tag+")="+strconv.Itoa(n-1))
	}

	step := tag
	if len(preds) > 0 {
		step += "[" + strings.Join(preds, " and ") + "]"
	}
	return step
}

// ClassPredicate matches a whole class token, not a substring of another.
func ClassPredicate(class string) string {
	return "contains(concat(' ', normalize-space(@class), ' '), " + literal(" "+class+" ") + ")"
}

// literal quotes s as an XPath string literal.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func topLevelIndex(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
