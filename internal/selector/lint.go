package selector

import (
	"fmt"
	"strings"
)

// IsRelative reports whether expr is evaluated from the context node.
func IsRelative(expr string) bool {
	expr = strings.TrimSpace(expr)
	return expr == "." || strings.HasPrefix(expr, "./")
}

// LintField returns advisory warnings for an item-relative field selector.
func LintField(field, expr string) []string {
	var warnings []string
	label := "relative selector"
	if field != "" {
		label = fmt.Sprintf("selector for %s", field)
	}
	if !IsRelative(expr) {
		warnings = append(warnings, fmt.Sprintf("%s %q is not rooted at the item (expected a .// prefix)", label, expr))
	}
	if strings.Contains(expr, "/@") {
		warnings = append(warnings, fmt.Sprintf("%s %q dereferences an attribute; name the attribute separately", label, expr))
	}
	return warnings
}

// LintAncestor returns advisory warnings for an item container XPath.
func LintAncestor(xp string, matched int) []string {
	var warnings []string
	if matched <= 1 {
		warnings = append(warnings, fmt.Sprintf("item ancestor %q matched %d node(s); expected a repeating list", xp, matched))
	}
	if !strings.HasPrefix(strings.TrimSpace(xp), "//") {
		warnings = append(warnings, fmt.Sprintf("item ancestor %q is not anchored at the document root (expected a // prefix)", xp))
	}
	return warnings
}
