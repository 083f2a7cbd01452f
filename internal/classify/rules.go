package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category is one of the fixed note categories.
type Category string

const (
	ServicesIncluded   Category = "services-included"
	ServicesExcluded   Category = "services-excluded"
	ChildPolicy        Category = "child-policy"
	ContractDeposit    Category = "contract-deposit"
	CancellationPolicy Category = "cancellation-policy"
)

// Categories lists every category in output order.
var Categories = []Category{
	ServicesIncluded,
	ServicesExcluded,
	ChildPolicy,
	ContractDeposit,
	CancellationPolicy,
}

// Rule maps a set of folded keywords to a category.
type Rule struct {
	Category Category
	Keywords []string
}

// Rules is evaluated in order and the first rule with a matching keyword
// wins. Exclusions come before inclusions because "khong bao gom" contains
// "bao gom".
var Rules = []Rule{
	{ServicesExcluded, []string{
		"khong bao gom", "chua bao gom", "khong gom", "not included", "not include",
		"exclude", "excludes", "excluded", "exclusions", "excluding",
	}},
	{CancellationPolicy, []string{
		"huy tour", "dieu kien huy", "chinh sach huy", "phi huy", "huy ve", "hoan huy",
		"cancel", "cancellation", "cancellations", "refund",
	}},
	{ContractDeposit, []string{
		"hop dong", "dat coc", "tien coc", "thanh toan", "dieu kien dang ky",
		"contract", "deposit", "payment",
	}},
	{ChildPolicy, []string{
		"tre em", "em be", "tre nho", "child", "children", "kid", "kids", "infant", "infants",
	}},
	{ServicesIncluded, []string{
		"bao gom", "gia bao gom", "gia tour bao gom", "dich vu bao gom",
		"included", "include", "includes", "inclusions",
	}},
}

// Match maps free text, typically a heading, to a category. Matching is
// case-insensitive, diacritic-insensitive and on whole words.
func Match(text string) (Category, bool) {
	k := keywordForm(text)
	if strings.TrimSpace(k) == "" {
		return "", false
	}
	for _, r := range Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(k, " "+kw+" ") {
				return r.Category, true
			}
		}
	}
	return "", false
}

// anchorLabels are category labels recognized inside running text. The
// alternation is ordered so longer labels win at the same position.
const anchorLabels = `(gia(?:\s+tour)?\s+(?:khong|chua)\s+bao\s+gom|(?:khong|chua)\s+bao\s+gom|not\s+included|gia(?:\s+tour)?\s+bao\s+gom|dich\s+vu\s+bao\s+gom|(?:dieu\s+kien|chinh\s+sach)\s+huy(?:\s+tour)?|huy\s+tour|hop\s+dong|dat\s+coc|tre\s+em|em\s+be|cancellation(?:\s+policy)?|deposit|excludes?|includes?|included)\b`

var (
	// anchorAny finds a label anywhere.
	anchorAny = regexp.MustCompile(anchorLabels)
	// anchorWord finds a label starting at a word boundary, with an
	// optional trailing colon.
	anchorWord = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + anchorLabels + `\s*(:?)`)
	// labelOnly matches labels that carry no content of their own. They
	// split text wherever they occur and are dropped from the output.
	labelOnly = regexp.MustCompile(`^(?:(?:gia(?:\s+tour)?|dich\s+vu)\s+)?(?:(?:khong|chua)\s+)?bao\s+gom$|^not\s+included$|^(?:dieu\s+kien|chinh\s+sach)\s+huy(?:\s+tour)?$`)
)

const clauseMarks = ".;!?\n•*-–"

// clauseStart reports whether a label preceded by prefix opens a clause.
func clauseStart(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t")
	if prefix == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return strings.ContainsRune(clauseMarks, r)
}

// anchorCategory maps a folded anchor label to its category.
func anchorCategory(label string) Category {
	c, _ := Match(label)
	return c
}
