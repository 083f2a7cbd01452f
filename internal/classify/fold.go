package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold strips diacritics and lowercases s. "đ" folds to "d". Punctuation
// and spacing are kept.
func Fold(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	out, _, err := transform.String(newFolder(), s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// keywordForm folds s and reduces it to space-separated alphanumeric words
// padded with a space on both sides, so keywords match on word boundaries.
func keywordForm(s string) string {
	f := Fold(s)
	var b strings.Builder
	b.Grow(len(f) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range f {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// foldIndexed folds s rune by rune and returns, for every byte of the
// folded string, the byte offset in s it came from. The extra final entry
// maps the end of the folded string to len(s).
func foldIndexed(s string) (string, []int) {
	var b strings.Builder
	idx := make([]int, 0, len(s)+1)
	for i, r := range s {
		f := foldRune(r)
		for j := 0; j < len(f); j++ {
			idx = append(idx, i)
		}
		b.WriteString(f)
	}
	idx = append(idx, len(s))
	return b.String(), idx
}

func foldRune(r rune) string {
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}
	if r == 'đ' || r == 'Đ' {
		return "d"
	}
	out, _, err := transform.String(newFolder(), string(r))
	if err != nil {
		return string(r)
	}
	return strings.ToLower(out)
}
