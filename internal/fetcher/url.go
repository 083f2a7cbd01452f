package fetcher

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/IshaanNene/listgoat/internal/types"
)

// NormalizeURL rewrites protocol-relative ("//host/path") and bare-host
// ("host/path") inputs to https. Other inputs are returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.Contains(raw, "://"):
		return raw
	default:
		return "https://" + strings.TrimLeft(raw, "/")
	}
}

// BaseDomain returns scheme://host of a URL after normalization.
func BaseDomain(raw string) string {
	return types.BaseDomainOf(NormalizeURL(raw))
}

// Absolute resolves ref against base. References that already start with
// "http" are returned as is; protocol-relative references get https;
// everything else is joined to base with exactly one slash.
func Absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http"):
		return ref
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	case base == "":
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// WithPage returns raw with its page query parameter set to n.
func WithPage(raw string, n int) string {
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + "page=" + strconv.Itoa(n)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}
