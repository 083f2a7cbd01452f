package engine

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ExistsChecker reports whether a record is already persisted. Codes are
// looked up within site.
type ExistsChecker interface {
	Exists(ctx context.Context, site, code, detailURL string) (bool, error)
}

// Deduplicator tracks record identities seen in one crawl. A record is a
// repeat when its code or its canonical detail URL was seen before, or
// when the store already holds it.
type Deduplicator struct {
	mu    sync.Mutex
	codes map[string]struct{}
	urls  map[string]struct{}
	store ExistsChecker
	site  string
}

// NewDeduplicator creates a Deduplicator for the records of one source
// site. store may be nil.
func NewDeduplicator(store ExistsChecker, site string) *Deduplicator {
	return &Deduplicator{
		codes: make(map[string]struct{}),
		urls:  make(map[string]struct{}),
		store: store,
		site:  site,
	}
}

// Seen checks code and detailURL and marks them when they are new. It
// returns true for a repeat. Store errors are returned and the pair is
// treated as new.
func (d *Deduplicator) Seen(ctx context.Context, code, detailURL string) (bool, error) {
	code = strings.TrimSpace(code)
	detailURL = strings.TrimSpace(detailURL)
	canonical := ""
	if detailURL != "" {
		canonical = CanonicalizeURL(detailURL)
	}

	var storeErr error
	if d.store != nil && (code != "" || detailURL != "") {
		exists, err := d.store.Exists(ctx, d.site, code, detailURL)
		if err != nil {
			storeErr = err
		} else if exists {
			return true, nil
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if code != "" {
		if _, ok := d.codes[code]; ok {
			return true, storeErr
		}
	}
	if canonical != "" {
		if _, ok := d.urls[canonical]; ok {
			return true, storeErr
		}
	}
	if code != "" {
		d.codes[code] = struct{}{}
	}
	if canonical != "" {
		d.urls[canonical] = struct{}{}
	}
	return false, storeErr
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	return u.String()
}
