package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/storage"
	"github.com/IshaanNene/listgoat/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func listHTML(n int, href func(i int) string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="tour-list">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="tour-item"><h3 class="name">Tour %d</h3><span class="price">%d.000.000đ</span><a class="link" href="%s"><img src="/img/%d.jpg"></a></div>`,
			i, i+1, href(i), i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func detailHTML(id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1>%s</h1><span class="code">HL-%s</span><div class="itinerary-box">`, id, id)
	for d := 1; d <= 3; d++ {
		fmt.Fprintf(&b, `<div class="iti-day-title">Ngày %d</div><div class="iti-day-content"><p>Điểm %d</p><p>Nghỉ đêm</p></div>`, d, d)
	}
	b.WriteString(`</div><div class="tour-note"><h3>Giá tour bao gồm</h3><ul><li>Xe đưa đón</li><li>Khách sạn 3 sao</li></ul></div></body></html>`)
	return b.String()
}

func tourRecipe(baseURL string) *types.Recipe {
	return &types.Recipe{
		ID:       "t1",
		BaseURL:  baseURL,
		Strategy: types.StrategyStatic,
		Paging:   types.PagingNone,
		ItemList: "//div[@class='tour-item']",
		Fields: types.ListFields{
			Name:      ".//h3",
			Code:      ".//span[@class='code']",
			Price:     ".//span[@class='price']",
			Image:     ".//img",
			DetailURL: ".//a",
		},
		Detail: types.DetailFields{Note: "//div[contains(@class,'tour-note')]"},
	}
}

func newTestEngine() *Engine {
	cfg := config.DefaultConfig()
	return New(cfg, testLogger())
}

func TestCrawlEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tours":
			_, _ = io.WriteString(w, listHTML(5, func(i int) string { return fmt.Sprintf("/tour/%d", i) }))
		case strings.HasPrefix(r.URL.Path, "/tour/"):
			_, _ = io.WriteString(w, detailHTML(strings.TrimPrefix(r.URL.Path, "/tour/")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	e := newTestEngine()
	e.SetStore(store)
	recipe := tourRecipe(srv.URL + "/tours")

	res, err := e.Crawl(context.Background(), recipe, 0)
	require.NoError(t, err)
	require.Len(t, res.Records, 5)
	assert.Equal(t, 5, res.Matched)

	for i, rec := range res.Records {
		assert.Equal(t, fmt.Sprintf("Tour %d", i), rec.Name)
		assert.Equal(t, fmt.Sprintf("HL-%d", i), rec.Code, "code is backfilled from the detail page")
		assert.Equal(t, fmt.Sprintf("%s/tour/%d", srv.URL, i), rec.DetailURL)
		assert.Equal(t, fmt.Sprintf("%s/img/%d.jpg", srv.URL, i), rec.ImageURL)
		require.Len(t, rec.Schedule, 3)
		assert.Equal(t, "Ngày 2", rec.Schedule[1].Title)
		assert.Equal(t, "Điểm 2\nNghỉ đêm", rec.Schedule[1].Content)
		assert.Equal(t, "Xe đưa đón\nKhách sạn 3 sao", rec.ImportantNotes["services-included"])
		assert.Equal(t, "127.0.0.1", rec.SourceSite)
	}

	saved, err := e.Save(context.Background(), res.Records)
	require.NoError(t, err)
	assert.Equal(t, 5, saved)

	again, err := e.Crawl(context.Background(), recipe, 0)
	require.NoError(t, err)
	assert.Empty(t, again.Records)
	assert.Equal(t, 5, again.Duplicates)
	assert.Len(t, store.Records(), 5)
	assert.Equal(t, int64(5), e.Metrics().RecordsSaved.Load())
}

// fakeSession serves a fixed list page and slow detail pages, recording
// peak detail concurrency.
type fakeSession struct {
	list     string
	listErr  error
	requests []ListRequest
	delay    func(url string) time.Duration
	failURL  string

	active atomic.Int32
	peak   atomic.Int32
	mu     sync.Mutex
	closed bool
}

func (f *fakeSession) List(ctx context.Context, req ListRequest) (*ListPage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &ListPage{URL: req.URL, HTML: f.list}, nil
}

func (f *fakeSession) Detail(ctx context.Context, url string) (string, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay != nil {
		time.Sleep(f.delay(url))
	}
	if url == f.failURL {
		return "", errors.New("connection reset")
	}
	id := url[strings.LastIndex(url, "/")+1:]
	return detailHTML(id), nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func withSession(e *Engine, s *fakeSession) {
	e.SetSessions(func(ctx context.Context, _ Strategy) (Session, error) { return s, nil })
}

func TestDetailPoolKeepsItemOrder(t *testing.T) {
	const items = 12
	s := &fakeSession{
		list: listHTML(items, func(i int) string { return fmt.Sprintf("/tour/%d", i) }),
		// Later items finish first.
		delay: func(url string) time.Duration {
			var i int
			fmt.Sscanf(url[strings.LastIndex(url, "/")+1:], "%d", &i)
			return time.Duration(items-i) * 3 * time.Millisecond
		},
		failURL: "https://tours.example.com/tour/4",
	}
	e := newTestEngine()
	withSession(e, s)

	res, err := e.Crawl(context.Background(), tourRecipe("https://tours.example.com/list"), 0)
	require.NoError(t, err)
	require.Len(t, res.Records, items)

	for i, rec := range res.Records {
		assert.Equal(t, fmt.Sprintf("Tour %d", i), rec.Name)
	}
	assert.LessOrEqual(t, int(s.peak.Load()), config.DefaultConfig().Crawl.DetailWorkers)
	assert.True(t, s.closed)

	// The failed detail keeps its list fields and nothing else.
	assert.Empty(t, res.Records[4].Schedule)
	assert.Empty(t, res.Records[4].Code)
	assert.Len(t, res.Records[5].Schedule, 3)
	assert.Equal(t, int64(1), e.Metrics().DetailsFailed.Load())
	assert.Equal(t, int64(items-1), e.Metrics().DetailsFetched.Load())
}

func TestCrawlItemLimitAndNoise(t *testing.T) {
	extra := `<div class="tour-item"><span class="price">9đ</span></div>` +
		`<div class="tour-item"><h3>Tour 1</h3><a href="/tour/1">dup</a></div>`
	page := strings.Replace(listHTML(6, func(i int) string { return fmt.Sprintf("/tour/%d", i) }),
		"</div></body>", extra+"</div></body>", 1)
	s := &fakeSession{list: page}
	e := newTestEngine()
	withSession(e, s)

	res, err := e.Crawl(context.Background(), tourRecipe("https://tours.example.com/list"), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Matched)
	assert.Equal(t, 1, res.Noise)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, res.Records, 6)

	res, err = e.Crawl(context.Background(), tourRecipe("https://tours.example.com/list"), 2)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Tour 1", res.Records[1].Name)
}

func TestCrawlListFailureAborts(t *testing.T) {
	s := &fakeSession{listErr: &types.RenderError{URL: "https://x.vn", Mode: types.ModeStatic, StatusCode: 503, Err: errors.New("unavailable")}}
	e := newTestEngine()
	withSession(e, s)

	_, err := e.Crawl(context.Background(), tourRecipe("https://x.vn/a, https://x.vn/b"), 0)
	var rerr *types.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 503, rerr.StatusCode)
	assert.Len(t, s.requests, 2)
	assert.Equal(t, int64(2), e.Metrics().RenderFailures.Load())
}

func TestCrawlRejectsBadRecipe(t *testing.T) {
	e := newTestEngine()
	withSession(e, &fakeSession{})

	r := tourRecipe("https://x.vn")
	r.ItemList = "//div[@class="
	_, err := e.Crawl(context.Background(), r, 0)
	var serr *types.SelectorSyntaxError
	assert.ErrorAs(t, err, &serr)

	r = tourRecipe("")
	_, err = e.Crawl(context.Background(), r, 0)
	assert.Error(t, err)

	r = tourRecipe("https://x.vn/tours, ftp://x.vn/tours")
	_, err = e.Crawl(context.Background(), r, 0)
	assert.ErrorContains(t, err, "scheme")
}

func TestStaticQueryStringPaging(t *testing.T) {
	var hits sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tours" {
			http.NotFound(w, r)
			return
		}
		cat, page := r.URL.Query().Get("cat"), r.URL.Query().Get("page")
		hits.Store(cat+":"+page, true)
		last := map[string]string{"a": "3", "b": "2"}[cat]
		if page > last {
			_, _ = io.WriteString(w, `<html><body><p>Hết tour</p></body></html>`)
			return
		}
		_, _ = io.WriteString(w, listHTML(2, func(i int) string { return fmt.Sprintf("/tour/%s-%s-%d", cat, page, i) }))
	}))
	defer srv.Close()

	r := tourRecipe(srv.URL + "/tours?cat=a\n" + srv.URL + "/tours?cat=b")
	r.Paging = types.PagingQueryString

	e := newTestEngine()
	res, err := e.Crawl(context.Background(), r, 0)
	require.NoError(t, err)

	// Pages a1..a3 and b1..b2 carry two items each; a4 and b3 end each run.
	assert.Equal(t, 7, res.Pages)
	assert.Equal(t, 10, res.Matched)
	assert.Len(t, res.Records, 10)
	for _, key := range []string{"a:1", "a:4", "b:1", "b:3"} {
		_, ok := hits.Load(key)
		assert.True(t, ok, "expected request %s", key)
	}
	_, ok := hits.Load("b:4")
	assert.False(t, ok)

	// Detail pages 404, so every record keeps only its list fields.
	assert.Equal(t, int64(10), e.Metrics().DetailsFailed.Load())
	assert.Empty(t, res.Records[0].Schedule)
}

func TestStaticQueryStringStopsOnRepeatedPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		_, _ = io.WriteString(w, listHTML(3, func(i int) string { return fmt.Sprintf("/tour/%d", i) }))
	}))
	defer srv.Close()

	r := tourRecipe(srv.URL + "/tours")
	r.Paging = types.PagingQueryString
	res, err := newTestEngine().Crawl(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, res.Records, 3)
}

func TestDynamicStrategyDrivesPagingControl(t *testing.T) {
	s := &fakeSession{list: listHTML(3, func(i int) string { return fmt.Sprintf("/tour/%d", i) })}
	e := newTestEngine()
	var got Strategy
	e.SetSessions(func(ctx context.Context, st Strategy) (Session, error) {
		got = st
		return s, nil
	})

	r := tourRecipe("https://tours.example.com/list")
	r.Strategy = "client_side"
	r.Paging = "carousel"
	r.LoadMore = types.LoadMore{Selector: "btn-next"}

	res, err := e.Crawl(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, Strategy{Crawl: types.StrategyDynamic, Paging: types.PagingCarousel}, got)

	require.Len(t, s.requests, 1)
	req := s.requests[0]
	assert.True(t, req.Interactive)
	assert.Equal(t, "btn-next", req.Control.Selector)
	assert.Equal(t, types.LoadMoreByClass, req.Control.Kind)
	assert.Contains(t, req.Control.TextPatterns, "xem thêm")
	assert.Equal(t, r.ItemList, req.ItemXPath)
}

func TestDeduplicator(t *testing.T) {
	ctx := context.Background()
	d := NewDeduplicator(nil, "example.com")

	dup, err := d.Seen(ctx, "T1", "https://Example.COM/tour/1?b=2&a=1")
	require.NoError(t, err)
	assert.False(t, dup)

	for _, tt := range []struct {
		code, url string
		want      bool
	}{
		{"T1", "", true},
		{"", "https://example.com/tour/1?a=1&b=2", true},
		{"T2", "https://example.com/tour/1/?a=1&b=2#top", true},
		{"T3", "https://example.com/tour/3", false},
		{"", "", false},
	} {
		dup, err := d.Seen(ctx, tt.code, tt.url)
		require.NoError(t, err)
		if dup != tt.want {
			t.Errorf("Seen(%q, %q) = %v, want %v", tt.code, tt.url, dup, tt.want)
		}
	}
}

type brokenStore struct{}

func (brokenStore) Exists(context.Context, string, string, string) (bool, error) {
	return false, errors.New("store down")
}

func TestDeduplicatorScopesStoreCodesToSite(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	saved := types.NewRecord()
	saved.SourceSite, saved.Code, saved.DetailURL = "a.vn", "HN01", "https://a.vn/tour/hn01"
	_, err := store.SaveRecords(ctx, []*types.OutputRecord{saved})
	require.NoError(t, err)

	dup, err := NewDeduplicator(store, "b.vn").Seen(ctx, "HN01", "https://b.vn/tour/hn01")
	require.NoError(t, err)
	assert.False(t, dup, "code from another site")

	dup, err = NewDeduplicator(store, "a.vn").Seen(ctx, "HN01", "https://a.vn/tour/other")
	require.NoError(t, err)
	assert.True(t, dup, "code from the same site")
}

func TestDeduplicatorStoreErrorCountsAsNew(t *testing.T) {
	d := NewDeduplicator(brokenStore{}, "example.com")
	dup, err := d.Seen(context.Background(), "T1", "")
	assert.Error(t, err)
	assert.False(t, dup)
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://Example.com:443/a/?z=1&a=2#frag", "https://example.com/a?a=2&z=1"},
		{"http://example.com:80", "http://example.com/"},
		{"https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		strategy, paging string
		want             Strategy
	}{
		{"server_side", "querystring", Strategy{types.StrategyStatic, types.PagingQueryString}},
		{"dynamic", "load_more", Strategy{types.StrategyDynamic, types.PagingLoadMore}},
		{"", "", Strategy{types.StrategyStatic, types.PagingNone}},
	}
	for _, tt := range tests {
		got := StrategyFor(&types.Recipe{Strategy: types.CrawlStrategy(tt.strategy), Paging: types.PagingType(tt.paging)})
		if got != tt.want {
			t.Errorf("StrategyFor(%q, %q) = %v, want %v", tt.strategy, tt.paging, got, tt.want)
		}
	}
}
