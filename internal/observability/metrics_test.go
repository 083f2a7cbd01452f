package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.PagesRendered.Add(6)
	m.DuplicatesSkipped.Add(2)
	m.RecordsSaved.Add(5)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE listgoat_pages_rendered_total counter\n",
		"listgoat_pages_rendered_total 6\n",
		"listgoat_duplicates_skipped_total 2\n",
		"listgoat_records_saved_total 5\n",
		"# TYPE listgoat_detail_workers_active gauge\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	snap := m.Snapshot()
	if snap["records_saved"] != 5 || snap["details_failed"] != 0 {
		t.Errorf("snapshot = %v", snap)
	}
}
