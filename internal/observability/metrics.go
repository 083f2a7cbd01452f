// Package observability holds the crawl counters and their Prometheus
// text exposition.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks what a crawl did.
type Metrics struct {
	// Render metrics
	PagesRendered  atomic.Int64
	RenderFailures atomic.Int64

	// List metrics
	ItemsMatched      atomic.Int64
	ItemErrors        atomic.Int64
	DuplicatesSkipped atomic.Int64
	NoiseDropped      atomic.Int64

	// Detail metrics
	DetailsFetched atomic.Int64
	DetailsFailed  atomic.Int64
	ActiveWorkers  atomic.Int32

	// Output metrics
	RecordsEmitted atomic.Int64
	RecordsSaved   atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) all() []metric {
	return []metric{
		{"listgoat_pages_rendered_total", "List and detail pages rendered", "counter", m.PagesRendered.Load()},
		{"listgoat_render_failures_total", "Pages that failed to render", "counter", m.RenderFailures.Load()},
		{"listgoat_items_matched_total", "List items matched by the item selector", "counter", m.ItemsMatched.Load()},
		{"listgoat_item_errors_total", "List items skipped after an extraction error", "counter", m.ItemErrors.Load()},
		{"listgoat_duplicates_skipped_total", "Items skipped as already seen", "counter", m.DuplicatesSkipped.Load()},
		{"listgoat_noise_dropped_total", "Items without name, code or detail URL", "counter", m.NoiseDropped.Load()},
		{"listgoat_details_fetched_total", "Detail pages fetched", "counter", m.DetailsFetched.Load()},
		{"listgoat_details_failed_total", "Detail pages that failed", "counter", m.DetailsFailed.Load()},
		{"listgoat_detail_workers_active", "Detail workers currently running", "gauge", int64(m.ActiveWorkers.Load())},
		{"listgoat_records_emitted_total", "Records produced by crawls", "counter", m.RecordsEmitted.Load()},
		{"listgoat_records_saved_total", "Records written to the record store", "counter", m.RecordsSaved.Load()},
	}
}

// WriteTo writes the metrics in Prometheus text exposition format.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, mt := range m.all() {
		n, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n",
			mt.name, mt.help, mt.name, mt.kind, mt.name, mt.value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if _, err := m.WriteTo(w); err != nil {
		m.logger.Debug("metrics write failed", "error", err)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_rendered":     m.PagesRendered.Load(),
		"render_failures":    m.RenderFailures.Load(),
		"items_matched":      m.ItemsMatched.Load(),
		"item_errors":        m.ItemErrors.Load(),
		"duplicates_skipped": m.DuplicatesSkipped.Load(),
		"noise_dropped":      m.NoiseDropped.Load(),
		"details_fetched":    m.DetailsFetched.Load(),
		"details_failed":     m.DetailsFailed.Load(),
		"records_emitted":    m.RecordsEmitted.Load(),
		"records_saved":      m.RecordsSaved.Load(),
	}
}
