// Package engine runs a recipe end to end: list pages, item extraction,
// de-duplication, bounded detail enrichment and record normalization.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/listgoat/internal/automation"
	"github.com/IshaanNene/listgoat/internal/classify"
	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/fetcher"
	"github.com/IshaanNene/listgoat/internal/observability"
	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/pipeline"
	"github.com/IshaanNene/listgoat/internal/types"
)

// RecordStore is the persistence the engine dedups against and saves to.
type RecordStore interface {
	ExistsChecker
	SaveRecords(ctx context.Context, recs []*types.OutputRecord) (int, error)
}

// Result summarizes one crawl.
type Result struct {
	Strategy   Strategy
	Records    []*types.OutputRecord
	Pages      int
	Matched    int
	Duplicates int
	Noise      int
	Skipped    int
	Elapsed    time.Duration
}

// Engine is the crawl orchestrator.
type Engine struct {
	cfg        config.CrawlConfig
	sessions   SessionFunc
	store      RecordStore
	classifier *classify.Classifier
	metrics    *observability.Metrics
	logger     *slog.Logger
	mu         sync.RWMutex
}

// New creates an engine that renders with the default static and browser
// sessions.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg.Crawl,
		sessions:   DefaultSessions(cfg.Render, cfg.Crawl, logger),
		classifier: classify.New(logger),
		metrics:    observability.NewMetrics(logger),
		logger:     logger.With("component", "engine"),
	}
}

// SetSessions replaces how sessions are opened.
func (e *Engine) SetSessions(fn SessionFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = fn
}

// SetStore sets the record store used for dedup and Save.
func (e *Engine) SetStore(s RecordStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = s
}

// SetMetrics sets the metrics sink.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *observability.Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics
}

// Crawl runs recipe and returns normalized records. itemLimit > 0 caps the
// batch after de-duplication; otherwise the configured default applies.
// Only a failure to render every list page is returned as an error; item
// and detail failures are logged and skipped.
func (e *Engine) Crawl(ctx context.Context, recipe *types.Recipe, itemLimit int) (*Result, error) {
	e.mu.RLock()
	open, store, metrics := e.sessions, e.store, e.metrics
	e.mu.RUnlock()

	r := *recipe
	r.Normalize()
	if strings.TrimSpace(r.ItemList) == "" {
		return nil, fmt.Errorf("recipe %q: item list selector is empty", r.ID)
	}
	if _, err := parser.Compile(r.ItemList); err != nil {
		return nil, err
	}
	urls := r.BaseURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("recipe %q: no base url", r.ID)
	}
	for _, u := range urls {
		if err := config.ValidateURL(fetcher.NormalizeURL(u)); err != nil {
			return nil, fmt.Errorf("recipe %q: base url %q: %w", r.ID, u, err)
		}
	}
	if itemLimit <= 0 {
		itemLimit = e.cfg.ItemLimit
	}

	start := time.Now()
	res := &Result{Strategy: StrategyFor(&r)}
	e.logger.Info("crawl starting", "recipe", r.ID, "strategy", res.Strategy.String(), "urls", len(urls))

	session, err := open(ctx, res.Strategy)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	skeletons, err := e.listPass(ctx, session, &r, urls, res, metrics)
	if err != nil {
		return nil, err
	}

	dedup := NewDeduplicator(store, r.SourceSite())
	kept := skeletons[:0]
	for _, rec := range skeletons {
		if rec.IsNoise() {
			res.Noise++
			metrics.NoiseDropped.Add(1)
			continue
		}
		dup, err := dedup.Seen(ctx, rec.Code, rec.DetailURL)
		if err != nil {
			e.logger.Warn("store lookup failed", "code", rec.Code, "url", rec.DetailURL, "error", err)
		}
		if dup {
			res.Duplicates++
			metrics.DuplicatesSkipped.Add(1)
			e.logger.Debug("duplicate skipped", "code", rec.Code, "url", rec.DetailURL)
			continue
		}
		kept = append(kept, rec)
	}
	if itemLimit > 0 && len(kept) > itemLimit {
		kept = kept[:itemLimit]
	}

	e.detailPass(ctx, session, &r, kept, metrics)

	p := pipeline.Default(&r, e.logger)
	res.Records = make([]*types.OutputRecord, 0, len(kept))
	for i, rec := range kept {
		out, err := p.Process(rec)
		if err != nil {
			res.Skipped++
			metrics.ItemErrors.Add(1)
			e.logger.Warn("record skipped", "error", &types.ItemError{Index: i, URL: rec.DetailURL, Err: err})
			continue
		}
		if out == nil {
			res.Noise++
			metrics.NoiseDropped.Add(1)
			continue
		}
		res.Records = append(res.Records, out)
	}
	metrics.RecordsEmitted.Add(int64(len(res.Records)))

	res.Elapsed = time.Since(start)
	e.logger.Info("crawl finished",
		"recipe", r.ID,
		"pages", res.Pages,
		"matched", res.Matched,
		"duplicates", res.Duplicates,
		"noise", res.Noise,
		"records", len(res.Records),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// Save writes records to the configured store.
func (e *Engine) Save(ctx context.Context, recs []*types.OutputRecord) (int, error) {
	e.mu.RLock()
	store, metrics := e.store, e.metrics
	e.mu.RUnlock()
	if store == nil {
		return 0, errors.New("no record store configured")
	}
	if len(recs) == 0 {
		return 0, nil
	}
	n, err := store.SaveRecords(ctx, recs)
	if err != nil {
		return 0, err
	}
	metrics.RecordsSaved.Add(int64(n))
	return n, nil
}

// listPass renders every list page and extracts skeleton records in page
// order. Pages are visited strictly in sequence.
func (e *Engine) listPass(ctx context.Context, s Session, r *types.Recipe, urls []string, res *Result, metrics *observability.Metrics) ([]*types.OutputRecord, error) {
	var (
		records []*types.OutputRecord
		lastErr error
		okPages int
	)

	visit := func(req ListRequest) (int, string, error) {
		page, err := s.List(ctx, req)
		if err != nil {
			metrics.RenderFailures.Add(1)
			e.logger.Warn("list page failed", "url", req.URL, "error", err)
			return 0, "", err
		}
		metrics.PagesRendered.Add(1)
		res.Pages++
		okPages++
		for _, note := range page.Notes {
			e.logger.Debug("list page", "url", req.URL, "note", note)
		}

		doc, err := parser.Parse(page.HTML)
		if err != nil {
			return 0, page.HTML, err
		}
		items := parser.MustQueryAll(doc, r.ItemList)
		res.Matched += len(items)
		metrics.ItemsMatched.Add(int64(len(items)))
		for _, n := range items {
			records = append(records, extractItem(n, r))
		}
		e.logger.Info("list page extracted", "url", req.URL, "items", len(items))
		return len(items), page.HTML, nil
	}

	strategy := StrategyFor(r)
	for _, base := range urls {
		base = fetcher.NormalizeURL(base)

		if strategy.Crawl == types.StrategyStatic && strategy.Paging == types.PagingQueryString {
			// Each base URL paginates on its own until a page comes back empty.
			prev := ""
			for n := 1; n <= e.cfg.MaxPages; n++ {
				if ctx.Err() != nil {
					return records, ctx.Err()
				}
				count, body, err := visit(ListRequest{URL: fetcher.WithPage(base, n), ItemXPath: r.ItemList})
				if err != nil {
					lastErr = err
					break
				}
				if count == 0 || body == prev {
					break
				}
				prev = body
			}
			continue
		}

		req := ListRequest{URL: base, ItemXPath: r.ItemList}
		if strategy.Crawl == types.StrategyDynamic && strategy.Paging.Interactive() {
			req.Interactive = true
			req.Control = automation.Control{
				Selector:     types.Selector(r.LoadMore.Selector),
				Kind:         r.LoadMore.Kind,
				TextPatterns: e.cfg.FallbackControls,
			}
		}
		if _, _, err := visit(req); err != nil {
			lastErr = err
		}
	}

	if okPages == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

// detailPass enriches records from their detail pages through a bounded
// worker pool. Results land at each record's own index, so output order
// never depends on completion order. A failed detail leaves the record
// with its list fields only.
func (e *Engine) detailPass(ctx context.Context, s Session, r *types.Recipe, recs []*types.OutputRecord, metrics *observability.Metrics) {
	workers := e.cfg.DetailWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range recs {
		if rec.DetailURL == "" {
			continue
		}
		g.Go(func() error {
			metrics.ActiveWorkers.Add(1)
			defer metrics.ActiveWorkers.Add(-1)

			if err := e.detail(gctx, s, r, rec); err != nil {
				metrics.DetailsFailed.Add(1)
				e.logger.Warn("detail page failed", "error", &types.ItemError{Index: i, URL: rec.DetailURL, Err: err})
				return nil
			}
			metrics.DetailsFetched.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) detail(ctx context.Context, s Session, r *types.Recipe, rec *types.OutputRecord) error {
	if e.cfg.DetailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.DetailTimeout)
		defer cancel()
	}
	body, err := s.Detail(ctx, rec.DetailURL)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return types.ErrEmptyHTML
	}
	doc, err := parser.Parse(body)
	if err != nil {
		return err
	}
	e.enrich(rec, doc, r)
	return nil
}
