package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/IshaanNene/listgoat/internal/types"
)

// fakePager grows by step items per click for the first growFor clicks,
// then clicks keep succeeding without adding items.
type fakePager struct {
	count    int
	step     int
	growFor  int
	clicks   int
	missing  bool
	countErr error
}

func (f *fakePager) Next(ctx context.Context) (bool, error) {
	if f.missing {
		return false, nil
	}
	f.clicks++
	if f.clicks <= f.growFor {
		f.count += f.step
	}
	return true, nil
}

func (f *fakePager) Count(ctx context.Context) (int, error) {
	return f.count, f.countErr
}

func TestLoadMoreHaltsAfterStall(t *testing.T) {
	for _, k := range []int{0, 1, 3, 7} {
		for _, tol := range []int{1, 2, 4} {
			p := &fakePager{count: 10, step: 10, growFor: k}
			stats := LoadMore(context.Background(), p, LoadMoreOptions{MaxIterations: 1000, StallTolerance: tol})

			if stats.Reason != StopStalled {
				t.Errorf("k=%d tol=%d: reason = %s, want stalled", k, tol, stats.Reason)
			}
			if stats.Iterations > k+tol {
				t.Errorf("k=%d tol=%d: %d iterations, want <= %d", k, tol, stats.Iterations, k+tol)
			}
			if want := 10 + 10*k; stats.FinalCount != want {
				t.Errorf("k=%d tol=%d: final count %d, want %d", k, tol, stats.FinalCount, want)
			}
		}
	}
}

func TestLoadMoreIterationCap(t *testing.T) {
	p := &fakePager{step: 1, growFor: 1 << 30}
	stats := LoadMore(context.Background(), p, LoadMoreOptions{MaxIterations: 5, StallTolerance: 2})
	if stats.Reason != StopCap {
		t.Errorf("reason = %s, want iteration_cap", stats.Reason)
	}
	if stats.Clicks != 5 {
		t.Errorf("clicks = %d, want 5", stats.Clicks)
	}
}

func TestLoadMoreNoControl(t *testing.T) {
	p := &fakePager{count: 4, missing: true}
	stats := LoadMore(context.Background(), p, LoadMoreOptions{MaxIterations: 10, StallTolerance: 2})
	if stats.Reason != StopNoControl || stats.Clicks != 0 {
		t.Errorf("got reason=%s clicks=%d", stats.Reason, stats.Clicks)
	}
	if stats.FirstCount != 4 || stats.FinalCount != 4 {
		t.Errorf("counts = %d/%d, want 4/4", stats.FirstCount, stats.FinalCount)
	}
}

func TestLoadMoreClickBudgetWithoutStallTracking(t *testing.T) {
	p := &fakePager{countErr: errors.New("count must not be called")}
	stats := LoadMore(context.Background(), p, LoadMoreOptions{MaxIterations: 3})
	if stats.Reason != StopCap || stats.Clicks != 3 {
		t.Errorf("got reason=%s clicks=%d err=%v", stats.Reason, stats.Clicks, stats.Err)
	}
}

func TestLoadMoreCountError(t *testing.T) {
	p := &fakePager{countErr: errors.New("boom")}
	stats := LoadMore(context.Background(), p, LoadMoreOptions{MaxIterations: 3, StallTolerance: 1})
	if stats.Reason != StopError || stats.Err == nil {
		t.Errorf("got reason=%s err=%v", stats.Reason, stats.Err)
	}
}

func TestLoadMoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := LoadMore(ctx, &fakePager{step: 1, growFor: 100}, LoadMoreOptions{MaxIterations: 10})
	if stats.Reason != StopCanceled {
		t.Errorf("reason = %s, want canceled", stats.Reason)
	}
}

func TestResolveControl(t *testing.T) {
	tests := []struct {
		sel   string
		kind  types.LoadMoreKind
		xpath bool
		expr  string
	}{
		{"//button[@id='more']", "", true, "//button[@id='more']"},
		{".btn-more", "", false, ".btn-more"},
		{"div.paging a", "", false, "div.paging a"},
		{"btn-more", "", false, ".btn-more"},
		{"#more", types.LoadMoreByID, false, "#more"},
		{"more", types.LoadMoreByID, false, "#more"},
		{".btn load-more", types.LoadMoreByClass, false, ".btn.load-more"},
		{"btn", types.LoadMoreByClass, false, ".btn"},
		{"//a[text()='Next']", types.LoadMoreByXPath, true, "//a[text()='Next']"},
	}
	for _, tt := range tests {
		q := ResolveControl(tt.sel, tt.kind)
		if q.XPath != tt.xpath || q.Expr != tt.expr {
			t.Errorf("ResolveControl(%q, %q) = %+v, want xpath=%v expr=%q", tt.sel, tt.kind, q, tt.xpath, tt.expr)
		}
	}
}
