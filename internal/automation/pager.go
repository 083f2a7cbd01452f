// Package automation drives paging controls on a live browser page.
package automation

import (
	"context"
	"time"
)

// Pager is a page with a paging control. Next locates and activates the
// control; it returns false when no visible, enabled control is left.
// Count reports the number of list items currently in the DOM.
type Pager interface {
	Next(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int, error)
}

// StopReason says why a paging loop ended.
type StopReason string

const (
	StopNoControl StopReason = "no_control"
	StopCap       StopReason = "iteration_cap"
	StopStalled   StopReason = "stalled"
	StopError     StopReason = "error"
	StopCanceled  StopReason = "canceled"
)

// LoadMoreOptions bounds a paging loop.
type LoadMoreOptions struct {
	// MaxIterations caps the number of control activations.
	MaxIterations int
	// StallTolerance ends the loop after this many consecutive activations
	// that did not grow the item count. Zero disables stall detection.
	StallTolerance int
	// Settle is how long to wait after each activation.
	Settle time.Duration
}

// LoadMoreStats reports what a paging loop did.
type LoadMoreStats struct {
	Clicks     int
	Iterations int
	FirstCount int
	FinalCount int
	Reason     StopReason
	Err        error
}

// LoadMore activates the paging control until the control is gone, the
// iteration cap is reached, or the item count stops growing for
// StallTolerance consecutive iterations. With a control that stops adding
// items after k activations it returns within k+StallTolerance iterations.
func LoadMore(ctx context.Context, p Pager, opts LoadMoreOptions) LoadMoreStats {
	var stats LoadMoreStats
	track := opts.StallTolerance > 0

	if track {
		n, err := p.Count(ctx)
		if err != nil {
			stats.Reason, stats.Err = StopError, err
			return stats
		}
		stats.FirstCount, stats.FinalCount = n, n
	}

	stalls := 0
	for {
		if stats.Iterations >= opts.MaxIterations {
			stats.Reason = StopCap
			return stats
		}
		if ctx.Err() != nil {
			stats.Reason, stats.Err = StopCanceled, ctx.Err()
			return stats
		}
		stats.Iterations++

		ok, err := p.Next(ctx)
		if err != nil {
			stats.Reason, stats.Err = StopError, err
			return stats
		}
		if !ok {
			stats.Reason = StopNoControl
			return stats
		}
		stats.Clicks++

		if !Sleep(ctx, opts.Settle) {
			stats.Reason, stats.Err = StopCanceled, ctx.Err()
			return stats
		}

		if !track {
			continue
		}
		n, err := p.Count(ctx)
		if err != nil {
			stats.Reason, stats.Err = StopError, err
			return stats
		}
		if n > stats.FinalCount {
			stalls = 0
		} else {
			stalls++
		}
		stats.FinalCount = n
		if stalls >= opts.StallTolerance {
			stats.Reason = StopStalled
			return stats
		}
	}
}

// Sleep waits for d or until ctx is done. It reports whether ctx is still live.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
