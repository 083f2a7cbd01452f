package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/engine"
	"github.com/IshaanNene/listgoat/internal/observability"
	"github.com/IshaanNene/listgoat/internal/storage"
	"github.com/IshaanNene/listgoat/internal/types"
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	var (
		limit       int
		async       bool
		dryRun      bool
		showMetrics bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "crawl [recipe-id]",
		Short: "Run a stored recipe and save its records",
		Long: `Crawl loads a recipe from the recipe store, renders its list pages,
enriches each new item from its detail page and saves the records.

With --async the run is tracked as a job; see "listgoat jobs".
With --dry-run records are printed instead of saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			stores, err := openStores(ctx, cfg, logger, dryRun)
			if err != nil {
				return err
			}
			defer stores.Close()

			recipe, err := stores.Recipes.LoadRecipe(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load recipe %q: %w", args[0], err)
			}

			eng := engine.New(cfg, logger)
			eng.SetStore(stores.Records)
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, eng.Metrics(), logger)
				defer stop()
			}

			run := func(ctx context.Context) (*engine.Result, int, error) {
				res, err := eng.Crawl(ctx, recipe, limit)
				if err != nil {
					return nil, 0, err
				}
				saved, err := eng.Save(ctx, res.Records)
				return res, saved, err
			}

			var (
				res   *engine.Result
				saved int
			)
			if async {
				res, saved, err = runJob(ctx, stores.Jobs, recipe.ID, eng.Metrics(), logger, run)
			} else {
				res, saved, err = run(ctx)
			}
			if err != nil {
				return err
			}

			printSummary(cfg, res, saved, dryRun)
			if dryRun {
				if err := printJSON(os.Stdout, res.Records); err != nil {
					return err
				}
			}
			if showMetrics {
				fmt.Println()
				if _, err := eng.Metrics().WriteTo(os.Stdout); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum records per run (0 = config default)")
	cmd.Flags().BoolVar(&async, "async", false, "track the run as a job")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print records instead of saving them")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print crawl metrics in Prometheus text format")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address while crawling")
	return cmd
}

type crawlFunc func(ctx context.Context) (*engine.Result, int, error)

// runJob records a pending job, runs fn in its own goroutine and marks the
// job done or failed, logging the crawl counters. It returns when fn does.
func runJob(ctx context.Context, jobs storage.JobStore, recipeID string, metrics *observability.Metrics, logger *slog.Logger, fn crawlFunc) (*engine.Result, int, error) {
	id, err := jobs.Create(ctx, recipeID)
	if err != nil {
		return nil, 0, err
	}
	fmt.Printf("Job %s started\n", id)
	logger = logger.With("job", id)

	type outcome struct {
		res   *engine.Result
		saved int
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		res, saved, err := fn(ctx)
		done <- outcome{res, saved, err}
	}()
	o := <-done

	// Record the outcome even when ctx was canceled.
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if o.err != nil {
		if uerr := jobs.Update(uctx, id, types.JobFailed, o.err.Error()); uerr != nil {
			logger.Warn("job update failed", "error", uerr)
		}
		return nil, 0, o.err
	}
	log := jobLog(metrics.Snapshot())
	if uerr := jobs.Update(uctx, id, types.JobDone, log); uerr != nil {
		logger.Warn("job update failed", "error", uerr)
	}
	return o.res, o.saved, nil
}

// jobLog formats counters as sorted key=value pairs.
func jobLog(snap map[string]int64) string {
	parts := make([]string, 0, len(snap))
	for _, k := range slices.Sorted(maps.Keys(snap)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, snap[k]))
	}
	return strings.Join(parts, " ")
}

// serveMetrics exposes metrics over HTTP until the returned stop is called.
func serveMetrics(addr string, metrics *observability.Metrics, logger *slog.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printSummary(cfg *config.Config, res *engine.Result, saved int, dryRun bool) {
	fmt.Printf("\nCrawl complete in %s (%s)\n", res.Elapsed.Round(time.Millisecond), res.Strategy)
	fmt.Printf("   Pages:     %d rendered, %d items matched\n", res.Pages, res.Matched)
	fmt.Printf("   Skipped:   %d duplicates, %d noise, %d errors\n", res.Duplicates, res.Noise, res.Skipped)
	fmt.Printf("   Records:   %d new, %d saved\n", len(res.Records), saved)
	if !dryRun && cfg.Storage.Records == "file" {
		fmt.Printf("   Output:    %s\n", cfg.Storage.Output)
	}
}
