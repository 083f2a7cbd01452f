package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/engine"
	"github.com/IshaanNene/listgoat/internal/fetcher"
	"github.com/IshaanNene/listgoat/internal/resolver"
	"github.com/IshaanNene/listgoat/internal/storage"
	"github.com/IshaanNene/listgoat/internal/types"
	"github.com/IshaanNene/listgoat/internal/validator"
)

var (
	cfgFile    string
	verbose    bool
	workers    int
	userAgent  string
	headful    bool
	outputPath string
	outputType string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "listgoat",
		Short: "Recipe-driven listing crawler",
		Long: `listgoat turns a click on a listing page into a reusable extraction recipe
and replays recipes to crawl list and detail pages into structured records.

Commands:
  render     fetch a page statically or in a headless browser
  resolve    derive item and field selectors from a selection
  validate   trial-crawl a recipe and report field coverage
  crawl      run a stored recipe and persist its records`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "n", 0, "detail page workers (0 = config default)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	rootCmd.PersistentFlags().BoolVar(&headful, "headful", false, "show the browser window")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "record output file for the file backend")
	rootCmd.PersistentFlags().StringVarP(&outputType, "format", "f", "", "record output format: json, jsonl")

	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(recipeCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// renderCmd creates the "render" subcommand.
func renderCmd() *cobra.Command {
	var (
		mode     string
		loadMore string
		clicks   int
		out      string
	)
	cmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render a page and print what the renderer did",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, err := types.ParseRenderMode(mode)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			r, err := fetcher.NewRenderer(cfg.Render, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			res, err := r.Render(ctx, types.RenderRequest{
				URL:              args[0],
				Mode:             m,
				LoadMoreSelector: loadMore,
				LoadMoreClicks:   clicks,
			})
			if res != nil {
				fmt.Printf("Mode:       %s\n", res.ModeUsed)
				fmt.Printf("Final URL:  %s\n", res.FinalURL)
				fmt.Printf("Base:       %s\n", res.BaseDomain)
				fmt.Printf("HTML:       %d bytes\n", len(res.HTML))
				for _, l := range res.Logs {
					fmt.Printf("  - %s\n", l)
				}
			}
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(res.HTML), 0o644); err != nil {
					return fmt.Errorf("write html: %w", err)
				}
				fmt.Printf("Written:    %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "render mode: static, dynamic, auto")
	cmd.Flags().StringVar(&loadMore, "load-more", "", "load-more control selector (dynamic only)")
	cmd.Flags().IntVar(&clicks, "clicks", 0, "load-more clicks (dynamic only)")
	cmd.Flags().StringVar(&out, "out", "", "write the rendered HTML to this file")
	return cmd
}

// resolveCmd creates the "resolve" subcommand.
func resolveCmd() *cobra.Command {
	var (
		mode          string
		css, xp, text string
		ancestorCSS   string
		ancestorXPath string
		autoAncestor  bool
		sample        int
	)
	cmd := &cobra.Command{
		Use:   "resolve [url]",
		Short: "Resolve a selection into item and field selectors",
		Long: `Resolve renders the page, locates the selected element by CSS, XPath or
visible text, finds the repeating item that contains it and prints the item
XPath, the item-relative field XPath, coverage and samples as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, err := types.ParseRenderMode(mode)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			r, err := fetcher.NewRenderer(cfg.Render, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			res, err := resolver.New(r, cfg.Resolve, logger).Resolve(ctx, types.ResolveRequest{
				Render:      types.RenderRequest{URL: args[0], Mode: m},
				Selection:   types.SelectionSpec{CSS: css, XPath: xp, Text: text},
				Ancestor:    types.AncestorSpec{Auto: autoAncestor, CSS: ancestorCSS, XPath: ancestorXPath},
				SampleLimit: sample,
			})
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "render mode: static, dynamic, auto")
	cmd.Flags().StringVar(&css, "css", "", "CSS selector of the clicked element")
	cmd.Flags().StringVar(&xp, "xpath", "", "XPath of the clicked element")
	cmd.Flags().StringVar(&text, "text", "", "visible text of the clicked element")
	cmd.Flags().StringVar(&ancestorCSS, "ancestor-css", "", "explicit item container as CSS")
	cmd.Flags().StringVar(&ancestorXPath, "ancestor-xpath", "", "explicit item container as XPath")
	cmd.Flags().BoolVar(&autoAncestor, "auto-ancestor", true, "detect the repeating item container")
	cmd.Flags().IntVar(&sample, "sample", 0, "coverage sample size (0 = config default)")
	cmd.MarkFlagsMutuallyExclusive("css", "xpath", "text")
	return cmd
}

// validateCmd creates the "validate" subcommand.
func validateCmd() *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "validate [recipe-file-or-id]",
		Short: "Trial-crawl a recipe and report per-field coverage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			recipe, err := loadRecipe(ctx, cfg, logger, args[0])
			if err != nil {
				return err
			}

			// No record store: validation must not skip records already saved.
			eng := engine.New(cfg, logger)
			rep, err := validator.New(eng, logger).Validate(ctx, recipe, sample)
			if rep != nil {
				if perr := printJSON(os.Stdout, rep); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if rep.ItemsFound == 0 {
				return types.ErrNoItems
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", validator.DefaultSampleLimit, "number of sample records to print")
	return cmd
}

// loadRecipe reads a recipe from a YAML file when ref names one, and from
// the configured recipe store otherwise.
func loadRecipe(ctx context.Context, cfg *config.Config, logger *slog.Logger, ref string) (*types.Recipe, error) {
	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		return storage.ReadRecipeFile(ref)
	}
	stores, err := openStores(ctx, cfg, logger, true)
	if err != nil {
		return nil, err
	}
	defer stores.Close()
	return stores.Recipes.LoadRecipe(ctx, ref)
}

// openStores opens the configured backends. With memRecords the record
// store is in memory and nothing is persisted.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, memRecords bool) (*storage.Stores, error) {
	sc := cfg.Storage
	if memRecords {
		sc.Records = "memory"
	}
	return storage.Open(ctx, sc, logger)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("listgoat %s\n", config.Version)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if workers > 0 {
		cfg.Crawl.DetailWorkers = workers
	}
	if userAgent != "" {
		cfg.Render.UserAgent = userAgent
	}
	if headful {
		cfg.Render.Headless = false
	}
	if outputPath != "" {
		cfg.Storage.Output = outputPath
	}
	if outputType != "" {
		cfg.Storage.Format = strings.ToLower(outputType)
	}
}
