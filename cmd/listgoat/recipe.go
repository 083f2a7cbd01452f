package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/listgoat/internal/storage"
)

// recipeCmd groups recipe store commands.
func recipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Manage stored recipes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Store a recipe read from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			recipe, err := storage.ReadRecipeFile(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			stores, err := openStores(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer stores.Close()

			id, err := stores.Recipes.SaveRecipe(ctx, recipe)
			if err != nil {
				return err
			}
			fmt.Printf("Recipe %s saved\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored recipe as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			stores, err := openStores(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer stores.Close()

			recipe, err := stores.Recipes.LoadRecipe(ctx, args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(recipe)
		},
	})
	return cmd
}

// jobsCmd groups crawl job history commands.
func jobsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect asynchronous crawl jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			stores, err := openStores(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer stores.Close()

			jobs, err := stores.Jobs.List(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRECIPE\tSTATUS\tUPDATED")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.ID, j.RecipeID, j.Status, j.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum jobs to list (0 = all)")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Print one job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			stores, err := openStores(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer stores.Close()

			job, err := stores.Jobs.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, job)
		},
	})
	return cmd
}
