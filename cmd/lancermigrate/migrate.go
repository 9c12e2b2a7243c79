package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lancermigrate/internal/migrate"
	"lancermigrate/internal/notify"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate world documents and catalogs",
	}
	cmd.AddCommand(migrateWorldCmd())
	cmd.AddCommand(migrateCatalogCmd())
	return cmd
}

func migrateWorldCmd() *cobra.Command {
	var opts migrate.WorldOptions
	var strategy string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "world",
		Short: "Run the full world migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateWorld(opts, strategy, quiet)
		},
	}
	cmd.Flags().BoolVar(&opts.Catalogs, "catalogs", true, "Reset or migrate catalogs")
	cmd.Flags().BoolVar(&opts.Actors, "actors", false, "Migrate world actors")
	cmd.Flags().BoolVar(&opts.Items, "items", false, "Migrate world items")
	cmd.Flags().BoolVar(&opts.Scenes, "scenes", false, "Migrate scene tokens")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Catalog strategy: reset or incremental (default from config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Only print permanent notifications and errors")
	return cmd
}

func runMigrateWorld(opts migrate.WorldOptions, strategy string, quiet bool) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if strategy != "" {
		a.cfg.Migration.CatalogStrategy = strategy
	}

	term := notify.NewTerminal(os.Stdout)
	term.Quiet = quiet
	m, err := a.migrator(term)
	if err != nil {
		return err
	}

	result, migrateErr := m.MigrateWorld(ctx, opts)

	if len(result.Deleted) > 0 {
		fmt.Fprintf(os.Stdout, "Catalogs reset (%d):\n", len(result.Deleted))
		for _, collection := range result.Deleted {
			fmt.Fprintf(os.Stdout, "  - %s\n", collection)
		}
	}
	for _, res := range result.Catalogs {
		printResult(os.Stdout, res)
	}
	for _, res := range []*migrate.Result{result.Actors, result.Items, result.Scenes} {
		if res != nil {
			printResult(os.Stdout, res)
		}
	}

	if migrateErr != nil {
		return fmt.Errorf("world migration completed with errors: %w", migrateErr)
	}
	return nil
}

func migrateCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog <collection>",
		Short: "Migrate every document of one catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateCatalog(args[0])
		},
	}
	return cmd
}

func runMigrateCatalog(collection string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	m, err := a.migrator(notify.NewTerminal(os.Stdout))
	if err != nil {
		return err
	}

	result, err := m.MigrateCompendium(ctx, collection)
	if err != nil {
		return err
	}
	printResult(os.Stdout, result)
	if result.Failed > 0 {
		return fmt.Errorf("%d documents failed to migrate", result.Failed)
	}
	return nil
}

func printResult(out io.Writer, res *migrate.Result) {
	if res.Skipped {
		fmt.Fprintf(out, "%s: skipped\n", res.Collection)
		return
	}
	fmt.Fprintf(out, "%s (%s):\n", res.Collection, res.Kind)
	fmt.Fprintf(out, "  Updated:   %d\n", res.Updated)
	fmt.Fprintf(out, "  Unchanged: %d\n", res.Unchanged)
	if res.Imported > 0 {
		fmt.Fprintf(out, "  Imported:  %d\n", res.Imported)
	}
	if res.Failed > 0 {
		fmt.Fprintf(out, "  Failed:    %d\n", res.Failed)
		for _, err := range res.Errors {
			fmt.Fprintf(out, "    - %v\n", err)
		}
	}
}
