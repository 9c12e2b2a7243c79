package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lancermigrate/internal/logging"
	"lancermigrate/internal/seed"
)

func seedCmd() *cobra.Command {
	var dir string
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install the shipped catalog packs when the stored data is outdated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(dir, force)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Pack directory (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Install even when the stored version is current")
	return cmd
}

func runSeed(dir string, force bool) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if dir == "" {
		dir = a.cfg.Seed.Path
	}
	if dir == "" {
		return fmt.Errorf("no pack directory configured; pass --dir")
	}
	shipped := a.cfg.Seed.Version
	if shipped == "" {
		shipped = a.cfg.System.Version
	}

	seeder, err := seed.New(a.db, a.cfg.System.Name, shipped, logging.Component(a.log, "seed"))
	if err != nil {
		return err
	}

	report, err := seeder.Run(ctx, dir, force)
	if report != nil && report.Skipped {
		fmt.Fprintf(os.Stdout, "Core data is current (%s).\n", report.Current)
		return nil
	}
	if report != nil {
		fmt.Fprintln(os.Stdout, "Seeding complete.")
		fmt.Fprintf(os.Stdout, "  Catalogs:  %d\n", len(report.Catalogs))
		fmt.Fprintf(os.Stdout, "  Documents: %d\n", report.Documents)
	}
	if err != nil {
		return fmt.Errorf("seeding completed with errors: %w", err)
	}
	return nil
}
