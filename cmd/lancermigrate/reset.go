package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lancermigrate/internal/notify"
)

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the shipped core catalogs so they can be reseeded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes catalogs; pass --yes to continue")
			}
			return runReset()
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of the core catalogs")
	return cmd
}

func runReset() error {
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

	deleted, err := m.ScorchedEarth(ctx)
	if len(deleted) == 0 && err == nil {
		fmt.Fprintln(os.Stdout, "No core catalogs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "Deleted catalogs (%d):\n", len(deleted))
	for _, collection := range deleted {
		fmt.Fprintf(os.Stdout, "  - %s\n", collection)
	}
	if err != nil {
		return fmt.Errorf("reset completed with errors: %w", err)
	}
	return nil
}
