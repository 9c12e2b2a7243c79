package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func catalogsCmd() *cobra.Command {
	var pkg string
	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "List catalogs in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogs(pkg)
		},
	}
	cmd.Flags().StringVar(&pkg, "package", "", "Package to filter")
	return cmd
}

func runCatalogs(pkg string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	catalogs, err := a.db.ListCatalogs(ctx)
	if err != nil {
		return err
	}

	shown := 0
	for _, c := range catalogs {
		if pkg != "" && c.Metadata.Package != pkg {
			continue
		}
		state := "unlocked"
		if c.Locked {
			state = "locked"
		}
		if c.Protected {
			state += ", protected"
		}
		fmt.Fprintf(os.Stdout, "%s %q (%s) [%s]\n", c.Collection, c.Title, c.Metadata.Entity, state)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(os.Stdout, "No catalogs found.")
	}
	return nil
}
