package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/migrate"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <collection> <id>",
		Short: "Show a document and the update a migration would write",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], args[1])
		},
	}
	return cmd
}

func runInspect(collection, id string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	kind, doc, err := findDocument(ctx, a.db, collection, id)
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Fprintf(os.Stdout, "No document %s in %s.\n", id, collection)
		return nil
	}

	ent, err := entity.Wrap(kind, *doc)
	if err != nil {
		return err
	}
	m, err := a.migrator(nil)
	if err != nil {
		return err
	}
	payload, err := m.Rules().ComputeUpdate(ctx, ent, migrate.WorldActors(a.db))
	if err != nil {
		return fmt.Errorf("computing update: %w", err)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%s %s (%s)\n", kind, doc.Name, doc.ID)
	fmt.Fprintln(os.Stdout, string(raw))

	if payload.IsEmpty() {
		fmt.Fprintln(os.Stdout, "\nNo changes.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "\nUpdate (%d operations):\n", len(payload))
	for _, op := range payload {
		if op.Kind == patch.OpDelete {
			fmt.Fprintf(os.Stdout, "  - delete %s\n", op.Path)
			continue
		}
		value, err := json.Marshal(op.Value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", op.Path, err)
		}
		fmt.Fprintf(os.Stdout, "  - set %s = %s\n", op.Path, value)
	}
	return nil
}

// findDocument resolves a document either from a world collection
// (world.actors, world.items, world.scenes) or from a catalog.
func findDocument(ctx context.Context, db store.Store, collection, id string) (entity.Kind, *entity.Document, error) {
	for _, kind := range entity.Kinds() {
		if collection != store.WorldCollection(kind) {
			continue
		}
		doc, err := db.GetWorldDocument(ctx, kind, id)
		if errors.Is(err, store.ErrNotFound) {
			return kind, nil, nil
		}
		return kind, doc, err
	}

	cat, err := db.GetCatalog(ctx, collection)
	if err != nil {
		return "", nil, err
	}
	kind, err := cat.Kind()
	if err != nil {
		return "", nil, err
	}
	docs, err := db.GetDocuments(ctx, collection)
	if err != nil {
		return "", nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return kind, &docs[i], nil
		}
	}
	return kind, nil, nil
}
