package migrate

import (
	"context"
	"fmt"
	"sync"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

// CatalogImporter re-imports world actors from the actor catalogs: an actor
// whose name and type match a catalog document has its data and owned items
// replaced by the catalog's copy. Actors without a match are left to the
// patch migration.
type CatalogImporter struct {
	catalogs store.Catalogs
	world    store.World

	once    sync.Once
	index   map[string]entity.Document
	loadErr error
}

func NewCatalogImporter(catalogs store.Catalogs, world store.World) *CatalogImporter {
	return &CatalogImporter{catalogs: catalogs, world: world}
}

func (c *CatalogImporter) Reimport(ctx context.Context, actor entity.Actor) (bool, error) {
	c.once.Do(func() { c.loadErr = c.load(ctx) })
	if c.loadErr != nil {
		return false, c.loadErr
	}

	source, ok := c.index[importKey(actor.Name, actor.Type)]
	if !ok {
		return false, nil
	}

	data := entity.CopyMap(source.Data)
	if data == nil {
		data = map[string]any{}
	}
	p := patch.Payload{patch.Set(patch.Path{"data"}, data)}
	if source.Items != nil {
		items := make([]any, 0, len(source.Items))
		for _, item := range source.Items {
			items = append(items, item.Tree())
		}
		p = append(p, patch.Set(patch.Path{"items"}, items))
	}
	if err := c.world.UpdateWorldEntity(ctx, entity.KindActor, actor.ID, p); err != nil {
		return false, fmt.Errorf("replacing actor %s: %w", actor.ID, err)
	}
	return true, nil
}

// load indexes every document of every Actor catalog. The first catalog to
// define a name and type wins.
func (c *CatalogImporter) load(ctx context.Context) error {
	catalogs, err := c.catalogs.ListCatalogs(ctx)
	if err != nil {
		return fmt.Errorf("listing catalogs: %w", err)
	}

	c.index = make(map[string]entity.Document)
	for _, cat := range catalogs {
		if kind, err := cat.Kind(); err != nil || kind != entity.KindActor {
			continue
		}
		docs, err := c.catalogs.GetDocuments(ctx, cat.Collection)
		if err != nil {
			return fmt.Errorf("reading actor catalog %s: %w", cat.Collection, err)
		}
		for _, doc := range docs {
			key := importKey(doc.Name, doc.Type)
			if _, exists := c.index[key]; !exists {
				c.index[key] = doc
			}
		}
	}
	return nil
}

func importKey(name, typ string) string {
	return typ + "|" + name
}
