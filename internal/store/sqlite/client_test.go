package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	c, err := New(ctx, "sqlite://"+filepath.Join(t.TempDir(), "lancer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(ctx) })

	require.NoError(t, c.EnsureSchema(ctx))
	return c
}

func seedCatalog(t *testing.T, c *Client, cat store.Catalog, docs ...entity.Document) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.CreateCatalog(ctx, cat))
	for _, doc := range docs {
		require.NoError(t, c.InsertDocument(ctx, cat.Collection, doc))
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.EnsureSchema(context.Background()))

	version, dirty, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestCatalogs(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	seedCatalog(t, c, store.Catalog{
		Title: "Frames", Collection: "lancer.frames", Locked: true,
		Metadata: store.CatalogMetadata{Package: "world", Entity: "Item"},
	})
	seedCatalog(t, c, store.Catalog{
		Title: "Core", Collection: "lancer.core", Locked: true, Protected: true,
		Metadata: store.CatalogMetadata{Package: "lancer", Entity: "Actor"},
	})

	catalogs, err := c.ListCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, catalogs, 2)
	assert.Equal(t, "lancer.core", catalogs[0].Collection)
	assert.Equal(t, "Frames", catalogs[1].Title)

	t.Run("unlock and relock", func(t *testing.T) {
		require.NoError(t, c.Configure(ctx, "lancer.frames", false))
		cat, err := c.GetCatalog(ctx, "lancer.frames")
		require.NoError(t, err)
		assert.False(t, cat.Locked)

		require.NoError(t, c.Configure(ctx, "lancer.frames", true))
		cat, err = c.GetCatalog(ctx, "lancer.frames")
		require.NoError(t, err)
		assert.True(t, cat.Locked)
	})

	t.Run("protected catalog ignores unlock", func(t *testing.T) {
		require.NoError(t, c.Configure(ctx, "lancer.core", false))
		cat, err := c.GetCatalog(ctx, "lancer.core")
		require.NoError(t, err)
		assert.True(t, cat.Locked)
	})

	t.Run("missing catalog", func(t *testing.T) {
		_, err := c.GetCatalog(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, c.Configure(ctx, "nope", false), store.ErrNotFound)
	})
}

func TestUpdateEntity(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	seedCatalog(t, c, store.Catalog{
		Title: "Gear", Collection: "world.gear", Locked: true,
		Metadata: store.CatalogMetadata{Package: "world", Entity: "Item"},
	}, entity.Document{
		ID:   "i1",
		Name: "Thermal Charge",
		Data: map[string]any{
			"uses": 2,
			"old":  map[string]any{"x_deprecated": true},
			"tags": []any{"a", "b"},
		},
	})

	payload := patch.Payload{
		patch.Delete(patch.Path{"data", "old"}),
		patch.Set(patch.Path{"flags", "lancer", "migrated"}, true),
		patch.Delete(patch.Path{"data", "tags", "0"}),
		patch.Delete(patch.Path{"data", "missing", "key"}),
	}

	err := c.UpdateEntity(ctx, "world.gear", "i1", payload)
	assert.ErrorIs(t, err, store.ErrLocked)

	require.NoError(t, c.Configure(ctx, "world.gear", false))
	require.NoError(t, c.UpdateEntity(ctx, "world.gear", "i1", payload))

	docs, err := c.GetDocuments(ctx, "world.gear")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "Thermal Charge", doc.Name)
	assert.NotContains(t, doc.Data, "old")
	assert.Equal(t, float64(2), doc.Data["uses"])
	assert.Equal(t, []any{"b"}, doc.Data["tags"])
	assert.Equal(t, map[string]any{"lancer": map[string]any{"migrated": true}}, doc.Flags)

	assert.ErrorIs(t, c.UpdateEntity(ctx, "world.gear", "nope", payload), store.ErrNotFound)
}

func TestMigrateBaseline(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	seedCatalog(t, c, store.Catalog{
		Title: "Gear", Collection: "world.gear",
		Metadata: store.CatalogMetadata{Entity: "Item"},
	}, entity.Document{ID: "i1", Name: "No Data"})

	_, err := c.db.ExecContext(ctx, `UPDATE documents SET doc = json_set(doc, '$.flags', 'bad') WHERE id = 'i1'`)
	require.NoError(t, err)

	require.NoError(t, c.MigrateBaseline(ctx, "world.gear"))

	docs, err := c.GetDocuments(ctx, "world.gear")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{}, docs[0].Data)
	assert.Nil(t, docs[0].Flags)
}

func TestDeleteCatalog(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	seedCatalog(t, c, store.Catalog{
		Title: "Frames", Collection: "lancer.frames", Locked: true,
		Metadata: store.CatalogMetadata{Entity: "Item"},
	}, entity.Document{ID: "f1", Name: "Everest", Data: map[string]any{}})

	assert.ErrorIs(t, c.DeleteCatalog(ctx, "lancer.frames"), store.ErrLocked)

	require.NoError(t, c.Configure(ctx, "lancer.frames", false))
	require.NoError(t, c.DeleteCatalog(ctx, "lancer.frames"))

	_, err := c.GetCatalog(ctx, "lancer.frames")
	assert.ErrorIs(t, err, store.ErrNotFound)
	docs, err := c.documents(ctx, "lancer.frames")
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.ErrorIs(t, c.DeleteCatalog(ctx, "lancer.frames"), store.ErrNotFound)
}

func TestWorldDocuments(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	actor := entity.Document{
		ID:    "a1",
		Name:  "Pilot",
		Type:  "pilot",
		Data:  map[string]any{"hp": 5, "bar_deprecated": true},
		Items: []entity.Document{{ID: "i1", Name: "Knife", Data: map[string]any{}}},
	}
	require.NoError(t, c.InsertDocument(ctx, store.WorldCollection(entity.KindActor), actor))

	got, err := c.GetWorldDocument(ctx, entity.KindActor, "a1")
	require.NoError(t, err)
	assert.Equal(t, "pilot", got.Type)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Knife", got.Items[0].Name)

	_, err = c.GetWorldDocument(ctx, entity.KindActor, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, c.UpdateWorldEntity(ctx, entity.KindActor, "a1", patch.Payload{
		patch.Delete(patch.Path{"data", "bar_deprecated"}),
	}))

	docs, err := c.WorldDocuments(ctx, entity.KindActor)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{"hp": float64(5)}, docs[0].Data)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, ok, err := c.GetSetting(ctx, "lancer", "coreDataVersion")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetSetting(ctx, "lancer", "coreDataVersion", "3.0.0"))
	require.NoError(t, c.SetSetting(ctx, "lancer", "coreDataVersion", "0.0.0"))

	value, ok, err := c.GetSetting(ctx, "lancer", "coreDataVersion")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.0.0", value)
}

func TestApplyPayload_EscapesKeys(t *testing.T) {
	out, err := applyPayload(`{"data":{"a.b":1,"c":2}}`, patch.Payload{
		patch.Delete(patch.Path{"data", "a.b"}),
		patch.Set(patch.Path{"data", "d"}, map[string]any{"e": "f"}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"c":2,"d":{"e":"f"}}}`, out)
}
