package store

import (
	"context"
	"errors"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
)

var (
	ErrNotFound = errors.New("not found")
	ErrLocked   = errors.New("catalog is locked")
)

// Catalogs is the compendium side of the store: named, lockable collections
// of same-kind documents.
type Catalogs interface {
	ListCatalogs(ctx context.Context) ([]Catalog, error)
	GetCatalog(ctx context.Context, collection string) (*Catalog, error)
	// Configure locks or unlocks a catalog. Protected catalogs ignore unlock
	// requests without failing; callers re-read the catalog to observe that.
	Configure(ctx context.Context, collection string, locked bool) error
	// MigrateBaseline brings stored documents up to the current storage
	// layout before entity migration runs.
	MigrateBaseline(ctx context.Context, collection string) error
	GetDocuments(ctx context.Context, collection string) ([]entity.Document, error)
	UpdateEntity(ctx context.Context, collection, id string, p patch.Payload) error
	DeleteCatalog(ctx context.Context, collection string) error
}

// World holds the live documents of the running world, grouped by kind.
type World interface {
	WorldDocuments(ctx context.Context, kind entity.Kind) ([]entity.Document, error)
	GetWorldDocument(ctx context.Context, kind entity.Kind, id string) (*entity.Document, error)
	UpdateWorldEntity(ctx context.Context, kind entity.Kind, id string, p patch.Payload) error
}

type Settings interface {
	GetSetting(ctx context.Context, namespace, key string) (string, bool, error)
	SetSetting(ctx context.Context, namespace, key, value string) error
}

type Seeder interface {
	CreateCatalog(ctx context.Context, c Catalog) error
	InsertDocument(ctx context.Context, collection string, doc entity.Document) error
}

type Store interface {
	Catalogs
	World
	Settings
	Seeder

	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}
