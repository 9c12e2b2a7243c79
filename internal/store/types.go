package store

import (
	"strings"

	"lancermigrate/internal/entity"
)

// WorldPackage is the package name of catalogs that belong to the world
// rather than to a shipped system pack.
const WorldPackage = "world"

type CatalogMetadata struct {
	Package string
	Entity  string
}

type Catalog struct {
	Title      string
	Collection string
	Locked     bool
	Protected  bool
	Metadata   CatalogMetadata
}

// Kind returns the catalog's entity kind, or an error wrapping
// entity.ErrUnsupportedKind.
func (c Catalog) Kind() (entity.Kind, error) {
	return entity.ParseKind(c.Metadata.Entity)
}

// WorldCollection is the collection key world documents of kind are stored
// under.
func WorldCollection(kind entity.Kind) string {
	return WorldPackage + "." + strings.ToLower(string(kind)) + "s"
}
