package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/store"
)

// Pack is one shipped catalog as stored in a YAML pack file.
type Pack struct {
	Title      string           `yaml:"title"`
	Collection string           `yaml:"collection"`
	Entity     string           `yaml:"entity"`
	Package    string           `yaml:"package"`
	Locked     *bool            `yaml:"locked"`
	Documents  []map[string]any `yaml:"documents"`

	path string
}

func (p Pack) Catalog() store.Catalog {
	locked := true
	if p.Locked != nil {
		locked = *p.Locked
	}
	return store.Catalog{
		Title:      p.Title,
		Collection: p.Collection,
		Locked:     locked,
		Metadata:   store.CatalogMetadata{Package: p.Package, Entity: p.Entity},
	}
}

func (p Pack) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(p.Collection) == "" {
		return fmt.Errorf("collection is required")
	}
	if _, err := entity.ParseKind(p.Entity); err != nil {
		return err
	}
	return nil
}

// documents converts the raw pack entries, assigning ids where missing.
func (p Pack) documents() ([]entity.Document, error) {
	docs := make([]entity.Document, 0, len(p.Documents))
	for i, raw := range p.Documents {
		doc, err := entity.FromTree(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		assignIDs(&doc)
		docs = append(docs, doc)
	}
	return docs, nil
}

func assignIDs(doc *entity.Document) {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	for i := range doc.Items {
		assignIDs(&doc.Items[i])
	}
}

// NewID returns a random 16 character document id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// LoadPacks reads every *.yaml and *.yml file in dir in name order. Files
// that fail to parse or validate are reported and skipped.
func LoadPacks(dir string) ([]Pack, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("listing pack files: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("reading pack directory: %w", err)
		}
	}

	var packs []Pack
	var errs []error
	for _, path := range paths {
		pack, err := loadPack(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		packs = append(packs, pack)
	}
	return packs, errors.Join(errs...)
}

func loadPack(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("reading pack %s: %w", filepath.Base(path), err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("parsing pack %s: %w", filepath.Base(path), err)
	}
	if err := pack.validate(); err != nil {
		return Pack{}, fmt.Errorf("pack %s: %w", filepath.Base(path), err)
	}
	pack.path = path
	return pack, nil
}
