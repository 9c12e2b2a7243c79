package migrate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

type updateCall struct {
	Collection string
	ID         string
	Payload    patch.Payload
}

type configureCall struct {
	Collection string
	Locked     bool
}

// fakeStore keeps catalogs, world documents and settings in memory and
// records every write.
type fakeStore struct {
	mu sync.Mutex

	catalogs map[string]*store.Catalog
	docs     map[string][]entity.Document
	world    map[entity.Kind][]entity.Document
	settings map[string]string

	updates    []updateCall
	configures []configureCall
	baselines  []string
	deleted    []string
	lookups    int

	updateErr map[string]error
	deleteErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		catalogs:  make(map[string]*store.Catalog),
		docs:      make(map[string][]entity.Document),
		world:     make(map[entity.Kind][]entity.Document),
		settings:  make(map[string]string),
		updateErr: make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeStore) addCatalog(cat store.Catalog, docs ...entity.Document) {
	f.catalogs[cat.Collection] = &cat
	f.docs[cat.Collection] = docs
}

func (f *fakeStore) ListCatalogs(ctx context.Context) ([]store.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Catalog
	for _, cat := range f.catalogs {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out, nil
}

func (f *fakeStore) GetCatalog(ctx context.Context, collection string) (*store.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat, ok := f.catalogs[collection]
	if !ok {
		return nil, fmt.Errorf("catalog %q: %w", collection, store.ErrNotFound)
	}
	out := *cat
	return &out, nil
}

func (f *fakeStore) Configure(ctx context.Context, collection string, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configures = append(f.configures, configureCall{Collection: collection, Locked: locked})
	cat, ok := f.catalogs[collection]
	if !ok {
		return store.ErrNotFound
	}
	if !locked && cat.Protected {
		return nil
	}
	cat.Locked = locked
	return nil
}

func (f *fakeStore) MigrateBaseline(ctx context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baselines = append(f.baselines, collection)
	return nil
}

func (f *fakeStore) GetDocuments(ctx context.Context, collection string) ([]entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]entity.Document, len(f.docs[collection]))
	for i, doc := range f.docs[collection] {
		docs[i] = doc.Clone()
	}
	return docs, nil
}

func (f *fakeStore) UpdateEntity(ctx context.Context, collection, id string, p patch.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cat, ok := f.catalogs[collection]; ok && cat.Locked {
		return store.ErrLocked
	}
	return f.apply(collection, f.docs[collection], id, p)
}

func (f *fakeStore) apply(collection string, docs []entity.Document, id string, p patch.Payload) error {
	f.updates = append(f.updates, updateCall{Collection: collection, ID: id, Payload: p})
	if err := f.updateErr[id]; err != nil {
		return err
	}
	for i, doc := range docs {
		if doc.ID != id {
			continue
		}
		tree, err := patch.Apply(doc.Tree(), p)
		if err != nil {
			return err
		}
		updated, err := entity.FromTree(tree)
		if err != nil {
			return err
		}
		docs[i] = updated
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteCatalog(ctx context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[collection]; err != nil {
		return err
	}
	cat, ok := f.catalogs[collection]
	if !ok {
		return store.ErrNotFound
	}
	if cat.Locked {
		return store.ErrLocked
	}
	delete(f.catalogs, collection)
	delete(f.docs, collection)
	f.deleted = append(f.deleted, collection)
	return nil
}

func (f *fakeStore) WorldDocuments(ctx context.Context, kind entity.Kind) ([]entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]entity.Document, len(f.world[kind]))
	for i, doc := range f.world[kind] {
		docs[i] = doc.Clone()
	}
	return docs, nil
}

func (f *fakeStore) GetWorldDocument(ctx context.Context, kind entity.Kind, id string) (*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	for _, doc := range f.world[kind] {
		if doc.ID == id {
			clone := doc.Clone()
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func (f *fakeStore) UpdateWorldEntity(ctx context.Context, kind entity.Kind, id string, p patch.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(store.WorldCollection(kind), f.world[kind], id, p)
}

func (f *fakeStore) GetSetting(ctx context.Context, namespace, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.settings[namespace+"."+key]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(ctx context.Context, namespace, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[namespace+"."+key] = value
	return nil
}

type notification struct {
	Msg       string
	Permanent bool
}

type fakeNotifier struct {
	infos  []notification
	errors []string
}

func (n *fakeNotifier) Info(msg string, permanent bool) {
	n.infos = append(n.infos, notification{Msg: msg, Permanent: permanent})
}

func (n *fakeNotifier) Error(msg string) {
	n.errors = append(n.errors, msg)
}

type fakeImporter struct {
	seen []string
	err  map[string]error
}

func (i *fakeImporter) Reimport(ctx context.Context, actor entity.Actor) (bool, error) {
	i.seen = append(i.seen, actor.ID)
	if err := i.err[actor.ID]; err != nil {
		return false, err
	}
	return true, nil
}

type harness struct {
	store    *fakeStore
	notifier *fakeNotifier
	logs     *test.Hook
}

func (h *harness) migrator(opts Options, importer ActorImporter) (*Migrator, error) {
	logger, hook := test.NewNullLogger()
	h.logs = hook
	return New(Deps{
		Catalogs: h.store,
		World:    h.store,
		Settings: h.store,
		Notifier: h.notifier,
		Importer: importer,
		Logger:   logrus.NewEntry(logger),
	}, opts)
}

func newHarness() *harness {
	return &harness{store: newFakeStore(), notifier: &fakeNotifier{}}
}
