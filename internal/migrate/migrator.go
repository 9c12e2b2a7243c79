// Package migrate walks catalogs and world documents, computes a patch for
// every entity with stale fields and writes it back through the store.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"lancermigrate/internal/deprecation"
	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

var ErrCatalogLocked = errors.New("catalog is locked")

const (
	StrategyReset       = "reset"
	StrategyIncremental = "incremental"

	DefaultSystemName    = "lancer"
	MigrationVersionKey  = "systemMigrationVersion"
	defaultImportedActor = "pilot"
)

// Notifier is the user-facing notification sink. Permanent notifications
// stay visible until dismissed.
type Notifier interface {
	Info(msg string, permanent bool)
	Error(msg string)
}

// ActorImporter rebuilds an actor from a canonical source instead of
// patching it. It reports whether the actor was reimported; actors it
// declines are patched like any other.
type ActorImporter interface {
	Reimport(ctx context.Context, actor entity.Actor) (bool, error)
}

type Deps struct {
	Catalogs store.Catalogs
	World    store.World
	Settings store.Settings
	Notifier Notifier
	Importer ActorImporter
	Logger   *logrus.Entry
}

type Options struct {
	SystemName       string
	SystemVersion    string
	Suffix           string
	ResetTitles      []string
	ImportActorTypes []string
	CatalogStrategy  string
	ActorCacheSize   int
	RecordVersion    bool
}

func (o Options) withDefaults() Options {
	if o.SystemName == "" {
		o.SystemName = DefaultSystemName
	}
	if o.Suffix == "" {
		o.Suffix = deprecation.DefaultSuffix
	}
	if o.ResetTitles == nil {
		o.ResetTitles = DefaultResetTitles
	}
	if o.ImportActorTypes == nil {
		o.ImportActorTypes = []string{defaultImportedActor}
	}
	if o.CatalogStrategy == "" {
		o.CatalogStrategy = StrategyReset
	}
	if o.ActorCacheSize <= 0 {
		o.ActorCacheSize = DefaultActorCacheSize
	}
	return o
}

type Migrator struct {
	catalogs store.Catalogs
	world    store.World
	settings store.Settings
	notifier Notifier
	importer ActorImporter
	logger   *logrus.Entry
	rules    Rules
	opts     Options
}

func New(deps Deps, opts Options) (*Migrator, error) {
	if deps.Catalogs == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if deps.World == nil {
		return nil, fmt.Errorf("world store is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}

	opts = opts.withDefaults()
	switch opts.CatalogStrategy {
	case StrategyReset, StrategyIncremental:
	default:
		return nil, fmt.Errorf("unknown catalog strategy %q", opts.CatalogStrategy)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.WithField("component", "migrator")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}

	return &Migrator{
		catalogs: deps.Catalogs,
		world:    deps.World,
		settings: deps.Settings,
		notifier: notifier,
		importer: deps.Importer,
		logger:   logger,
		rules:    Rules{Suffix: opts.Suffix},
		opts:     opts,
	}, nil
}

// Rules returns the entity migration rules the migrator applies.
func (m *Migrator) Rules() Rules {
	return m.rules
}

// Result counts what happened to the documents of one collection.
type Result struct {
	Collection string
	Kind       entity.Kind
	Updated    int
	Unchanged  int
	Imported   int
	Failed     int
	Skipped    bool
	Errors     []error
}

func (r *Result) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

type writeFunc func(ctx context.Context, id string, p patch.Payload) error

// MigrateCompendium migrates every document of one catalog. The catalog is
// unlocked for the walk and its previous lock state restored afterwards. A
// catalog that stays locked is reported and left untouched; a catalog of an
// unsupported kind is skipped. Failures of single documents are logged and
// counted without stopping the walk.
func (m *Migrator) MigrateCompendium(ctx context.Context, collection string) (result *Result, err error) {
	log := m.logger.WithField("collection", collection)
	result = &Result{Collection: collection}

	cat, err := m.catalogs.GetCatalog(ctx, collection)
	if err != nil {
		return result, fmt.Errorf("getting catalog: %w", err)
	}
	wasLocked := cat.Locked

	if err := m.catalogs.Configure(ctx, collection, false); err != nil {
		return result, fmt.Errorf("unlocking catalog %s: %w", collection, err)
	}
	defer func() {
		if restoreErr := m.catalogs.Configure(context.WithoutCancel(ctx), collection, wasLocked); restoreErr != nil {
			log.WithError(restoreErr).Error("restoring catalog lock failed")
			err = errors.Join(err, fmt.Errorf("restoring lock of %s: %w", collection, restoreErr))
		}
	}()

	cat, err = m.catalogs.GetCatalog(ctx, collection)
	if err != nil {
		return result, fmt.Errorf("getting catalog: %w", err)
	}
	if cat.Locked {
		m.notifier.Error(fmt.Sprintf("Could not migrate %s as it is locked.", collection))
		return result, fmt.Errorf("migrating %s: %w", collection, ErrCatalogLocked)
	}

	kind, err := cat.Kind()
	if err != nil {
		log.WithField("entity", cat.Metadata.Entity).Debug("skipping catalog of unsupported kind")
		result.Skipped = true
		return result, nil
	}
	result.Kind = kind

	if err := m.catalogs.MigrateBaseline(ctx, collection); err != nil {
		return result, fmt.Errorf("migrating baseline of %s: %w", collection, err)
	}

	docs, err := m.catalogs.GetDocuments(ctx, collection)
	if err != nil {
		return result, fmt.Errorf("getting documents of %s: %w", collection, err)
	}

	write := func(ctx context.Context, id string, p patch.Payload) error {
		return m.catalogs.UpdateEntity(ctx, collection, id, p)
	}
	m.walk(ctx, log, kind, docs, m.actorLookup(), write, result)

	log.WithFields(logrus.Fields{
		"entity":  kind,
		"updated": result.Updated,
		"failed":  result.Failed,
	}).Infof("migrated all %s entities from compendium %s", kind, collection)
	return result, nil
}

func (m *Migrator) actorLookup() ActorLookup {
	return NewCachedLookup(WorldActors(m.world), m.opts.ActorCacheSize)
}

// walk applies the migrator for kind to every document. Errors are
// recorded on result and never stop the loop.
func (m *Migrator) walk(ctx context.Context, log *logrus.Entry, kind entity.Kind, docs []entity.Document, actors ActorLookup, write writeFunc, result *Result) {
	for _, doc := range docs {
		if ctx.Err() != nil {
			result.fail(fmt.Errorf("%s %q: %w", kind, doc.Name, ctx.Err()))
			continue
		}

		updated, err := m.migrateDocument(ctx, kind, doc, actors, write)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"entity": kind,
				"id":     doc.ID,
				"name":   doc.Name,
			}).Errorf("migrating %s entity %s failed", kind, doc.Name)
			result.fail(fmt.Errorf("%s %q: %w", kind, doc.Name, err))
			continue
		}
		if !updated {
			result.Unchanged++
			continue
		}
		result.Updated++
		log.WithField("id", doc.ID).Infof("migrated %s entity %s", kind, doc.Name)
	}
}

func (m *Migrator) migrateDocument(ctx context.Context, kind entity.Kind, doc entity.Document, actors ActorLookup, write writeFunc) (bool, error) {
	ent, err := entity.Wrap(kind, doc)
	if err != nil {
		return false, err
	}
	payload, err := m.rules.ComputeUpdate(ctx, ent, actors)
	if err != nil {
		return false, err
	}
	if payload.IsEmpty() {
		return false, nil
	}
	if err := write(ctx, doc.ID, payload); err != nil {
		return false, fmt.Errorf("writing update: %w", err)
	}
	return true, nil
}

type WorldOptions struct {
	Catalogs bool
	Actors   bool
	Items    bool
	Scenes   bool
}

// DefaultWorldOptions migrates catalogs only.
var DefaultWorldOptions = WorldOptions{Catalogs: true}

type WorldResult struct {
	Deleted  []string
	Catalogs []*Result
	Actors   *Result
	Items    *Result
	Scenes   *Result
}

// MigrateWorld runs every enabled step. A failing step is reported in the
// returned error and does not stop the steps after it.
func (m *Migrator) MigrateWorld(ctx context.Context, wopts WorldOptions) (*WorldResult, error) {
	version := m.opts.SystemVersion
	m.notifier.Info(fmt.Sprintf("Applying LANCER System Migration for version %s. Please be patient and do not close your game or shut down your server.", version), true)

	result := &WorldResult{}
	var errs []error

	if wopts.Catalogs {
		switch m.opts.CatalogStrategy {
		case StrategyReset:
			deleted, err := m.ScorchedEarth(ctx)
			result.Deleted = deleted
			if err != nil {
				errs = append(errs, fmt.Errorf("resetting catalogs: %w", err))
			}
		case StrategyIncremental:
			results, err := m.migrateWorldCatalogs(ctx)
			result.Catalogs = results
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if wopts.Actors {
		res, err := m.migrateWorldActors(ctx)
		result.Actors = res
		if err != nil {
			errs = append(errs, err)
		}
	}

	if wopts.Items {
		res, err := m.migrateWorldKind(ctx, entity.KindItem)
		result.Items = res
		if err != nil {
			errs = append(errs, err)
		}
	}

	if wopts.Scenes {
		res, err := m.migrateWorldKind(ctx, entity.KindScene)
		result.Scenes = res
		if err != nil {
			errs = append(errs, err)
		}
	}

	if m.opts.RecordVersion && version != "" {
		if err := m.settings.SetSetting(ctx, m.opts.SystemName, MigrationVersionKey, version); err != nil {
			errs = append(errs, fmt.Errorf("recording migration version: %w", err))
		}
	}

	m.notifier.Info(fmt.Sprintf("LANCER System Migration to version %s completed!", version), true)
	return result, errors.Join(errs...)
}

func (m *Migrator) migrateWorldCatalogs(ctx context.Context) ([]*Result, error) {
	catalogs, err := m.catalogs.ListCatalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}

	var results []*Result
	var errs []error
	for _, cat := range catalogs {
		if cat.Metadata.Package != store.WorldPackage {
			continue
		}
		if _, err := cat.Kind(); err != nil {
			continue
		}
		res, err := m.MigrateCompendium(ctx, cat.Collection)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

func (m *Migrator) migrateWorldActors(ctx context.Context) (*Result, error) {
	collection := store.WorldCollection(entity.KindActor)
	log := m.logger.WithField("collection", collection)
	result := &Result{Collection: collection, Kind: entity.KindActor}

	actors, err := m.world.WorldDocuments(ctx, entity.KindActor)
	if err != nil {
		return result, fmt.Errorf("listing world actors: %w", err)
	}

	var patched []entity.Document
	for _, doc := range actors {
		if m.importer == nil || !slices.Contains(m.opts.ImportActorTypes, doc.Type) {
			patched = append(patched, doc)
			continue
		}

		imported, err := m.importer.Reimport(ctx, entity.Actor{Document: doc})
		if err != nil {
			log.WithError(err).WithField("id", doc.ID).Errorf("migrating Actor entity %s failed", doc.Name)
			result.fail(fmt.Errorf("%s %q: %w", entity.KindActor, doc.Name, err))
			continue
		}
		if !imported {
			patched = append(patched, doc)
			continue
		}
		result.Imported++
		log.WithField("id", doc.ID).Infof("migrating Actor entity %s", doc.Name)
	}

	write := func(ctx context.Context, id string, p patch.Payload) error {
		return m.world.UpdateWorldEntity(ctx, entity.KindActor, id, p)
	}
	m.walk(ctx, log, entity.KindActor, patched, nil, write, result)
	return result, nil
}

func (m *Migrator) migrateWorldKind(ctx context.Context, kind entity.Kind) (*Result, error) {
	collection := store.WorldCollection(kind)
	log := m.logger.WithField("collection", collection)
	result := &Result{Collection: collection, Kind: kind}

	docs, err := m.world.WorldDocuments(ctx, kind)
	if err != nil {
		return result, fmt.Errorf("listing world %s documents: %w", kind, err)
	}

	write := func(ctx context.Context, id string, p patch.Payload) error {
		return m.world.UpdateWorldEntity(ctx, kind, id, p)
	}
	m.walk(ctx, log, kind, docs, m.actorLookup(), write, result)
	return result, nil
}

type logNotifier struct {
	logger *logrus.Entry
}

func (n logNotifier) Info(msg string, permanent bool) {
	n.logger.WithField("permanent", permanent).Info(msg)
}

func (n logNotifier) Error(msg string) {
	n.logger.Error(msg)
}
