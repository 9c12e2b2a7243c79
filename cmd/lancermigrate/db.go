package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"lancermigrate/internal/config"
	"lancermigrate/internal/logging"
	"lancermigrate/internal/migrate"
	"lancermigrate/internal/store"
	"lancermigrate/internal/store/postgres"
	"lancermigrate/internal/store/sqlite"
)

// openStore connects to the backend named by the DSN scheme and brings its
// schema up to date.
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	var db store.Store
	if strings.HasPrefix(dsn, "sqlite://") {
		client, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		db = client
	} else {
		client, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		db = client
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return db, nil
}

type app struct {
	cfg *config.ProjectConfig
	log *logrus.Logger
	db  store.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Logging)

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.db.Close(ctx); err != nil {
		a.log.WithError(err).Warn("closing store failed")
	}
}

func (a *app) migrator(notifier migrate.Notifier) (*migrate.Migrator, error) {
	return migrate.New(migrate.Deps{
		Catalogs: a.db,
		World:    a.db,
		Settings: a.db,
		Notifier: notifier,
		Importer: migrate.NewCatalogImporter(a.db, a.db),
		Logger:   logging.Component(a.log, "migrator"),
	}, migrationOptions(a.cfg))
}

func migrationOptions(cfg *config.ProjectConfig) migrate.Options {
	opts := migrate.Options{
		SystemName:       cfg.System.Name,
		SystemVersion:    cfg.System.Version,
		Suffix:           cfg.Migration.DeprecatedSuffix,
		ImportActorTypes: cfg.Migration.ImportActorTypes,
		CatalogStrategy:  cfg.Migration.CatalogStrategy,
		ActorCacheSize:   cfg.Migration.ActorCacheSize,
		RecordVersion:    cfg.Migration.RecordVersion,
	}
	if len(cfg.Migration.ResetCatalogs) > 0 {
		opts.ResetTitles = cfg.Migration.ResetCatalogs
	}
	return opts
}
