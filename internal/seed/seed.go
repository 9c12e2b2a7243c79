// Package seed reinstalls the shipped default catalogs after a catalog
// reset has marked the core data version as absent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"lancermigrate/internal/migrate"
	"lancermigrate/internal/store"
)

type Store interface {
	store.Catalogs
	store.Settings
	store.Seeder
}

type Seeder struct {
	store   Store
	system  string
	version *semver.Version
	logger  *logrus.Entry
}

type Report struct {
	Current   string
	Shipped   string
	Skipped   bool
	Catalogs  []string
	Documents int
}

func New(s Store, systemName, shippedVersion string, logger *logrus.Entry) (*Seeder, error) {
	version, err := semver.NewVersion(shippedVersion)
	if err != nil {
		return nil, fmt.Errorf("parsing shipped version %q: %w", shippedVersion, err)
	}
	if systemName == "" {
		systemName = migrate.DefaultSystemName
	}
	if logger == nil {
		logger = logrus.WithField("component", "seed")
	}
	return &Seeder{store: s, system: systemName, version: version, logger: logger}, nil
}

// NeedsReseed reports whether the stored core data version is older than the
// shipped one. A missing or unparsable stored version always needs a reseed.
func (s *Seeder) NeedsReseed(ctx context.Context) (bool, string, error) {
	current, ok, err := s.store.GetSetting(ctx, s.system, migrate.CoreDataVersionKey)
	if err != nil {
		return false, "", fmt.Errorf("reading %s: %w", migrate.CoreDataVersionKey, err)
	}
	if !ok {
		return true, "", nil
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		s.logger.WithField("version", current).Warn("stored core data version is not a valid version")
		return true, current, nil
	}
	return v.LessThan(s.version), current, nil
}

// Run installs every pack found in dir unless the stored version is already
// current. Missing catalogs are created; documents are upserted. The shipped
// version is recorded only when every pack installed cleanly.
func (s *Seeder) Run(ctx context.Context, dir string, force bool) (*Report, error) {
	report := &Report{Shipped: s.version.String()}

	needed, current, err := s.NeedsReseed(ctx)
	if err != nil {
		return report, err
	}
	report.Current = current
	if !needed && !force {
		report.Skipped = true
		return report, nil
	}

	packs, loadErr := LoadPacks(dir)
	var errs []error
	if loadErr != nil {
		errs = append(errs, loadErr)
	}
	if packs == nil && loadErr != nil {
		return report, loadErr
	}

	for _, pack := range packs {
		n, err := s.install(ctx, pack)
		report.Documents += n
		if err != nil {
			s.logger.WithError(err).WithField("pack", filepath.Base(pack.path)).Error("installing pack failed")
			errs = append(errs, fmt.Errorf("installing %s: %w", pack.Title, err))
			continue
		}
		report.Catalogs = append(report.Catalogs, pack.Collection)
	}

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	if err := s.store.SetSetting(ctx, s.system, migrate.CoreDataVersionKey, report.Shipped); err != nil {
		return report, fmt.Errorf("recording %s: %w", migrate.CoreDataVersionKey, err)
	}
	return report, nil
}

func (s *Seeder) install(ctx context.Context, pack Pack) (int, error) {
	docs, err := pack.documents()
	if err != nil {
		return 0, err
	}

	_, err = s.store.GetCatalog(ctx, pack.Collection)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := s.store.CreateCatalog(ctx, pack.Catalog()); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	}

	inserted := 0
	for _, doc := range docs {
		if err := s.store.InsertDocument(ctx, pack.Collection, doc); err != nil {
			return inserted, err
		}
		inserted++
	}

	s.logger.WithFields(logrus.Fields{
		"collection": pack.Collection,
		"documents":  inserted,
	}).Info("installed pack")
	return inserted, nil
}
