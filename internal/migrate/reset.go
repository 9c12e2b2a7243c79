package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"lancermigrate/internal/store"
)

const (
	CoreDataVersionKey = "coreDataVersion"
	// NoVersion tells the next startup that no default content is installed
	// and a full reseed is due.
	NoVersion = "0.0.0"

	resetConcurrency = 4
)

// DefaultResetTitles are the shipped catalogs replaced by a scorched-earth
// reset.
var DefaultResetTitles = []string{
	"Skill Triggers",
	"Talents",
	"Core Bonuses",
	"Pilot Armor",
	"Pilot Weapons",
	"Pilot Gear",
	"Frames",
	"Systems",
	"Weapons",
	"NPC Classes",
	"NPC Templates",
	"NPC Features",
}

// ScorchedEarth force-unlocks and deletes every catalog whose title is in
// the reset list, then marks the core data version as absent. All deletions
// finish before the version is written; if any of them failed the version is
// left alone and the joined errors are returned. It returns the collections
// that were deleted.
func (m *Migrator) ScorchedEarth(ctx context.Context) ([]string, error) {
	catalogs, err := m.catalogs.ListCatalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}

	var targets []store.Catalog
	for _, cat := range catalogs {
		if slices.Contains(m.opts.ResetTitles, cat.Title) {
			targets = append(targets, cat)
		}
	}

	var (
		mu      sync.Mutex
		deleted []string
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(resetConcurrency)
	for _, cat := range targets {
		g.Go(func() error {
			log := m.logger.WithField("collection", cat.Collection)

			err := m.catalogs.Configure(ctx, cat.Collection, false)
			if err == nil {
				err = m.catalogs.DeleteCatalog(ctx, cat.Collection)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithError(err).Error("deleting catalog failed")
				errs = append(errs, fmt.Errorf("deleting %s: %w", cat.Title, err))
				return nil
			}
			log.WithField("title", cat.Title).Info("deleted catalog")
			deleted = append(deleted, cat.Collection)
			return nil
		})
	}
	// Workers record failures in errs and always return nil, so Wait has
	// nothing to report; every target is attempted.
	_ = g.Wait()

	sort.Strings(deleted)
	if len(errs) > 0 {
		return deleted, errors.Join(errs...)
	}

	if err := m.settings.SetSetting(ctx, m.opts.SystemName, CoreDataVersionKey, NoVersion); err != nil {
		return deleted, fmt.Errorf("resetting %s: %w", CoreDataVersionKey, err)
	}
	return deleted, nil
}
