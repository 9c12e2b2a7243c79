package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancermigrate/internal/store"
)

func TestScorchedEarth(t *testing.T) {
	h := newHarness()
	h.store.addCatalog(itemCatalog("lancer.frames", "Frames", true), cleanItem("f1", "Everest"))
	h.store.addCatalog(itemCatalog("world.homebrew", "CustomHomebrew", true), cleanItem("h1", "Custom"))

	m, err := h.migrator(Options{}, nil)
	require.NoError(t, err)

	deleted, err := m.ScorchedEarth(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"lancer.frames"}, deleted)
	assert.NotContains(t, h.store.catalogs, "lancer.frames")
	assert.Contains(t, h.store.catalogs, "world.homebrew")
	assert.Equal(t, "0.0.0", h.store.settings["lancer.coreDataVersion"])
}

func TestScorchedEarth_AllTitles(t *testing.T) {
	h := newHarness()
	for i, title := range DefaultResetTitles {
		h.store.addCatalog(itemCatalog("lancer.c"+string(rune('a'+i)), title, true))
	}

	m, err := h.migrator(Options{}, nil)
	require.NoError(t, err)

	deleted, err := m.ScorchedEarth(context.Background())
	require.NoError(t, err)
	assert.Len(t, deleted, len(DefaultResetTitles))
	assert.Empty(t, h.store.catalogs)
}

func TestScorchedEarth_FailedDeletionKeepsVersion(t *testing.T) {
	h := newHarness()
	protected := itemCatalog("lancer.frames", "Frames", true)
	protected.Protected = true
	h.store.addCatalog(protected)
	h.store.addCatalog(itemCatalog("lancer.talents", "Talents", true))
	h.store.addCatalog(itemCatalog("lancer.systems", "Systems", true))
	boom := errors.New("disk full")
	h.store.deleteErr["lancer.systems"] = boom
	h.store.settings["lancer.coreDataVersion"] = "3.0.0"

	m, err := h.migrator(Options{}, nil)
	require.NoError(t, err)

	deleted, err := m.ScorchedEarth(context.Background())

	assert.ErrorIs(t, err, store.ErrLocked)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"lancer.talents"}, deleted)
	assert.Equal(t, "3.0.0", h.store.settings["lancer.coreDataVersion"])
}

func TestScorchedEarth_CustomTitles(t *testing.T) {
	h := newHarness()
	h.store.addCatalog(itemCatalog("lancer.frames", "Frames", true))
	h.store.addCatalog(itemCatalog("world.homebrew", "CustomHomebrew", false))

	m, err := h.migrator(Options{ResetTitles: []string{"CustomHomebrew"}, SystemName: "lancer-dev"}, nil)
	require.NoError(t, err)

	deleted, err := m.ScorchedEarth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"world.homebrew"}, deleted)
	assert.Equal(t, NoVersion, h.store.settings["lancer-dev.coreDataVersion"])
}
