package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancermigrate/internal/migrate"
	"lancermigrate/internal/store/sqlite"
)

const framesPack = `title: Frames
collection: lancer.frames
entity: Item
package: lancer
documents:
  - name: Everest
    type: frame
    data:
      stats:
        hp: 6
  - _id: fixedid000000001
    name: Sagarmatha
    type: frame
    data: {}
`

const talentsPack = `title: Talents
collection: lancer.talents
entity: Item
locked: false
documents:
  - name: Ace
    type: talent
    data:
      ranks: [1, 2, 3]
`

func writePack(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func newStore(t *testing.T) *sqlite.Client {
	t.Helper()
	ctx := context.Background()
	c, err := sqlite.New(ctx, "sqlite://"+filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(ctx) })
	require.NoError(t, c.EnsureSchema(ctx))
	return c
}

func newSeeder(t *testing.T, s Store, version string) *Seeder {
	t.Helper()
	logger, _ := test.NewNullLogger()
	seeder, err := New(s, "lancer", version, logrus.NewEntry(logger))
	require.NoError(t, err)
	return seeder
}

func TestRun_AfterReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SetSetting(ctx, "lancer", migrate.CoreDataVersionKey, migrate.NoVersion))

	dir := t.TempDir()
	writePack(t, dir, "frames.yaml", framesPack)
	writePack(t, dir, "talents.yml", talentsPack)

	report, err := newSeeder(t, s, "3.0.21").Run(ctx, dir, false)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0", report.Current)
	assert.Equal(t, []string{"lancer.frames", "lancer.talents"}, report.Catalogs)
	assert.Equal(t, 3, report.Documents)

	frames, err := s.GetCatalog(ctx, "lancer.frames")
	require.NoError(t, err)
	assert.True(t, frames.Locked)
	assert.Equal(t, "lancer", frames.Metadata.Package)

	talents, err := s.GetCatalog(ctx, "lancer.talents")
	require.NoError(t, err)
	assert.False(t, talents.Locked)
	assert.Equal(t, "world", talents.Metadata.Package)

	docs, err := s.GetDocuments(ctx, "lancer.frames")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Len(t, doc.ID, 16)
	}
	ids := []string{docs[0].ID, docs[1].ID}
	assert.Contains(t, ids, "fixedid000000001")

	version, ok, err := s.GetSetting(ctx, "lancer", migrate.CoreDataVersionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3.0.21", version)
}

func TestRun_SkipsWhenCurrent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SetSetting(ctx, "lancer", migrate.CoreDataVersionKey, "3.0.21"))

	dir := t.TempDir()
	writePack(t, dir, "frames.yaml", framesPack)

	report, err := newSeeder(t, s, "3.0.21").Run(ctx, dir, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	catalogs, err := s.ListCatalogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalogs)

	report, err = newSeeder(t, s, "3.0.21").Run(ctx, dir, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, []string{"lancer.frames"}, report.Catalogs)
}

func TestRun_BadPackKeepsVersion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	dir := t.TempDir()
	writePack(t, dir, "frames.yaml", framesPack)
	writePack(t, dir, "broken.yaml", "title: Broken\ncollection: lancer.broken\nentity: Journal\n")

	report, err := newSeeder(t, s, "3.0.21").Run(ctx, dir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.Equal(t, []string{"lancer.frames"}, report.Catalogs)

	_, ok, err := s.GetSetting(ctx, "lancer", migrate.CoreDataVersionKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNeedsReseed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		set    bool
		want   bool
	}{
		{name: "missing", want: true},
		{name: "reset sentinel", stored: "0.0.0", set: true, want: true},
		{name: "older", stored: "3.0.20", set: true, want: true},
		{name: "same", stored: "3.0.21", set: true, want: false},
		{name: "newer", stored: "3.1.0", set: true, want: false},
		{name: "garbage", stored: "latest", set: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			if tt.set {
				require.NoError(t, s.SetSetting(ctx, "lancer", migrate.CoreDataVersionKey, tt.stored))
			}
			got, _, err := newSeeder(t, s, "3.0.21").NeedsReseed(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_BadVersion(t *testing.T) {
	_, err := New(nil, "lancer", "soon", nil)
	assert.Error(t, err)
}

func TestLoadPacks_MissingDir(t *testing.T) {
	_, err := LoadPacks(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
