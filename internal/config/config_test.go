package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalConfig = "project: test\nversion: 1\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: \"sqlite://:memory:\"\n"

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Migration.CatalogStrategy != "incremental" {
			t.Fatalf("expected incremental strategy, got %q", cfg.Migration.CatalogStrategy)
		}
		if len(cfg.Migration.ResetCatalogs) != 2 {
			t.Fatalf("expected 2 reset catalogs, got %d", len(cfg.Migration.ResetCatalogs))
		}
		if cfg.Database.DSN != "sqlite://./lancer.db" {
			t.Fatalf("expected sqlite dsn, got %q", cfg.Database.DSN)
		}
		if cfg.Seed.Version != "3.0.21" {
			t.Fatalf("expected seed version, got %q", cfg.Seed.Version)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.System.Name != "lancer" {
			t.Fatalf("expected default system name, got %q", cfg.System.Name)
		}
		if cfg.Migration.DeprecatedSuffix != "_deprecated" {
			t.Fatalf("expected default suffix, got %q", cfg.Migration.DeprecatedSuffix)
		}
		if cfg.Migration.CatalogStrategy != "reset" {
			t.Fatalf("expected reset strategy, got %q", cfg.Migration.CatalogStrategy)
		}
		if cfg.Migration.ActorCacheSize != 256 {
			t.Fatalf("expected default cache size, got %d", cfg.Migration.ActorCacheSize)
		}
		if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
			t.Fatalf("expected default logging, got %+v", cfg.Logging)
		}
	})

	t.Run("env vars expanded", func(t *testing.T) {
		t.Setenv("LANCER_TEST_DSN", "postgres://lancer@localhost/lancer")
		path := writeTempConfig(t, "project: test\nversion: 1\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: ${LANCER_TEST_DSN}\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Database.DSN != "postgres://lancer@localhost/lancer" {
			t.Fatalf("expected expanded dsn, got %q", cfg.Database.DSN)
		}
	})

	t.Run("in-memory sqlite dsn loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Database.DSN != "sqlite://:memory:" {
			t.Fatalf("expected in-memory dsn, got %q", cfg.Database.DSN)
		}
	})

	invalid := map[string]struct {
		contents string
		wantErr  string
	}{
		"missing project name":   {"version: 1\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: \"sqlite://:memory:\"\n", "project name is required"},
		"unsupported version":    {"project: test\nversion: 2\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: \"sqlite://:memory:\"\n", "unsupported version: 2"},
		"missing system version": {"project: test\nversion: 1\ndatabase:\n  dsn: \"sqlite://:memory:\"\n", "system version is required"},
		"bad system version":     {"project: test\nversion: 1\nsystem:\n  version: latest\ndatabase:\n  dsn: \"sqlite://:memory:\"\n", `system version "latest"`},
		"missing dsn":            {"project: test\nversion: 1\nsystem:\n  version: 1.0.0\n", "database dsn is required"},
		"unset env dsn":          {"project: test\nversion: 1\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: \"${LANCER_TEST_UNSET_DSN}\"\n", "database dsn is required"},
		"unknown dsn scheme":     {"project: test\nversion: 1\nsystem:\n  version: 1.0.0\ndatabase:\n  dsn: \"mysql://localhost\"\n", "database dsn must start with"},
		"unknown strategy":       {minimalConfig + "migration:\n  catalog_strategy: yolo\n", "unknown catalog strategy: yolo"},
		"negative cache size":    {minimalConfig + "migration:\n  actor_cache_size: -1\n", "actor cache size must not be negative"},
		"duplicate reset titles": {minimalConfig + "migration:\n  reset_catalogs: [Frames, Frames]\n", "duplicate reset catalog: Frames"},
		"blank reset title":      {minimalConfig + "migration:\n  reset_catalogs: [\" \"]\n", "reset catalog 0 title is required"},
		"bad seed version":       {minimalConfig + "seed:\n  version: soon\n", `seed version "soon"`},
		"unknown log format":     {minimalConfig + "logging:\n  format: xml\n", "unknown log format: xml"},
		"invalid yaml":           {"project: [\n", "yaml:"},
	}
	for name, tc := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := LoadProjectConfig(writeTempConfig(t, tc.contents))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
