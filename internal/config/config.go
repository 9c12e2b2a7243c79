package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "lancermigrate.yaml"

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	System    SystemConfig    `yaml:"system"`
	Database  DatabaseConfig  `yaml:"database"`
	Migration MigrationConfig `yaml:"migration"`
	Seed      SeedConfig      `yaml:"seed"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type SystemConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type MigrationConfig struct {
	DeprecatedSuffix string   `yaml:"deprecated_suffix"`
	CatalogStrategy  string   `yaml:"catalog_strategy"`
	ResetCatalogs    []string `yaml:"reset_catalogs"`
	ImportActorTypes []string `yaml:"import_actor_types"`
	ActorCacheSize   int      `yaml:"actor_cache_size"`
	RecordVersion    bool     `yaml:"record_version"`
}

type SeedConfig struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	catalogStrategies = []string{"reset", "incremental"}
	logFormats        = []string{"text", "json"}
	dsnSchemes        = []string{"sqlite://", "postgres://", "postgresql://"}
)

// LoadProjectConfig reads the YAML config at path. ${VAR} references are
// expanded from the environment before parsing.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or nothing when
// it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.System.Name == "" {
		cfg.System.Name = "lancer"
	}
	if cfg.Migration.DeprecatedSuffix == "" {
		cfg.Migration.DeprecatedSuffix = "_deprecated"
	}
	if cfg.Migration.CatalogStrategy == "" {
		cfg.Migration.CatalogStrategy = "reset"
	}
	if cfg.Migration.ActorCacheSize == 0 {
		cfg.Migration.ActorCacheSize = 256
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	if strings.TrimSpace(cfg.System.Version) == "" {
		return fmt.Errorf("system version is required")
	}
	if _, err := semver.NewVersion(cfg.System.Version); err != nil {
		return fmt.Errorf("system version %q: %w", cfg.System.Version, err)
	}

	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !slices.ContainsFunc(dsnSchemes, func(s string) bool { return strings.HasPrefix(dsn, s) }) {
		return fmt.Errorf("database dsn must start with one of %s", strings.Join(dsnSchemes, ", "))
	}

	if !slices.Contains(catalogStrategies, cfg.Migration.CatalogStrategy) {
		return fmt.Errorf("unknown catalog strategy: %s", cfg.Migration.CatalogStrategy)
	}
	if cfg.Migration.ActorCacheSize < 0 {
		return fmt.Errorf("actor cache size must not be negative")
	}

	seen := make(map[string]struct{})
	for i, title := range cfg.Migration.ResetCatalogs {
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("reset catalog %d title is required", i)
		}
		if _, exists := seen[title]; exists {
			return fmt.Errorf("duplicate reset catalog: %s", title)
		}
		seen[title] = struct{}{}
	}

	if cfg.Seed.Version != "" {
		if _, err := semver.NewVersion(cfg.Seed.Version); err != nil {
			return fmt.Errorf("seed version %q: %w", cfg.Seed.Version, err)
		}
	}

	if !slices.Contains(logFormats, cfg.Logging.Format) {
		return fmt.Errorf("unknown log format: %s", cfg.Logging.Format)
	}

	return nil
}
