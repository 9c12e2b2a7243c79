package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	var systemVersion string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new lancermigrate project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(configPath, projectName, dsn, systemVersion)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://./lancer.db", "Database DSN")
	cmd.Flags().StringVar(&systemVersion, "system-version", "1.0.0", "System version being migrated to")
	return cmd
}

func runInit(path, projectName, dsn, systemVersion string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	configContents := fmt.Sprintf(`project: %q
version: 1

system:
  name: lancer
  version: %q

database:
  dsn: %q

migration:
  deprecated_suffix: _deprecated
  catalog_strategy: reset
  import_actor_types:
    - pilot
  record_version: true

seed:
  path: ./packs

logging:
  level: info
  format: text
`, projectName, systemVersion, dsn)
	if err := os.WriteFile(path, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.MkdirAll("packs", 0o755); err != nil {
		return fmt.Errorf("creating packs directory: %w", err)
	}
	return nil
}
