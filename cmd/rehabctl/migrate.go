package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply or roll back the embedded schema migrations. Connection settings
come from the server configuration (config.yaml or REHAB_DATABASE_* variables).

Examples:
  rehabctl migrate up
  rehabctl migrate down --steps 1
  rehabctl migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := database.MigrateUp(cfg.Database); err != nil {
			return err
		}
		fmt.Println("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := database.MigrateDown(cfg.Database, steps); err != nil {
			return err
		}
		fmt.Printf("Rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		version, dirty, err := database.MigrationVersion(cfg.Database)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]any{"version": version, "dirty": dirty})
		}
		if dirty {
			fmt.Printf("%d (dirty)\n", version)
			return nil
		}
		fmt.Println(version)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	rootCmd.AddCommand(migrateCmd)
}
