package cmd

import (
	"fmt"

	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the bundled demo schema",
	Long: `Apply or revert the bundled migrations, which create the demo
"events" table.

Examples:
  filterable migrate up
  filterable migrate down`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireDatabase(); err != nil {
			return err
		}
		if err := database.Migrate(cfg.Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireDatabase(); err != nil {
			return err
		}
		if err := database.Rollback(cfg.Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations reverted")
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func requireDatabase() error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("database is disabled; set database.enabled or FILTERABLE_DATABASE_ENABLED=true")
	}
	return nil
}
