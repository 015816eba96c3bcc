package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/database"
)

var migrateSteps int

// NewMigrateCmd creates the migrate command and its up, rollback and version
// subcommands.  Migrations are the only writes ivrdata ever makes to the store.
func NewMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the IVR store schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *database.Migrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				return printMigrationVersion(cmd, mg)
			})
		},
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *database.Migrator) error {
				if err := mg.Rollback(migrateSteps); err != nil {
					return err
				}
				return printMigrationVersion(cmd, mg)
			})
		},
	}
	rollbackCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to revert")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *database.Migrator) error {
				return printMigrationVersion(cmd, mg)
			})
		},
	}

	migrateCmd.AddCommand(upCmd, rollbackCmd, versionCmd)
	return migrateCmd
}

func withMigrator(cmd *cobra.Command, fn func(mg *database.Migrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	opts := database.OptionsFromConfig(cliCtx.Config.Database)
	opts.ReadOnly = false
	mg, err := database.NewMigrator(opts, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Close() }()

	return fn(mg)
}

func printMigrationVersion(cmd *cobra.Command, mg *database.Migrator) error {
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}
