package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/24vibes/vibes/apps/container"
	"github.com/24vibes/vibes/storage/database"
)

var (
	errMemoryEngine  = errors.New("migrations need the postgres database engine")
	errSlackDisabled = errors.New("slack bot token is not configured")
)

// mockable
var (
	openDBFunc       = database.Open
	createDBFunc     = database.CreateIfNotExist
	runMigrationFunc = database.RunMigration
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a database migration command",
		Long: `Run a goose migration command on the embedded migrations.

Commands:
  up                   Migrate the DB to the most recent version available
  up-by-one            Migrate the DB up by 1
  up-to VERSION        Migrate the DB to a specific VERSION
  down                 Roll back the version by 1
  down-to VERSION      Roll back to a specific VERSION
  redo                 Re-run the latest migration
  reset                Roll back all migrations
  status               Dump the migration status for the current DB
  version              Print the current version of the database`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.conf.Database.Engine == container.EngineMemory {
				return errMemoryEngine
			}
			ctx := cmd.Context()
			if err := createDBFunc(ctx, cli.conf); err != nil {
				return errors.Wrap(err, "creating database")
			}
			db, err := openDBFunc(ctx, cli.conf)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runMigrationFunc(ctx, db, args[0], args[1:]...)
		},
	}
}
