package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/database"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and indexes",
		Long: `Connect to the configured database and bring it up to date: SQLite
migrations are applied, MongoDB indexes are created. Every other command does
this too; migrate only does that.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db := a.cfg.Database
			location := db.Path
			if db.Driver == config.DriverMongo {
				location = db.Name
			}
			slog.Info("Starting database setup", "driver", db.Driver, "database", location)

			store, err := database.Connect(cmd.Context(), db, a.cfg.Collections)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() { _ = store.Close() }()

			msg := "MongoDB indexes are in place"
			if db.Driver == config.DriverSQLite {
				msg = fmt.Sprintf("SQLite schema is at version %d", storage.ExpectedSchemaVersion)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return nil
		},
	}
}
