package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"ppobmart/internal/app/app"
	"ppobmart/internal/app/logger"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			logger.New(verbose || c.LogVerbose, true)

			db, err := sql.Open("postgres", c.Database.DSN)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if status {
				return app.MigrationStatus(db)
			}
			return app.Migrate(db)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show migration status without applying")

	return cmd
}
