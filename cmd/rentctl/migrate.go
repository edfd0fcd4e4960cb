package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/models"
)

// MigrateCmd creates or updates every table from the models
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDatabase()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
			}

			if err := config.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables.\n", len(models.All()))
			return nil
		},
	}
}
