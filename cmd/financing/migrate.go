package main

import (
	"vehicle-financing/internal/repository/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			zapLog, log := newLogger(cfg)
			defer zapLog.Sync()

			pg, err := connectPostgres(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := postgres.Migrate(cmd.Context(), pg.DB); err != nil {
				return err
			}
			log.Info("Schema applied", nil)
			return nil
		},
	}
}
