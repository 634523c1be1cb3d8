package main

import (
	"fmt"

	"vehicle-financing/internal/repository/postgres"
	"vehicle-financing/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo vehicles and admin, dealer and customer accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			zapLog, log := newLogger(cfg)
			defer zapLog.Sync()

			ctx := cmd.Context()
			pg, err := connectPostgres(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := postgres.Migrate(ctx, pg.DB); err != nil {
				return err
			}

			seeder := seed.NewSeeder(
				postgres.NewVehicleRepository(pg.DB),
				postgres.NewUserRepository(pg.DB),
				cfg.Auth.BcryptCost,
				log,
			)
			res, err := seeder.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d vehicles and %d users\n", res.Vehicles, res.Users)
			return nil
		},
	}
}
