package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/givepay-gobackend/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the donations indexes (mongo) or table (postgres)",
		Long: `Prepare the configured datastore.

For STORE_DRIVER=mongo this creates the unique reference index and the
listing indexes. For STORE_DRIVER=postgres it runs AutoMigrate on the
donations table. Both are safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if cfg.StoreDriver == config.DriverMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory store has no schema, nothing to do")
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			_, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			closeStore()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.StoreDriver)
			return nil
		},
	}
}
