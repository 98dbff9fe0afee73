package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formcraft/internal/core/config"
	"formcraft/internal/core/logger"
	"formcraft/internal/repo"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes in the durable store",
		Long: `Create tables (postgres/mysql) or indexes (mongo) for users, forms and
submissions. Safe to run repeatedly.

Examples:
  formctl migrate
  APP_STORE_DRIVER=postgres APP_STORE_URI=postgres://... formctl migrate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}
			log, cleanup := logger.FromConfig(cfg.Log)
			defer cleanup()

			sc := cfg.Store
			s, err := repo.OpenDurable(cmd.Context(), sc, log)
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("store.driver is memory, nothing to migrate")
			}
			defer s.Close(context.Background())

			ctx, cancel := context.WithTimeout(cmd.Context(), 4*sc.OpTimeout())
			defer cancel()
			if err := s.Ping(ctx); err != nil {
				return fmt.Errorf("%s unreachable: %w", s.Name(), err)
			}
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate %s: %w", s.Name(), err)
			}
			log.Info("migrate done", zap.String("store", s.Name()))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated\n", s.Name())
			return nil
		},
	}
}
