package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kha997/zenamanagephp-sub030/internal/daemon"
)

func init() { //nolint: gochecknoinits
	migrateCmd.Flags().Uint64Var(&bootstrapAdmin, "admin", 0, "user id granted the Admin role (overrides RBAC.BootstrapAdminUserID)")

	rootCmd.AddCommand(migrateCmd)
}

var (
	bootstrapAdmin uint64

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed the guard permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bootstrapAdmin != 0 {
				cfg.RBAC.BootstrapAdminUserID = bootstrapAdmin
			}

			svc, db, bus, err := openService()
			if err != nil {
				return err
			}
			defer bus.Close()

			state, err := daemon.Migrate(cmd.Context(), &cfg, db, svc)
			if err != nil {
				return err
			}

			log.Info().Uint("admin_role_id", state.AdminRoleID).
				Uint64("bootstrap_admin_user_id", state.BootstrapAdminUserID).
				Msg("migration finished")

			return nil
		},
	}
)
