package app

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

func init() { //nolint: gochecknoinits
	resolveCmd.Flags().Uint64Var(&resolveProject, "project", 0, "project context (0 for system wide roles only)")
	resolveCmd.Flags().Uint64Var(&resolveTenant, "tenant", 0, "tenant context, 0 for global only; omit to read every tenant")

	rootCmd.AddCommand(resolveCmd)
}

var (
	resolveProject uint64
	resolveTenant  uint64

	resolveCmd = &cobra.Command{
		Use:   "resolve USER_ID",
		Short: "Print the effective permissions of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || userID == 0 {
				return errors.Errorf("invalid user id %q", args[0])
			}

			tenantID := rbac.AnyTenant
			if cmd.Flags().Changed("tenant") {
				tenantID = resolveTenant
			}

			svc, _, bus, err := openService()
			if err != nil {
				return err
			}
			defer bus.Close()

			set, err := svc.Resolve(cmd.Context(), userID, resolveProject, tenantID)
			if err != nil {
				return err
			}

			out := map[string]any{
				"user_id":               userID,
				"project_id":            resolveProject,
				"effective_permissions": set.Codes(),
			}
			if tenantID != rbac.AnyTenant {
				out["tenant_id"] = tenantID
			}

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
)
