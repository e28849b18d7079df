// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/kha997/zenamanagephp-sub030/internal/config"
)

var (
	configPath string // directory holding main.toml

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "zenamanage-rbac",
		Short: "zenamanage-rbac is the role based access control service of zenamanage",
		Long: `zenamanage-rbac manages permissions, roles and role assignments for the
zenamanage project management platform and answers permission checks over
a JSON API.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			cfg, err = config.ReadConfig(configPath)

			return err
		},
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory holding main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
