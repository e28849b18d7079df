package app

import (
	"github.com/spf13/cobra"

	"github.com/kha997/zenamanagephp-sub030/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")
	startCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Migrate and seed the database before serving")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode        bool
	migrateOnStart bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the RBAC web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			if devMode {
				cfg.DevMode = true
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&cfg, migrateOnStart)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
