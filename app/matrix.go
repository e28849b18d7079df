package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// ErrMatrixRejected is returned when validation or import finds problems in the file.
var ErrMatrixRejected = errors.New("permission matrix rejected")

func init() { //nolint: gochecknoinits
	matrixCmd.PersistentFlags().Uint64Var(&matrixTenant, "tenant", 0, "tenant owning the roles (0 for the global roles)")
	matrixExportCmd.Flags().StringVarP(&matrixOut, "out", "o", "", "write to this file instead of stdout")
	matrixTemplateCmd.Flags().StringVarP(&matrixOut, "out", "o", "", "write to this file instead of stdout")
	matrixImportCmd.Flags().Uint64Var(&matrixActor, "actor", 0, "user id recorded as the author of the import")

	matrixCmd.AddCommand(matrixExportCmd, matrixValidateCmd, matrixImportCmd, matrixTemplateCmd)
	rootCmd.AddCommand(matrixCmd)
}

var (
	matrixTenant uint64
	matrixActor  uint64
	matrixOut    string

	matrixCmd = &cobra.Command{
		Use:   "matrix",
		Short: "Export, validate and import the permission matrix CSV",
	}

	matrixExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the role permission grants as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, bus, err := openService()
			if err != nil {
				return err
			}
			defer bus.Close()

			data, err := svc.ExportCSV(cmd.Context(), matrixTenant)
			if err != nil {
				return err
			}

			return writeOut(cmd.OutOrStdout(), data)
		},
	}

	matrixTemplateCmd = &cobra.Command{
		Use:   "template",
		Short: "Write an example permission matrix",
		Args:  cobra.NoArgs,
		// the template needs neither config nor database
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeOut(cmd.OutOrStdout(), rbac.TemplateCSV())
		},
	}

	matrixValidateCmd = &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a permission matrix without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read matrix")
			}

			svc, _, bus, err := openService()
			if err != nil {
				return err
			}
			defer bus.Close()

			report, err := svc.ValidateCSV(cmd.Context(), data, matrixTenant)
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if !report.Valid {
				return fmt.Errorf("%w: %d error(s)", ErrMatrixRejected, len(report.Errors))
			}

			return nil
		},
	}

	matrixImportCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a permission matrix and apply it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read matrix")
			}

			svc, _, bus, err := openService()
			if err != nil {
				return err
			}
			defer bus.Close()

			res, err := svc.ImportCSV(cmd.Context(), data, matrixTenant, matrixActor)
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}

			if !res.Success {
				return fmt.Errorf("%w: %s", ErrMatrixRejected, res.Message)
			}

			return nil
		},
	}
)

func writeOut(stdout io.Writer, data []byte) error {
	if matrixOut == "" {
		_, err := stdout.Write(data)

		return err
	}

	return errors.Wrap(os.WriteFile(matrixOut, data, 0o600), "failed to write matrix")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
