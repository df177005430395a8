package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoapp/internal/app"
)

func exportCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every task to a JSON or YAML file",
		Long: `Write every task to a file. The format follows the extension:
.yaml and .yml produce YAML, anything else produces JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				n, err := a.Transfer.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", n, args[0])
				return nil
			})
		},
	}
}

func importCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Load tasks from a JSON or YAML export",
		Long: `Load tasks from a file written by export. Tasks keep their ids, so
importing the same file twice replaces rather than duplicates them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				tasks, err := a.Transfer.Import(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks from %s\n", len(tasks), args[0])
				return nil
			})
		},
	}
}
