package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/contentline-backend/internal/app"
	"github.com/yungbote/contentline-backend/internal/services"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Create a lineage from a YAML manifest",
	Long: `Import creates the versions, files and withdrawals listed in a manifest.
Versions whose code already exists are skipped, so an import can be re-run.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	manifest, err := services.ParseLineageManifest(f)
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app.App) error {
		report, err := a.Services.Importer.Import(cmd.Context(), manifest)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "created:     %v\n", report.Created)
		fmt.Fprintf(out, "skipped:     %v\n", report.Skipped)
		fmt.Fprintf(out, "files:       %d\n", report.Files)
		fmt.Fprintf(out, "withdrawals: %d\n", report.Withdrawals)
		fmt.Fprintf(out, "finalized:   %v\n", report.Finalized)
		if report.AssignmentID != "" {
			fmt.Fprintf(out, "assignment:  %s\n", report.AssignmentID)
		}
		return nil
	})
}
