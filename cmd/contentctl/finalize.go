package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/contentline-backend/internal/app"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
)

var flagRefinalize bool

var finalizeCmd = &cobra.Command{
	Use:   "finalize <version>",
	Short: "Write the change log of a version against its parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			v, err := a.Services.Content.LookupVersion(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := a.Services.Content.FinalizeDiff(ctx, domainagg.FinalizeInput{
				VersionID:  v.ID,
				Refinalize: flagRefinalize,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finalized, generation %d\n", res.Version.Code, res.Generation)
			return printChanges(cmd, res.Changes)
		})
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes <version>",
	Short: "List the latest change-log generation of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			v, err := a.Services.Content.LookupVersion(ctx, args[0])
			if err != nil {
				return err
			}
			rows, err := a.Services.Content.ListChanges(ctx, v.ID)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			return printChanges(cmd, rows)
		})
	},
}

func init() {
	finalizeCmd.Flags().BoolVar(&flagRefinalize, "refinalize", false, "supersede an existing change log with a new generation")
}

func printChanges(cmd *cobra.Command, rows []*content.VersionChange) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GEN\tCLASS\tCHANGE\tDESCRIPTION\tBY")
	for _, c := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.Generation, c.ClassID, c.ChangeType, c.Description, c.ChangedBy)
	}
	return tw.Flush()
}
