package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/contentline-backend/internal/app"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <version>",
	Short: "Print the effective content of a version (id or code)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			v, err := a.Services.Content.LookupVersion(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := a.Services.Content.Resolve(ctx, v.ID)
			if err != nil {
				return err
			}
			files := res.Content.Sorted()
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), files)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLASS\tPATH\tNAME\tTYPE\tSOURCE\tMODIFIED")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n", f.ClassID, f.Path, f.Name, f.Type, f.SourceCode, f.IsModified)
			}
			return tw.Flush()
		})
	},
}

var ancestryCmd = &cobra.Command{
	Use:   "ancestry <version>",
	Short: "Print the chain from the root down to a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			v, err := a.Services.Content.LookupVersion(ctx, args[0])
			if err != nil {
				return err
			}
			chain, err := a.Services.Content.AncestryChain(ctx, v.ID)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), chain)
			}
			for _, cv := range chain {
				printVersion(cmd.OutOrStdout(), cv)
			}
			return nil
		})
	},
}
