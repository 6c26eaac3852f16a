package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/contentline-backend/internal/app"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

var (
	flagJSON  bool
	flagActor string
)

var rootCmd = &cobra.Command{
	Use:   "contentctl",
	Short: "Inspect and seed content version lineages",
	Long: `contentctl talks to the same database as the HTTP service (DATABASE_URL or
SQLITE_PATH) and runs lineage operations directly.

Examples:
  contentctl import lineage.yaml
  contentctl resolve ID-002
  contentctl ancestry ID-002 --json
  contentctl finalize ID-002 --refinalize
  contentctl changes ID-002`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor recorded in created_by / changed_by")
	rootCmd.AddCommand(importCmd, resolveCmd, ancestryCmd, finalizeCmd, changesCmd)
}

// withApp wires the service from the environment for one command run.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New("test")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg.MetricsEnabled = false
	cfg.OtelEnabled = false
	a, err := app.NewWithConfig(log, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if flagActor != "" {
		cmd.SetContext(ctxutil.WithRequestData(cmd.Context(), &ctxutil.RequestData{Actor: flagActor}))
	}
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVersion(w io.Writer, v *content.ContentVersion) {
	parent := "-"
	if v.ParentID != nil {
		parent = v.ParentID.String()
	}
	fmt.Fprintf(w, "%s\t%s\tparent=%s\tstatus=%s\tgeneration=%d\n", v.Code, v.ID, parent, v.Status, v.FinalizeGeneration)
}
