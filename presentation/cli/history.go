package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"ai_registry/infrastructure/storage"

	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List snapshots stored by the sqlite sync driver.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(app.cfg.Sync.Database)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", app.cfg.Sync.Database, err)
		}
		defer db.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if keep, _ := cmd.Flags().GetInt("prune"); keep > 0 {
			deleted, err := db.Prune(ctx, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d snapshots.\n", deleted)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		revs, err := db.History(ctx, limit)
		if err != nil {
			return err
		}
		if len(revs) == 0 {
			fmt.Fprintln(out, "No snapshots stored.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tPUSHED\tPATH\tELEMENTS\tVERSION\t")
		for _, r := range revs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t\n", r.ID, r.PushedAt.Local().Format(time.DateTime), r.CurrentPath, r.ElementCount, r.Version)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of snapshots to list, 0 for all")
	historyCmd.Flags().Int("prune", 0, "Keep only the newest N snapshots")
	rootCmd.AddCommand(historyCmd)
}
