package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/research"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect research history",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past research runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := st.ListHistory(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "history list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No research history.")
			return nil
		}
		formatHistory(os.Stdout, entries)
		return nil
	},
}

// -- history delete --

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete one research run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteHistory(ctx, args[0]); err != nil {
			return eris.Wrap(err, "history delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted run %s.\n", args[0])
		return nil
	},
}

// -- history reset --

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all research history and the researched-casino exclusion list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("history reset: pass --yes to confirm")
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Reset(ctx); err != nil {
			return eris.Wrap(err, "history reset")
		}
		fmt.Fprintln(os.Stderr, "All research data cleared.")
		return nil
	},
}

// -- history stats --

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate research analytics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListHistory(ctx, 0)
		if err != nil {
			return eris.Wrap(err, "history stats")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(research.Analytics(entries))
	},
}

func formatHistory(w io.Writer, entries []model.HistoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSTATES\tCASINOS\tOFFERS\tCOMPARISONS\tBETTER")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			e.ID,
			e.Timestamp.Format("2006-01-02 15:04"),
			joinStates(e.States),
			e.CasinosFound,
			e.OffersFound,
			e.ComparisonsFound,
			e.BetterOffersFound,
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum runs to list (0 for all)")
	historyResetCmd.Flags().Bool("yes", false, "confirm deleting all research data")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyResetCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}
