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
	"github.com/sells-group/casino-research/internal/recon"
)

var existingCmd = &cobra.Command{
	Use:   "existing",
	Short: "Show the existing offer database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if cfg.Xano.URL == "" {
			return eris.New("config: xano.url is required")
		}

		loader, c, err := initOffers(ctx)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		refresh, _ := cmd.Flags().GetBool("refresh")
		load := loader.Load
		if refresh {
			load = loader.Refresh
		}
		snap, err := load(ctx)
		if err != nil {
			return eris.Wrap(err, "existing offers")
		}

		rawStates, _ := cmd.Flags().GetStringSlice("states")
		offers := recon.FilterOffersByState(snap.Offers, model.ParseStates(rawStates))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(offers)
		}

		source := "fresh"
		if snap.FromCache {
			source = "cached"
		}
		fmt.Fprintf(os.Stderr, "%d offers (%s, fetched %s)\n", len(offers), source, snap.FetchedAt.Format("2006-01-02 15:04"))
		formatOffers(os.Stdout, offers)
		return nil
	},
}

func formatOffers(w io.Writer, offers []model.PromotionalOffer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tCASINO\tOFFER\tSUMMARY")
	for _, o := range offers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.State, o.CasinoName, o.OfferTitle, recon.FormatOfferSummary(o))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	existingCmd.Flags().Bool("refresh", false, "bypass the cache")
	existingCmd.Flags().StringSlice("states", nil, "only show these states")
	existingCmd.Flags().Bool("json", false, "print offers as JSON")
	rootCmd.AddCommand(existingCmd)
}
