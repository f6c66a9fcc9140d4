package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/export"
	"github.com/sells-group/casino-research/internal/importer"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/pkg/notion"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run casino and offer research",
	Long:  "Discovers casinos and offers for the selected states, compares them with the existing offer database and saves the result to history.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := researchRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		if path, _ := cmd.Flags().GetString("historical"); path != "" {
			req.HistoricalOffers, err = importer.LoadOffers(ctx, path)
			if err != nil {
				return err
			}
		}
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		toNotion, _ := cmd.Flags().GetBool("notion")
		toArchive, _ := cmd.Flags().GetBool("archive")
		asJSON, _ := cmd.Flags().GetBool("json")

		if toNotion {
			if err := cfg.Validate("notion"); err != nil {
				return err
			}
		}

		env, err := initResearchEnv(ctx, "research", envOptions{archive: toArchive})
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Execute(ctx, req)
		if err != nil {
			return eris.Wrap(err, "research")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return eris.Wrap(err, "encode result")
			}
		} else {
			formatResult(os.Stdout, res)
		}

		return publish(ctx, res, xlsxPath, toNotion)
	},
}

// publish writes the optional XLSX report and Notion pages for res.
func publish(ctx context.Context, res *model.ResearchResult, xlsxPath string, toNotion bool) error {
	if xlsxPath != "" {
		if err := export.SaveXLSX(xlsxPath, res); err != nil {
			return err
		}
		zap.L().Info("wrote xlsx report", zap.String("path", xlsxPath))
	}
	if toNotion {
		exp := export.NewNotionExporter(notion.NewClient(cfg.Notion.Token), cfg.Notion.OffersDB)
		rep, err := exp.ExportComparisons(ctx, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Notion: %d created, %d updated, %d skipped\n", rep.Created, rep.Updated, rep.Skipped)
	}
	return nil
}

func researchRequestFromFlags(cmd *cobra.Command) (model.ResearchRequest, error) {
	rawStates, _ := cmd.Flags().GetStringSlice("states")
	noDiscovery, _ := cmd.Flags().GetBool("no-discovery")
	noOffers, _ := cmd.Flags().GetBool("no-offers")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	var states []model.State
	for _, r := range rawStates {
		s, ok := model.ParseState(r)
		if !ok {
			return model.ResearchRequest{}, eris.Errorf("unsupported state %q", r)
		}
		states = append(states, s)
	}

	discoveryOn, offersOn := !noDiscovery, !noOffers
	if !cmd.Flags().Changed("no-discovery") {
		discoveryOn = cfg.Research.IncludeCasinoDiscovery
	}
	if !cmd.Flags().Changed("no-offers") {
		offersOn = cfg.Research.IncludeOfferResearch
	}

	return model.ResearchRequest{
		States:                 states,
		IncludeCasinoDiscovery: &discoveryOn,
		IncludeOfferResearch:   &offersOn,
		ExcludeCasinoWebsites:  exclude,
	}, nil
}

// formatResult prints a human-readable run summary.
func formatResult(w io.Writer, res *model.ResearchResult) {
	fmt.Fprintf(w, "Run %s (%s) in %dms, %d API calls\n\n",
		res.RunID, joinStates(res.States), res.ExecutionTimeMS, res.APICallsMade)

	fmt.Fprintf(w, "Missing casinos: %d\n", res.MissingCasinoCount())
	if res.MissingCasinoCount() > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  STATE\tCASINO\tWEBSITE")
		for _, s := range model.AllStates {
			for _, c := range res.MissingCasinos[s] {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", s, c.Name, c.Website)
			}
		}
		tw.Flush() //nolint:errcheck
	}

	fmt.Fprintf(w, "\nOffer comparisons: %d (%d better, %d new)\n",
		len(res.OfferComparisons), res.BetterOfferCount(), len(res.NewOffers))
	if len(res.OfferComparisons) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  STATE\tCASINO\tKIND\tCONF\tNOTES")
		for _, c := range res.OfferComparisons {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%s\n", c.State, c.Casino, comparisonKind(c), c.ConfidenceScore, c.DifferenceNotes)
		}
		tw.Flush() //nolint:errcheck
	}

	if len(res.Limitations) > 0 {
		fmt.Fprintln(w, "\nLimitations:")
		for _, l := range res.Limitations {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}
}

func comparisonKind(c model.OfferComparison) string {
	switch {
	case c.IsNew:
		return "new"
	case c.IsBetter:
		return "better"
	default:
		return "changed"
	}
}

func joinStates(states []model.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func init() {
	researchCmd.Flags().StringSlice("states", nil, "states to research, e.g. NJ,PA (default all)")
	researchCmd.Flags().Bool("no-discovery", false, "skip casino discovery")
	researchCmd.Flags().Bool("no-offers", false, "skip offer research")
	researchCmd.Flags().StringSlice("exclude", nil, "casino websites to exclude from discovery")
	researchCmd.Flags().String("historical", "", "CSV, XLSX or JSON export of previously seen offers")
	researchCmd.Flags().String("xlsx", "", "write an XLSX report to this path")
	researchCmd.Flags().Bool("notion", false, "export better and new offers to Notion")
	researchCmd.Flags().Bool("archive", false, "archive the result to S3")
	researchCmd.Flags().Bool("json", false, "print the full result as JSON")
	rootCmd.AddCommand(researchCmd)
}
