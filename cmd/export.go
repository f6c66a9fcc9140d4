package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest research result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		toNotion, _ := cmd.Flags().GetBool("notion")
		if xlsxPath == "" && !toNotion {
			return eris.New("export: choose --xlsx and/or --notion")
		}
		if toNotion {
			if err := cfg.Validate("notion"); err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := st.Latest(ctx)
		if err != nil {
			return eris.Wrap(err, "export: load latest result")
		}
		return publish(ctx, res, xlsxPath, toNotion)
	},
}

func init() {
	exportCmd.Flags().String("xlsx", "", "write an XLSX report to this path")
	exportCmd.Flags().Bool("notion", false, "export better and new offers to Notion")
	rootCmd.AddCommand(exportCmd)
}
