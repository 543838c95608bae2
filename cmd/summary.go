package cmd

import (
	"fmt"

	"github.com/evinicim/metalab-insights/internal/filter"
	"github.com/spf13/cobra"
)

var (
	sumCycle    string
	sumLocation string
	sumStatus   string
	sumGender   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the filtered summary report",
	Long: `Loads the configured datasets, applies the selected filters across all
three, and prints the status tally, age bands, income distribution, and the
other breakdowns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd.Context())
		if err != nil {
			return err
		}
		res := e.Recompute(filter.Selection{
			Cycle:    sumCycle,
			Location: sumLocation,
			Status:   sumStatus,
			Gender:   sumGender,
		})
		fmt.Print(res.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&sumCycle, "cycle", filter.All, "restrict to one cycle")
	summaryCmd.Flags().StringVar(&sumLocation, "location", filter.All, "restrict to one unit/location")
	summaryCmd.Flags().StringVar(&sumStatus, "status", filter.All, "restrict to a status (CURSANDO, CONCLUÍDO, CURSANDO + CONCLUÍDO, ...)")
	summaryCmd.Flags().StringVar(&sumGender, "gender", filter.All, "restrict to a gender value")
}
