package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the selectable filter values",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd.Context())
		if err != nil {
			return err
		}
		opts := e.FilterOptions()
		fmt.Printf("cycle:    %s\n", strings.Join(opts.Cycles, ", "))
		fmt.Printf("location: %s\n", strings.Join(opts.Locations, ", "))
		fmt.Printf("status:   %s\n", strings.Join(opts.Statuses, ", "))
		fmt.Printf("gender:   %s\n", strings.Join(opts.Genders, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}
