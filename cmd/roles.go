package cmd

import (
	"fmt"
	"sort"

	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Show which column was resolved for each role, per dataset",
	Long: `Column names in the spreadsheets drift between exports. This command
shows, for each dataset, which concrete column the vocabulary resolved for
every role, so a surprising filter result can be traced to its column.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd.Context())
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("no configuration loaded")
		}
		_, _, rules := cfg.Vocabulary()

		datasets := []struct {
			name string
			t    *table.Table
		}{
			{"alunos", e.Students()},
			{"inscricoes", e.Enrollments()},
			{"avaliacoes", e.Evaluations()},
		}
		for _, d := range datasets {
			if d.t == nil {
				continue
			}
			fmt.Printf("[%s] %d columns\n", d.name, len(d.t.Columns))
			resolved := rules.ResolveAll(d.t.Columns)
			names := make([]string, 0, len(resolved))
			for role := range resolved {
				names = append(names, string(role))
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("- %s: %s\n", name, resolved[roles.Role(name)])
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
