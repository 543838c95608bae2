package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/evinicim/metalab-insights/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		showSource("students", cfg.Students)
		showSource("enrollments", cfg.Enrollments)
		showSource("evaluations", cfg.Evaluations)
		fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		if len(cfg.Regions) > 0 {
			fmt.Printf("regions: %s\n", strings.Join(cfg.Regions, ", "))
		}
		if len(cfg.IdentityKeywords) > 0 {
			fmt.Printf("identity_keywords: %s\n", strings.Join(cfg.IdentityKeywords, ", "))
		}
		return nil
	},
}

func showSource(name string, s cfgpkg.Source) {
	switch {
	case s.Path != "":
		fmt.Printf("%s: %s\n", name, s.Path)
	case s.ExportURL() != "":
		fmt.Printf("%s: %s\n", name, s.ExportURL())
	default:
		fmt.Printf("%s: (unset)\n", name)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Keys: students.path, students.url, students.sheet_id, students.gid,
students.sheet (and the same under enrollments. and evaluations.),
max_rows, http_timeout_sec.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if dataset, field, ok := strings.Cut(key, "."); ok {
			var src *cfgpkg.Source
			switch dataset {
			case "students":
				src = &cfg.Students
			case "enrollments":
				src = &cfg.Enrollments
			case "evaluations":
				src = &cfg.Evaluations
			default:
				return fmt.Errorf("unknown dataset: %s", dataset)
			}
			switch field {
			case "path":
				*src = cfgpkg.Source{Path: val, Sheet: src.Sheet}
			case "url":
				*src = cfgpkg.Source{URL: val}
			case "sheet_id":
				src.Path, src.URL = "", ""
				src.SheetID = val
			case "gid":
				src.GID = val
			case "sheet":
				src.Sheet = val
			default:
				return fmt.Errorf("unknown key: %s", key)
			}
		} else {
			switch key {
			case "max_rows":
				i, err := strconv.Atoi(val)
				if err != nil || i < 0 {
					return fmt.Errorf("invalid int for max_rows: %v", val)
				}
				cfg.MaxRows = i
			case "http_timeout_sec":
				i, err := strconv.Atoi(val)
				if err != nil || i <= 0 {
					return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
				}
				cfg.HTTPTimeoutSec = i
			default:
				return fmt.Errorf("unknown key: %s", key)
			}
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
