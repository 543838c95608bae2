package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	cfgpkg "github.com/evinicim/metalab-insights/internal/config"
	"github.com/evinicim/metalab-insights/internal/engine"
	"github.com/spf13/cobra"
)

var (
	// Global flags (wired later to config/viper)
	cfgFile string
	debug   bool
	// Dataset source overrides (take precedence over config)
	flagStudents    string
	flagEnrollments string
	flagEvaluations string
	flagMaxRows     int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "insights",
	Short: "Metalab Insights: reconcile and explore the program spreadsheets",
	Long: `Metalab Insights loads the student, enrollment, and evaluation
spreadsheets, reconciles their loosely named columns, and answers filtered
questions about status, age, income, and evaluations across all three.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.insights/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagStudents, "students", "", "students dataset path or URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagEnrollments, "enrollments", "", "enrollments dataset path or URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagEvaluations, "evaluations", "", "evaluations dataset path or URL (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagMaxRows, "max-rows", 0, "max rows to read per dataset (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	if flagStudents != "" {
		cfg.Students = sourceFromFlag(flagStudents)
	}
	if flagEnrollments != "" {
		cfg.Enrollments = sourceFromFlag(flagEnrollments)
	}
	if flagEvaluations != "" {
		cfg.Evaluations = sourceFromFlag(flagEvaluations)
	}
	if rootCmd.PersistentFlags().Changed("max-rows") && flagMaxRows > 0 {
		cfg.MaxRows = flagMaxRows
	}
}

func sourceFromFlag(v string) cfgpkg.Source {
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return cfgpkg.Source{URL: v}
	}
	return cfgpkg.Source{Path: v}
}

// buildEngine loads the configured datasets into a fresh engine.
func buildEngine(ctx context.Context) (*engine.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded; run 'insights config set' or pass --students")
	}
	if cfg.Students.IsZero() && cfg.Enrollments.IsZero() && cfg.Evaluations.IsZero() {
		return nil, fmt.Errorf("no dataset sources configured; set students/enrollments/evaluations in %s or pass flags", configPathHint())
	}
	regions, keywords, rules := cfg.Vocabulary()
	e := engine.New(rules, regions, keywords)
	if err := e.LoadSources(ctx, cfg); err != nil {
		return nil, err
	}
	if debug {
		fmt.Fprintf(os.Stderr, "loaded: alunos=%d inscricoes=%d avaliacoes=%d\n",
			e.Students().NumRows(), e.Enrollments().NumRows(), e.Evaluations().NumRows())
	}
	return e, nil
}

func configPathHint() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "~/.insights/config.yaml"
}
