package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/evinicim/metalab-insights/internal/filter"
	"github.com/evinicim/metalab-insights/internal/roles"
)

// Source locates one dataset. Exactly one of Path, URL, or SheetID should be
// set; SheetID plus GID builds a Google Sheets CSV export URL.
type Source struct {
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
	URL     string `mapstructure:"url" yaml:"url,omitempty"`
	SheetID string `mapstructure:"sheet_id" yaml:"sheet_id,omitempty"`
	GID     string `mapstructure:"gid" yaml:"gid,omitempty"`
	// Sheet selects the worksheet for local XLSX files.
	Sheet string `mapstructure:"sheet" yaml:"sheet,omitempty"`
}

// IsZero reports whether the source is unset.
func (s Source) IsZero() bool {
	return s.Path == "" && s.URL == "" && s.SheetID == ""
}

// ExportURL returns the remote CSV URL, building the Google Sheets export
// form when only a sheet id is given. Empty when the source is local.
func (s Source) ExportURL() string {
	if s.URL != "" {
		return s.URL
	}
	if s.SheetID != "" {
		return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", s.SheetID, s.GID)
	}
	return ""
}

// Global configuration structure.
type Global struct {
	Students    Source `mapstructure:"students" yaml:"students"`
	Enrollments Source `mapstructure:"enrollments" yaml:"enrollments"`
	Evaluations Source `mapstructure:"evaluations" yaml:"evaluations"`

	MaxRows        int `mapstructure:"max_rows" yaml:"max_rows,omitempty"`
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec,omitempty"`

	// Regions recognized inside composite location labels.
	Regions []string `mapstructure:"regions" yaml:"regions,omitempty"`
	// IdentityKeywords mark columns that relate rows across datasets.
	IdentityKeywords []string `mapstructure:"identity_keywords" yaml:"identity_keywords,omitempty"`

	// Roles overrides the column vocabulary per role; unset roles keep the
	// built-in rules.
	Roles roles.Ruleset `mapstructure:"roles" yaml:"roles,omitempty"`
}

// Vocabulary returns the effective region list, identity keywords, and role
// ruleset with config overrides applied.
func (c *Global) Vocabulary() ([]string, []string, roles.Ruleset) {
	regions := c.Regions
	if len(regions) == 0 {
		regions = filter.DefaultRegions
	}
	keywords := c.IdentityKeywords
	if len(keywords) == 0 {
		keywords = filter.DefaultIdentityKeywords
	}
	rules := roles.Default()
	if len(c.Roles) > 0 {
		rules = rules.Merge(c.Roles)
	}
	return regions, keywords, rules
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.insights/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".insights")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIGHTS")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("max_rows", 20000)
	v.SetDefault("http_timeout_sec", 30)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".insights")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
