// Package config loads peppi settings from defaults, a YAML config file,
// PEPPI_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the default config file name in the user's home directory.
const FileName = ".peppi.yaml"

// EnvPrefix prefixes environment variables overriding config keys, e.g.
// PEPPI_PATHS_PEPBDB for paths.pepbdb.
const EnvPrefix = "PEPPI"

// Config holds every setting of a dataset build.
type Config struct {
	Paths    Paths    `mapstructure:"paths" yaml:"paths"`
	Tools    Tools    `mapstructure:"tools" yaml:"tools"`
	PSIBlast PSIBlast `mapstructure:"psiblast" yaml:"psiblast"`
	Filter   Filter   `mapstructure:"filter" yaml:"filter"`
	HSE      HSE      `mapstructure:"hse" yaml:"hse"`
	Images   Images   `mapstructure:"images" yaml:"images"`
	Workers  int      `mapstructure:"workers" yaml:"workers"`
}

// Paths locates inputs and outputs.
type Paths struct {
	PepBDB      string `mapstructure:"pepbdb" yaml:"pepbdb"`
	PeptideList string `mapstructure:"peptide_list" yaml:"peptide_list"`
	SwissProt   string `mapstructure:"swissprot" yaml:"swissprot"`
	OutputCSV   string `mapstructure:"output_csv" yaml:"output_csv"`
	DuckDB      string `mapstructure:"duckdb" yaml:"duckdb"`
	TempDir     string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// Tools names the external executables.
type Tools struct {
	Prodigy  string        `mapstructure:"prodigy" yaml:"prodigy"`
	PSIBlast string        `mapstructure:"psiblast" yaml:"psiblast"`
	MkDSSP   string        `mapstructure:"mkdssp" yaml:"mkdssp"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PSIBlast holds profile search settings.
type PSIBlast struct {
	Iterations int     `mapstructure:"iterations" yaml:"iterations"`
	EValue     float64 `mapstructure:"evalue" yaml:"evalue"`
}

// Filter holds corpus filtering thresholds.
type Filter struct {
	MaxResolution        float64 `mapstructure:"max_resolution" yaml:"max_resolution"`
	MinPeptideLength     int     `mapstructure:"min_peptide_length" yaml:"min_peptide_length"`
	ExcludeMolecularType string  `mapstructure:"exclude_molecular_type" yaml:"exclude_molecular_type"`
	RequireLocal         bool    `mapstructure:"require_local" yaml:"require_local"`
}

// HSE holds half-sphere exposure settings.
type HSE struct {
	Radius float64 `mapstructure:"radius" yaml:"radius"`
}

// Images controls window image export.
type Images struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	BindingPath    string `mapstructure:"binding_path" yaml:"binding_path"`
	NonbindingPath string `mapstructure:"nonbinding_path" yaml:"nonbinding_path"`
	Format         string `mapstructure:"format" yaml:"format"`
}

// PeptideListPath returns the peptide list location, defaulting to
// peptidelist.txt inside the PepBDB root.
func (c *Config) PeptideListPath() string {
	if c.Paths.PeptideList != "" {
		return c.Paths.PeptideList
	}
	return filepath.Join(c.Paths.PepBDB, "peptidelist.txt")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.pepbdb", "pepbdb")
	v.SetDefault("paths.peptide_list", "")
	v.SetDefault("paths.swissprot", "swissprot")
	v.SetDefault("paths.output_csv", "dataset.csv")
	v.SetDefault("paths.duckdb", "")
	v.SetDefault("paths.temp_dir", "")

	v.SetDefault("tools.prodigy", "prodigy")
	v.SetDefault("tools.psiblast", "psiblast")
	v.SetDefault("tools.mkdssp", "mkdssp")
	v.SetDefault("tools.timeout", 10*time.Minute)

	v.SetDefault("psiblast.iterations", 3)
	v.SetDefault("psiblast.evalue", 0.001)

	v.SetDefault("filter.max_resolution", 2.5)
	v.SetDefault("filter.min_peptide_length", 10)
	v.SetDefault("filter.exclude_molecular_type", "prot-nuc")
	v.SetDefault("filter.require_local", true)

	v.SetDefault("hse.radius", 12.0)

	v.SetDefault("images.enabled", false)
	v.SetDefault("images.binding_path", "")
	v.SetDefault("images.nonbinding_path", "")
	v.SetDefault("images.format", "png")

	v.SetDefault("workers", 1)
}

// Init prepares v: defaults, environment overrides and the config file.
// An explicit cfgFile must exist; the default ~/.peppi.yaml may be absent.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.SetConfigFile(filepath.Join(home, FileName))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that cannot be fixed by a default.
func (c *Config) Validate() error {
	var errs []error
	if c.Images.Enabled && (c.Images.BindingPath == "" || c.Images.NonbindingPath == "") {
		errs = append(errs, errors.New("images.binding_path and images.nonbinding_path are required when images are enabled"))
	}
	switch c.Images.Format {
	case "png", "jpeg", "jpg":
	default:
		errs = append(errs, fmt.Errorf("images.format: unsupported format %q", c.Images.Format))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Tools.Timeout < 0 {
		errs = append(errs, fmt.Errorf("tools.timeout must not be negative, got %s", c.Tools.Timeout))
	}
	if c.PSIBlast.Iterations < 1 {
		errs = append(errs, fmt.Errorf("psiblast.iterations must be at least 1, got %d", c.PSIBlast.Iterations))
	}
	if c.HSE.Radius <= 0 {
		errs = append(errs, fmt.Errorf("hse.radius must be positive, got %g", c.HSE.Radius))
	}
	if c.Paths.OutputCSV == "" {
		errs = append(errs, errors.New("paths.output_csv is required"))
	}
	return errors.Join(errs...)
}
