// Package main provides the peppi command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/peppi/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by invalid invocation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "peppi",
		Short: "Build residue-level peptide–protein binding datasets from PepBDB",
		Long: `peppi turns the PepBDB peptide–protein complex corpus into a residue-level
feature table: binding labels from PRODIGY contacts, AAindex properties,
half-sphere exposure, DSSP secondary structure and PSI-BLAST profiles.
Optionally every residue is also written as a 7-residue window image.`,
		Example: `  # Build the dataset with default settings
  peppi build --pepbdb /data/pepbdb --output dataset.csv

  # Also export window images and a DuckDB copy
  peppi build --images --binding-path img/binding --nonbinding-path img/nonbinding --duckdb peppi.duckdb

  # Summarize a previous run
  peppi stats --duckdb peppi.duckdb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(viper.GetViper(), cfgFile); err != nil {
				return usageError{err}
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/"+config.FileName+")")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	cmd.AddCommand(newBuildCmd(&verbose))
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "peppi version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// newLogger returns a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
