package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/duckdb"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a dataset stored in DuckDB",
		Long:  "Print residue and binding counts, the last run and the failed complexes recorded by 'peppi build --duckdb'.",
		Example: `  peppi stats --duckdb peppi.duckdb
  peppi stats --duckdb peppi.duckdb --failures`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("paths.duckdb", cmd.Flags().Lookup("duckdb"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("paths.duckdb")
			if path == "" {
				return usageError{fmt.Errorf("--duckdb or paths.duckdb is required")}
			}
			showFailures, _ := cmd.Flags().GetBool("failures")
			return runStats(cmd.OutOrStdout(), path, showFailures)
		},
	}
	cmd.Flags().String("duckdb", "", "DuckDB file written by build")
	cmd.Flags().Bool("failures", false, "list every failed complex")
	return cmd
}

func runStats(w io.Writer, path string, showFailures bool) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run, ok, err := store.LastRun()
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(w, "Last run:           %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Peptide list:       %s (%d bytes)\n", run.PeptideList.Path, run.PeptideList.Size)
	} else {
		fmt.Fprintln(w, "Last run:           none recorded")
	}

	residues, err := store.ResidueCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Residues:           %d\n", residues)
	for _, k := range []dataset.Kind{dataset.Peptide, dataset.Protein} {
		n, err := store.BindingCount(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Binding %-11s %d\n", k.String()+":", n)
	}

	failed, err := store.FailedComplexes()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Failed complexes:   %d\n", len(failed))
	if showFailures {
		for _, f := range failed {
			fmt.Fprintf(w, "  %s\t%s\n", f.Complex, f.Failures)
		}
	}
	return nil
}
