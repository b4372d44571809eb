package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/annotate"
	"github.com/inodb/peppi/internal/config"
	"github.com/inodb/peppi/internal/contacts"
	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/duckdb"
	"github.com/inodb/peppi/internal/output"
	"github.com/inodb/peppi/internal/pipeline"
	"github.com/inodb/peppi/internal/pssm"
	"github.com/inodb/peppi/internal/render"
	"github.com/inodb/peppi/internal/runner"
)

// buildFlags maps command-line flags to config keys.
var buildFlags = map[string]string{
	"images":          "images.enabled",
	"binding-path":    "images.binding_path",
	"nonbinding-path": "images.nonbinding_path",
	"image-format":    "images.format",
	"pepbdb":          "paths.pepbdb",
	"peptide-list":    "paths.peptide_list",
	"swissprot":       "paths.swissprot",
	"output":          "paths.output_csv",
	"duckdb":          "paths.duckdb",
	"workers":         "workers",
	"timeout":         "tools.timeout",
}

func newBuildCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the residue dataset",
		Long: `Read the PepBDB peptide list, enrich every selected complex and write one
CSV row per residue. Complexes failing a stage are logged and skipped.`,
		Example: `  peppi build
  peppi build --workers 8 --output dataset.csv
  peppi build --images --binding-path img/binding --nonbinding-path img/nonbinding`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range buildFlags {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return usageError{err}
			}
			logger, err := newLogger(*verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Bool("images", false, "export one window image per residue")
	f.String("binding-path", "", "directory for windows centered on binding residues")
	f.String("nonbinding-path", "", "directory for windows centered on other residues")
	f.String("image-format", "png", "window image format: png, jpeg")
	f.String("pepbdb", "pepbdb", "PepBDB root directory")
	f.String("peptide-list", "", "PepBDB peptide list (default <pepbdb>/peptidelist.txt)")
	f.String("swissprot", "swissprot", "PSI-BLAST database")
	f.StringP("output", "o", "dataset.csv", "output CSV file")
	f.String("duckdb", "", "also write residues and complex statuses to this DuckDB file")
	f.Int("workers", 1, "complexes enriched in parallel")
	f.Duration("timeout", 10*time.Minute, "per-invocation timeout of external tools")

	return cmd
}

func runBuild(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	listPath := cfg.PeptideListPath()
	entries, err := dataset.ReadEntries(listPath)
	if err != nil {
		return err
	}
	logger.Info("peptide list loaded", zap.String("path", listPath), zap.Int("entries", len(entries)))

	p := newPipeline(cfg, logger)
	res, err := p.Run(ctx, entries)
	if err != nil {
		return err
	}

	if cfg.Images.Enabled {
		exp := render.NewExporter(cfg.Images.BindingPath, cfg.Images.NonbindingPath, cfg.Images.Format)
		exp.SetLogger(logger)
		if _, err := exp.Export(res.Tables); err != nil {
			return err
		}
	}

	rows, dropped := res.Rows()
	if err := output.WriteCSVFile(cfg.Paths.OutputCSV, rows); err != nil {
		return err
	}
	logger.Info("dataset written",
		zap.String("path", cfg.Paths.OutputCSV),
		zap.Int("rows", len(rows)),
		zap.Int("dropped_rows", dropped))

	if cfg.Paths.DuckDB != "" {
		if err := writeDuckDB(cfg.Paths.DuckDB, listPath, res, rows); err != nil {
			return err
		}
		logger.Info("duckdb written", zap.String("path", cfg.Paths.DuckDB))
	}

	printSummary(out, res.Stats, len(rows), dropped)
	return nil
}

func newPipeline(cfg *config.Config, logger *zap.Logger) *pipeline.Pipeline {
	r := runner.New(cfg.Tools.Timeout)
	r.SetLogger(logger)

	labeler := contacts.NewLabeler(cfg.Tools.Prodigy, r)
	labeler.TempDir = cfg.Paths.TempDir
	labeler.SetLogger(logger)

	dssp := annotate.NewDSSP(cfg.Tools.MkDSSP, r)
	dssp.TempDir = cfg.Paths.TempDir
	ann := annotate.NewAnnotator(dssp, cfg.HSE.Radius)
	ann.SetLogger(logger)

	profiles := pssm.NewBuilder(cfg.Tools.PSIBlast, cfg.Paths.SwissProt, r)
	profiles.Iterations = cfg.PSIBlast.Iterations
	profiles.EValue = cfg.PSIBlast.EValue
	profiles.TempDir = cfg.Paths.TempDir
	profiles.SetLogger(logger)

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), labeler, ann, profiles)
	p.SetLogger(logger)
	return p
}

func writeDuckDB(path, listPath string, res *pipeline.Result, rows []dataset.Row) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearRows(); err != nil {
		return err
	}
	if err := store.WriteRows(rows); err != nil {
		return err
	}
	if err := store.WriteStatuses(res.Complexes); err != nil {
		return err
	}
	fp, err := duckdb.StatFile(listPath)
	if err != nil {
		return err
	}
	return store.RecordRun(fp, len(rows))
}

func printSummary(w io.Writer, st pipeline.Stats, rows, dropped int) {
	fmt.Fprintf(w, "Entries:            %d\n", st.Entries)
	fmt.Fprintf(w, "Selected:           %d\n", st.Selected)
	fmt.Fprintf(w, "Unreadable:         %d\n", st.SequenceFailures)
	fmt.Fprintf(w, "Sequence filtered:  %d\n", st.SequenceFiltered)
	fmt.Fprintf(w, "Enriched:           %d (%d with failures)\n", st.Enriched, st.FailedComplexes)
	fmt.Fprintf(w, "Molecules dropped:  %d failed, %d incomplete profile, %d table\n",
		st.Gate.Failed, st.Gate.IncompleteProfile, st.TableFailures)
	fmt.Fprintf(w, "Molecules written:  %d\n", st.Tables)
	fmt.Fprintf(w, "Residues written:   %d (%d with missing features)\n", rows, dropped)
}
