package pssm

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/runner"
)

// Builder runs psiblast against a reference database.
type Builder struct {
	Exec       string // psiblast executable
	Database   string
	Iterations int
	EValue     float64
	TempDir    string

	runner *runner.Runner
	logger *zap.Logger
}

// NewBuilder creates a builder searching db with psiblast's usual
// iterative settings.
func NewBuilder(exe, db string, r *runner.Runner) *Builder {
	return &Builder{
		Exec:       exe,
		Database:   db,
		Iterations: 3,
		EValue:     0.001,
		runner:     r,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build computes the profile of seq. The query and matrix files are
// removed before Build returns.
func (b *Builder) Build(ctx context.Context, seq string) (*Profile, error) {
	if seq == "" {
		return nil, ErrEmptyProfile
	}

	scratch := runner.NewScratch(b.TempDir)
	defer scratch.Cleanup()

	query, err := scratch.Create("peppi-*.fa")
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(query, ">tmp\n%s\n", seq); err != nil {
		query.Close()
		return nil, fmt.Errorf("write query: %w", err)
	}
	if err := query.Close(); err != nil {
		return nil, fmt.Errorf("close query: %w", err)
	}

	out, err := scratch.Reserve("peppi-*.pssm")
	if err != nil {
		return nil, err
	}

	err = b.runner.Run(ctx, b.Exec,
		"-query", query.Name(),
		"-db", b.Database,
		"-num_iterations", strconv.Itoa(b.Iterations),
		"-evalue", strconv.FormatFloat(b.EValue, 'g', -1, 64),
		"-out_ascii_pssm", out)
	if err != nil {
		return nil, err
	}

	p, err := ParseFile(out, len(seq))
	if err != nil {
		return nil, fmt.Errorf("profile of %d residues: %w", len(seq), err)
	}
	b.logger.Debug("profile built", zap.Int("length", len(seq)), zap.Int("rows", p.Len()))
	return p, nil
}
