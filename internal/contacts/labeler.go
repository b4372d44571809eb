package contacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/runner"
)

// Labeler runs PRODIGY over a combined peptide + protein structure.
type Labeler struct {
	Exec    string // prodigy executable
	TempDir string // scratch directory, system default when empty

	runner *runner.Runner
	logger *zap.Logger
}

// NewLabeler creates a labeler invoking exe through r.
func NewLabeler(exe string, r *runner.Runner) *Labeler {
	return &Labeler{
		Exec:   exe,
		runner: r,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for tool failure messages.
func (l *Labeler) SetLogger(lg *zap.Logger) {
	l.logger = lg
}

// Label concatenates the peptide and protein files, runs the contact tool
// on the result and parses the contact list it leaves next to the input.
//
// A failing tool is logged but not returned: the tool may still have
// written its contact list. Only a missing list is an error. All scratch
// files are removed before Label returns.
func (l *Labeler) Label(ctx context.Context, peptidePath, proteinPath string) (Binding, error) {
	scratch := runner.NewScratch(l.TempDir)
	defer scratch.Cleanup()

	combined, err := scratch.Create("peppi-complex-*.pdb")
	if err != nil {
		return Binding{}, err
	}
	for _, p := range []string{peptidePath, proteinPath} {
		if err := appendFile(combined, p); err != nil {
			combined.Close()
			return Binding{}, err
		}
	}
	if err := combined.Close(); err != nil {
		return Binding{}, fmt.Errorf("close combined structure: %w", err)
	}

	icPath := strings.TrimSuffix(combined.Name(), ".pdb") + ".ic"
	scratch.Track(icPath)

	if err := l.runner.Run(ctx, l.Exec, "-q", "--contact_list", combined.Name()); err != nil {
		l.logger.Warn("contact tool failed",
			zap.String("peptide", peptidePath),
			zap.String("protein", proteinPath),
			zap.Error(err))
	}

	b, err := ParseContactsFile(icPath)
	if err != nil {
		return Binding{}, fmt.Errorf("label %s + %s: %w", peptidePath, proteinPath, err)
	}
	return b, nil
}

func appendFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open structure: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy structure %s: %w", path, err)
	}
	return nil
}
