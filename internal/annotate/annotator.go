// Package annotate assigns per-residue structural annotations: half-sphere
// exposure, secondary structure, relative accessibility and backbone torsions.
package annotate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/structure"
)

// SecondaryStructure assigns DSSP records to the residues of a structure file.
type SecondaryStructure interface {
	Run(ctx context.Context, path string) ([]DSSPRecord, error)
}

// Result holds the seven per-residue series of one structure, each in the
// order the producing tool reported residues. When Err is set every series
// is nil.
type Result struct {
	HSEUp       []float64
	HSEDown     []float64
	PseudoAngle []float64
	SS          []byte
	ASA         []float64
	Phi         []float64
	Psi         []float64

	HSEKeys  []structure.ResidueKey
	DSSPKeys []structure.ResidueKey

	Err error
}

// Null reports whether annotation failed.
func (r *Result) Null() bool {
	return r.Err != nil
}

// Annotator computes structural annotations for PDB files.
type Annotator struct {
	radius float64
	dssp   SecondaryStructure
	logger *zap.Logger
}

// NewAnnotator creates an annotator using d for secondary structure and
// radius for half-sphere exposure.
func NewAnnotator(d SecondaryStructure, radius float64) *Annotator {
	if radius <= 0 {
		radius = DefaultHSERadius
	}
	return &Annotator{
		radius: radius,
		dssp:   d,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate returns the annotations of the structure at path. It never
// fails: errors are logged and reported through Result.Err so that a
// single bad structure does not stop a batch.
func (a *Annotator) Annotate(ctx context.Context, path string) *Result {
	res, err := a.annotate(ctx, path)
	if err != nil {
		a.logger.Warn("annotation failed", zap.String("path", path), zap.Error(err))
		return &Result{Err: err}
	}
	a.logger.Debug("annotation acquired", zap.String("path", path))
	return res
}

func (a *Annotator) annotate(ctx context.Context, path string) (*Result, error) {
	s, err := structure.ReadFile(path)
	if err != nil {
		return nil, err
	}

	hse := ComputeHSE(s.Models[0], 0, a.radius)
	if len(hse) == 0 {
		return nil, fmt.Errorf("no residue with half-sphere exposure in %s", path)
	}

	records, err := a.dssp.Run(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("dssp: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dssp assigned no residues in %s", path)
	}

	res := &Result{}
	for _, v := range hse {
		res.HSEUp = append(res.HSEUp, float64(v.Up))
		res.HSEDown = append(res.HSEDown, float64(v.Down))
		res.PseudoAngle = append(res.PseudoAngle, v.Angle)
		res.HSEKeys = append(res.HSEKeys, v.Key)
	}
	for _, r := range records {
		res.SS = append(res.SS, r.SS)
		res.ASA = append(res.ASA, r.ASA)
		res.Phi = append(res.Phi, r.Phi)
		res.Psi = append(res.Psi, r.Psi)
		res.DSSPKeys = append(res.DSSPKeys, r.Key)
	}
	return res, nil
}
