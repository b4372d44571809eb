package dataset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/inodb/peppi/internal/aaindex"
	"github.com/inodb/peppi/internal/features"
)

// ErrNullFeature is returned when a molecule lacks a feature series because
// the stage producing it failed.
var ErrNullFeature = errors.New("null feature")

// MismatchError reports a feature series whose length does not match the
// molecule's sequence, or a table whose column count does not match the
// schema.
type MismatchError struct {
	Complex  string
	Molecule Kind
	Column   string
	Want     int
	Got      int
}

func (e *MismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("complex %s %s: assembled %d columns, schema has %d",
			e.Complex, e.Molecule, e.Got, e.Want)
	}
	return fmt.Sprintf("complex %s %s: column %q has %d values, sequence has %d",
		e.Complex, e.Molecule, e.Column, e.Got, e.Want)
}

// Table is the per-residue table of one molecule. Features has one row per
// residue and one column per FeatureColumns entry.
type Table struct {
	Complex  string
	Molecule Kind
	Residues []byte
	Features *mat.Dense
	Binding  []int // 1 for residues in contact with the partner molecule
}

// Len returns the number of residues.
func (t *Table) Len() int {
	return len(t.Residues)
}

// Tabularize assembles the per-residue table of m.
func Tabularize(m *Molecule) (*Table, error) {
	n := m.Len()
	if n == 0 {
		return nil, fmt.Errorf("complex %s %s: empty sequence: %w", m.Complex, m.Kind, ErrNullFeature)
	}

	binding := make([]int, n)
	for _, idx := range m.BindingIndices {
		if idx < 1 || idx > n {
			return nil, &MismatchError{Complex: m.Complex, Molecule: m.Kind, Column: ColBinding, Want: n, Got: idx}
		}
		binding[idx-1] = 1
	}

	var columns [][]float64
	add := func(name string, series []float64) error {
		if series == nil {
			return fmt.Errorf("complex %s %s: column %q: %w", m.Complex, m.Kind, name, ErrNullFeature)
		}
		if len(series) != n {
			return &MismatchError{Complex: m.Complex, Molecule: m.Kind, Column: name, Want: n, Got: len(series)}
		}
		columns = append(columns, series)
		return nil
	}

	if m.Properties == nil {
		return nil, fmt.Errorf("complex %s %s: properties: %w", m.Complex, m.Kind, ErrNullFeature)
	}
	if len(m.Properties) != len(aaindex.Properties) {
		return nil, &MismatchError{Complex: m.Complex, Molecule: m.Kind, Want: len(aaindex.Properties), Got: len(m.Properties)}
	}
	for i, p := range aaindex.Properties {
		if err := add(p.Name, m.Properties[i]); err != nil {
			return nil, err
		}
	}

	structural := []struct {
		name   string
		series []float64
	}{
		{ColHSEUp, m.HSEUp},
		{ColHSEDown, m.HSEDown},
		{ColPseudoAngle, m.PseudoAngle},
		{ColASA, m.ASA},
		{ColPhi, m.Phi},
		{ColPsi, m.Psi},
	}
	for _, s := range structural {
		if err := add(s.name, s.series); err != nil {
			return nil, err
		}
	}

	for k, series := range m.SSOneHot {
		if err := add("SS "+features.SSAlphabet[k:k+1], series); err != nil {
			return nil, err
		}
	}

	var profile *mat.Dense
	if m.PSSM != nil {
		profile = m.PSSM.Matrix()
	}
	if profile == nil {
		return nil, fmt.Errorf("complex %s %s: profile: %w", m.Complex, m.Kind, ErrNullFeature)
	}
	if _, cols := profile.Dims(); cols != n {
		return nil, &MismatchError{Complex: m.Complex, Molecule: m.Kind, Column: ColPSSM, Want: n, Got: cols}
	}
	rows, _ := profile.Dims()
	for i := 0; i < rows; i++ {
		columns = append(columns, mat.Row(nil, i, profile))
	}

	want := len(FeatureColumns())
	if len(columns) != want {
		return nil, &MismatchError{Complex: m.Complex, Molecule: m.Kind, Want: want, Got: len(columns)}
	}

	fm := mat.NewDense(n, want, nil)
	for j, col := range columns {
		fm.SetCol(j, col)
	}

	return &Table{
		Complex:  m.Complex,
		Molecule: m.Kind,
		Residues: []byte(m.Sequence),
		Features: fm,
		Binding:  binding,
	}, nil
}

// Row is one residue of the final corpus.
type Row struct {
	Complex  string
	Molecule Kind
	Position int // 1-indexed position in the molecule's sequence
	Residue  byte
	Features []float64
	Binding  int
}

// HasNaN reports whether any feature value is missing.
func (r Row) HasNaN() bool {
	for _, v := range r.Features {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Concat stacks the rows of tables in order.
func Concat(tables []*Table) []Row {
	var rows []Row
	for _, t := range tables {
		for i := 0; i < t.Len(); i++ {
			rows = append(rows, Row{
				Complex:  t.Complex,
				Molecule: t.Molecule,
				Position: i + 1,
				Residue:  t.Residues[i],
				Features: mat.Row(nil, i, t.Features),
				Binding:  t.Binding[i],
			})
		}
	}
	return rows
}

// DropNA removes rows with any missing feature value and returns the
// number removed. Missing values are dropped per residue, not per
// molecule.
func DropNA(rows []Row) ([]Row, int) {
	out := rows[:0:0]
	for _, r := range rows {
		if !r.HasNaN() {
			out = append(out, r)
		}
	}
	return out, len(rows) - len(out)
}
