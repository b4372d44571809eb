// Package datasettest builds fully enriched molecules and tables for tests.
package datasettest

import (
	"testing"

	"github.com/inodb/peppi/internal/aaindex"
	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/features"
	"github.com/inodb/peppi/internal/pssm"
	"github.com/inodb/peppi/internal/structure"
)

// Molecule returns a molecule of kind with every series filled for seq.
// Structural series hold values in [0, 1] so windows render as images.
// Secondary structure alternates between helix and coil.
func Molecule(t *testing.T, complexID string, kind dataset.Kind, seq string, binding []int) *dataset.Molecule {
	t.Helper()
	n := len(seq)

	m := &dataset.Molecule{
		Kind:           kind,
		Complex:        complexID,
		Path:           complexID + "/" + kind.String() + ".pdb",
		Chain:          "A",
		Sequence:       seq,
		BindingIndices: binding,
		Status:         &dataset.Status{},
	}
	for i := 0; i < n; i++ {
		m.Keys = append(m.Keys, structure.ResidueKey{Chain: "A", Seq: i + 1})
	}

	for _, p := range aaindex.Properties {
		v, err := aaindex.FeatureVector(seq, p)
		if err != nil {
			t.Fatalf("feature vector: %v", err)
		}
		m.Properties = append(m.Properties, scaled(v))
	}

	m.HSEUp = ramp(n, 0.1)
	m.HSEDown = ramp(n, 0.2)
	m.PseudoAngle = ramp(n, 0.3)
	m.ASA = ramp(n, 0.4)
	m.Phi = ramp(n, 0.5)
	m.Psi = ramp(n, 0.6)

	m.SS = make([]byte, n)
	for i := range m.SS {
		m.SS[i] = "H-"[i%2]
	}
	oh, err := features.OneHot(m.SS)
	if err != nil {
		t.Fatalf("one-hot: %v", err)
	}
	m.SSOneHot = oh

	m.PSSM = Profile(seq)
	return m
}

// Profile returns a complete profile for seq with scores in [0, 1].
func Profile(seq string) *pssm.Profile {
	p := &pssm.Profile{Symbols: []byte(seq)}
	for i := range seq {
		var row [20]float64
		for j := range row {
			row[j] = float64((i+j)%10) / 10
		}
		p.Scores = append(p.Scores, row)
	}
	return p
}

// Table tabularizes Molecule(t, complexID, kind, seq, binding).
func Table(t *testing.T, complexID string, kind dataset.Kind, seq string, binding []int) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Tabularize(Molecule(t, complexID, kind, seq, binding))
	if err != nil {
		t.Fatalf("tabularize: %v", err)
	}
	return tbl
}

func ramp(n int, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + 0.3*float64(i)/float64(max(n, 1))
	}
	return out
}

// scaled maps v onto [0, 1].
func scaled(v []float64) []float64 {
	if len(v) == 0 {
		return v
	}
	lo, hi := v[0], v[0]
	for _, x := range v {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	out := make([]float64, len(v))
	for i, x := range v {
		if hi > lo {
			out[i] = (x - lo) / (hi - lo)
		}
	}
	return out
}
