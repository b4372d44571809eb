package dataset_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/dataset/datasettest"
	"github.com/inodb/peppi/internal/pssm"
)

func TestSchema(t *testing.T) {
	cols := dataset.Schema()
	require.Len(t, cols, 43)
	assert.Equal(t, "AA", cols[0])
	assert.Equal(t, "Hydrophobicity", cols[1])
	assert.Equal(t, "Isoelectric Point", cols[7])
	assert.Equal(t, []string{"HSE Up", "HSE Down", "Pseudo Angles", "ASA", "Phi", "Psi"}, cols[8:14])
	assert.Equal(t, "SS H", cols[14])
	assert.Equal(t, "SS -", cols[21])
	assert.Equal(t, "A", cols[22])
	assert.Equal(t, "V", cols[41])
	assert.Equal(t, "Binding Indices", cols[42])

	assert.Equal(t, cols[1:42], dataset.FeatureColumns())
}

func TestTabularize_EndToEnd(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Protein, "MKWVTFISLLLL", []int{3, 7, 12})

	tbl, err := dataset.Tabularize(m)
	require.NoError(t, err)

	assert.Equal(t, 12, tbl.Len())
	rows, cols := tbl.Features.Dims()
	assert.Equal(t, 12, rows)
	assert.Equal(t, len(dataset.Schema())-2, cols)

	ones := 0
	for i, b := range tbl.Binding {
		if b == 1 {
			ones++
			assert.Contains(t, []int{3, 7, 12}, i+1)
		}
	}
	assert.Equal(t, 3, ones)

	for i := 0; i < rows; i++ {
		for j := cols - 20; j < cols; j++ {
			assert.False(t, math.IsNaN(tbl.Features.At(i, j)))
		}
	}

	// First profile column is the A score at each position.
	assert.Equal(t, m.PSSM.Scores[4][0], tbl.Features.At(4, cols-20))
	assert.Equal(t, m.HSEUp[5], tbl.Features.At(5, 7))
	assert.Equal(t, []byte("MKWVTFISLLLL"), tbl.Residues)
}

func TestTabularize_LengthMismatch(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Peptide, "MKWVTFISLL", nil)
	m.ASA = m.ASA[:8]

	_, err := dataset.Tabularize(m)
	var me *dataset.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "1abc_P", me.Complex)
	assert.Equal(t, dataset.Peptide, me.Molecule)
	assert.Equal(t, "ASA", me.Column)
	assert.Equal(t, 10, me.Want)
	assert.Equal(t, 8, me.Got)
	assert.Contains(t, err.Error(), "complex 1abc_P peptide")
}

func TestTabularize_ShortProfile(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Peptide, "MKWVTFISLL", nil)
	m.PSSM = datasettest.Profile("MKWVT")

	_, err := dataset.Tabularize(m)
	var me *dataset.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, dataset.ColPSSM, me.Column)
	assert.Equal(t, 10, me.Want)
	assert.Equal(t, 5, me.Got)
}

func TestTabularize_EmptyProfile(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Peptide, "MKWVTFISLL", nil)
	m.PSSM = &pssm.Profile{}

	_, err := dataset.Tabularize(m)
	assert.ErrorIs(t, err, dataset.ErrNullFeature)
}

func TestTabularize_ProfileColumnsFollowMatrix(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Protein, "MKWVTFISLL", nil)
	tbl, err := dataset.Tabularize(m)
	require.NoError(t, err)

	profile := m.PSSM.Matrix()
	first := len(dataset.FeatureColumns()) - len(pssm.Alphabet)
	for i := 0; i < len(pssm.Alphabet); i++ {
		assert.Equal(t, mat.Row(nil, i, profile), mat.Col(nil, first+i, tbl.Features), "column %s", pssm.Alphabet[i:i+1])
	}
}

func TestTabularize_NullFeature(t *testing.T) {
	tests := []struct {
		name  string
		clear func(m *dataset.Molecule)
	}{
		{"hse", func(m *dataset.Molecule) { m.HSEUp = nil }},
		{"one-hot", func(m *dataset.Molecule) { m.SSOneHot = [8][]float64{} }},
		{"properties", func(m *dataset.Molecule) { m.Properties = nil }},
		{"profile", func(m *dataset.Molecule) { m.PSSM = nil }},
		{"sequence", func(m *dataset.Molecule) { m.Sequence = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := datasettest.Molecule(t, "1abc_P", dataset.Protein, "MKWVTFISLL", nil)
			tt.clear(m)
			_, err := dataset.Tabularize(m)
			assert.True(t, errors.Is(err, dataset.ErrNullFeature), "got %v", err)
		})
	}
}

func TestTabularize_BindingOutOfRange(t *testing.T) {
	m := datasettest.Molecule(t, "1abc_P", dataset.Protein, "MKWVTFISLL", []int{11})

	_, err := dataset.Tabularize(m)
	var me *dataset.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Binding Indices", me.Column)
}

func TestReduce(t *testing.T) {
	a := dataset.NewComplex(dataset.Entry{PDBID: "1aaa", PeptideChain: "P"}, "/r")
	b := dataset.NewComplex(dataset.Entry{PDBID: "2bbb", PeptideChain: "P"}, "/r")

	ms := dataset.Reduce([]*dataset.Complex{a, b})
	assert.Equal(t, []*dataset.Molecule{a.Peptide, b.Peptide, a.Protein, b.Protein}, ms)
}

func TestGate(t *testing.T) {
	good := datasettest.Molecule(t, "1aaa_P", dataset.Protein, "MKWVTFISLL", nil)

	failed := datasettest.Molecule(t, "2bbb_P", dataset.Protein, "MKWVTFISLL", nil)
	failed.Status.Fail(dataset.StageAnnotation, dataset.Protein, errors.New("boom"))

	partnerFailed := datasettest.Molecule(t, "3ccc_P", dataset.Peptide, "MKWVTFISLL", nil)
	partnerFailed.Status.Fail(dataset.StageAnnotation, dataset.Protein, errors.New("boom"))

	empty := datasettest.Molecule(t, "4ddd_P", dataset.Protein, "MKWVTFISLL", nil)
	empty.PSSM = nil

	short := datasettest.Molecule(t, "5eee_P", dataset.Protein, "MKWVTFISLL", nil)
	short.PSSM = datasettest.Profile("MKW")

	missing := datasettest.Molecule(t, "6fff_P", dataset.Protein, "MKWVTFISLL", nil)
	missing.PSSM.Scores[2][5] = math.NaN()

	kept, stats := dataset.Gate([]*dataset.Molecule{good, failed, partnerFailed, empty, short, missing})
	assert.Equal(t, []*dataset.Molecule{good, partnerFailed}, kept)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.IncompleteProfile)
	assert.Equal(t, 4, stats.Dropped())
}

func TestConcatAndDropNA(t *testing.T) {
	a := datasettest.Table(t, "1aaa_P", dataset.Peptide, "MKWVTFISLL", []int{1})
	b := datasettest.Table(t, "2bbb_P", dataset.Protein, "ACDEFGHIK", []int{2, 9})
	b.Features.Set(3, 9, math.NaN())

	rows := dataset.Concat([]*dataset.Table{a, b})
	require.Len(t, rows, 19)
	assert.Equal(t, "1aaa_P", rows[0].Complex)
	assert.Equal(t, 1, rows[0].Position)
	assert.Equal(t, byte('M'), rows[0].Residue)
	assert.Equal(t, 1, rows[0].Binding)
	assert.Equal(t, dataset.Protein, rows[10].Molecule)
	assert.Equal(t, 2, rows[11].Position)
	assert.Equal(t, 1, rows[11].Binding)
	assert.Len(t, rows[0].Features, 41)
	assert.True(t, rows[13].HasNaN())

	kept, dropped := dataset.DropNA(rows)
	assert.Equal(t, 1, dropped)
	assert.Len(t, kept, 18)
	assert.Equal(t, 3, kept[12].Position, "position of the dropped row's predecessor")
	assert.Equal(t, 5, kept[13].Position)
}

func TestProfileAlphabetMatchesSchema(t *testing.T) {
	cols := dataset.FeatureColumns()
	for i := 0; i < len(pssm.Alphabet); i++ {
		assert.Equal(t, pssm.Alphabet[i:i+1], cols[len(cols)-20+i])
	}
}
