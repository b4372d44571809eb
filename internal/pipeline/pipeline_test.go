package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/peppi/internal/annotate"
	"github.com/inodb/peppi/internal/config"
	"github.com/inodb/peppi/internal/contacts"
	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/dataset/datasettest"
	"github.com/inodb/peppi/internal/pssm"
	"github.com/inodb/peppi/internal/structure"
	"github.com/inodb/peppi/internal/structure/structuretest"
)

// fakeLabeler reports peptide residues 3 and 4 of chain B in contact with
// protein residues 5 and 6 of chain A, or fails for listed complexes.
type fakeLabeler struct {
	fail map[string]bool // peptide paths
}

func (f *fakeLabeler) Label(_ context.Context, peptidePath, _ string) (contacts.Binding, error) {
	if f.fail[peptidePath] {
		return contacts.Binding{}, contacts.ErrMissingOutput
	}
	return contacts.Binding{
		Peptide: []int{3, 4},
		Protein: []int{5, 6},
		Contacts: []contacts.Contact{
			{Peptide: contacts.ResidueRef{Name: "ASP", Seq: 3, Chain: "B"}, Protein: contacts.ResidueRef{Name: "LYS", Seq: 5, Chain: "A"}},
			{Peptide: contacts.ResidueRef{Name: "GLU", Seq: 4, Chain: "B"}, Protein: contacts.ResidueRef{Name: "ARG", Seq: 6, Chain: "A"}},
		},
	}, nil
}

// fakeAnnotator derives annotations from the residues of the file: HSE for
// every residue but the chain ends, and a helix over the whole chain.
type fakeAnnotator struct {
	dropDSSP int // number of trailing residues left out of the DSSP series
}

func (f *fakeAnnotator) Annotate(_ context.Context, path string) *annotate.Result {
	seq, err := structure.ExtractSequenceFile(path)
	if err != nil {
		return &annotate.Result{Err: err}
	}
	n := seq.Len()
	res := &annotate.Result{}
	for i := 1; i < n-1; i++ {
		res.HSEKeys = append(res.HSEKeys, seq.Keys[i])
		res.HSEUp = append(res.HSEUp, float64(i))
		res.HSEDown = append(res.HSEDown, float64(2*i))
		res.PseudoAngle = append(res.PseudoAngle, 0.5)
	}
	for i := 0; i < n-f.dropDSSP; i++ {
		res.DSSPKeys = append(res.DSSPKeys, seq.Keys[i])
		res.SS = append(res.SS, 'H')
		res.ASA = append(res.ASA, 0.25)
		res.Phi = append(res.Phi, -57)
		res.Psi = append(res.Psi, -47)
	}
	return res
}

type fakeProfiles struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool // sequences
}

func (f *fakeProfiles) Build(_ context.Context, seq string) (*pssm.Profile, error) {
	f.mu.Lock()
	f.calls = append(f.calls, seq)
	f.mu.Unlock()
	if f.fail[seq] {
		return nil, errors.New("psiblast exited with status 1")
	}
	return datasettest.Profile(seq), nil
}

const (
	peptide1 = "ACDEFGHIKL"
	protein1 = "MKWVTFISLLLLFSSAYS"
	peptide3 = "GSDEKLMNPQ"
	protein3 = "WYVTSRQNPKLH"
)

// writeComplex lays out {root}/{pdb}_B with a peptide on chain B and a
// protein on chain A. An empty sequence leaves the file out.
func writeComplex(t *testing.T, root, pdb, pep, prot string) {
	t.Helper()
	dir := filepath.Join(root, pdb+"_B")
	if pep != "" {
		structuretest.WriteFile(t, dir, "peptide.pdb", structuretest.Helix("B", pep, 1, 0))
	}
	if prot != "" {
		structuretest.WriteFile(t, dir, "receptor.pdb", structuretest.Helix("A", prot, 1, 30))
	}
}

func entry(pdb string, pepLen int, resolution float64) dataset.Entry {
	return dataset.Entry{
		PDBID:         pdb,
		PeptideChain:  "B",
		PeptideLength: pepLen,
		ProteinChain:  "A",
		Resolution:    resolution,
		MolecularType: "prot",
	}
}

type corpus struct {
	root     string
	entries  []dataset.Entry
	labeler  *fakeLabeler
	profiles *fakeProfiles
}

func newCorpus(t *testing.T) *corpus {
	root := t.TempDir()
	writeComplex(t, root, "1aaa", peptide1, protein1)
	writeComplex(t, root, "2bbb", "GSGSGSGSGSGS", "MKLVVAAGGHHK")
	writeComplex(t, root, "3ccc", peptide3, protein3)
	writeComplex(t, root, "4ddd", peptide1, protein1)      // duplicate of 1aaa
	writeComplex(t, root, "5eee", "", protein1)            // peptide file missing
	writeComplex(t, root, "6fff", peptide1, protein3)      // resolution too low
	writeComplex(t, root, "8hhh", "ACDEFGHIKLX", protein3) // unknown residue

	return &corpus{
		root: root,
		entries: []dataset.Entry{
			entry("1aaa", 10, 1.8),
			entry("2bbb", 12, 2.0),
			entry("3ccc", 10, 1.5),
			entry("4ddd", 10, 1.9),
			entry("5eee", 10, 2.1),
			entry("6fff", 10, 3.0),
			entry("7ggg", 10, 1.0), // no local directory
			entry("8hhh", 11, 2.0),
		},
		labeler:  &fakeLabeler{fail: map[string]bool{filepath.Join(root, "2bbb_B", "peptide.pdb"): true}},
		profiles: &fakeProfiles{fail: map[string]bool{peptide3: true}},
	}
}

func (c *corpus) pipeline(workers int) *Pipeline {
	return New(Options{
		PepBDB:       c.root,
		Filter:       dataset.DefaultFilterOptions(),
		RequireLocal: true,
		Workers:      workers,
	}, c.labeler, &fakeAnnotator{}, c.profiles)
}

func complexIDs(cs []*dataset.Complex) []string {
	var ids []string
	for _, c := range cs {
		ids = append(ids, c.Entry.ID())
	}
	return ids
}

func TestRun_EndToEnd(t *testing.T) {
	for _, workers := range []int{1, 4} {
		c := newCorpus(t)
		res, err := c.pipeline(workers).Run(context.Background(), c.entries)
		require.NoError(t, err, "workers=%d", workers)

		assert.Equal(t, []string{"1aaa_B", "2bbb_B", "3ccc_B", "4ddd_B", "5eee_B", "8hhh_B"}, complexIDs(res.Complexes))

		st := res.Stats
		assert.Equal(t, 8, st.Entries)
		assert.Equal(t, 6, st.Selected)
		assert.Equal(t, 1, st.SequenceFailures)
		assert.Equal(t, 2, st.SequenceFiltered, "duplicate and non-standard")
		assert.Equal(t, 3, st.Enriched)
		assert.Equal(t, 2, st.FailedComplexes)
		assert.Equal(t, 3, st.Gate.Failed, "2bbb pair and 3ccc peptide")
		assert.Zero(t, st.Gate.IncompleteProfile)
		assert.Equal(t, 3, st.Tables)

		// Peptides first, then proteins, each in corpus order.
		require.Len(t, res.Tables, 3)
		assert.Equal(t, "1aaa_B", res.Tables[0].Complex)
		assert.Equal(t, dataset.Peptide, res.Tables[0].Molecule)
		assert.Equal(t, "1aaa_B", res.Tables[1].Complex)
		assert.Equal(t, dataset.Protein, res.Tables[1].Molecule)
		assert.Equal(t, "3ccc_B", res.Tables[2].Complex)
		assert.Equal(t, dataset.Protein, res.Tables[2].Molecule)

		assert.Equal(t, []int{0, 0, 1, 1, 0, 0, 0, 0, 0, 0}, res.Tables[0].Binding)
		assert.Equal(t, 1, res.Tables[1].Binding[4])
		assert.Equal(t, 1, res.Tables[1].Binding[5])

		rows, dropped := res.Rows()
		assert.Zero(t, dropped, "chain ends are filled by terminal extension")
		assert.Len(t, rows, len(peptide1)+len(protein1)+len(protein3))
	}
}

func TestRun_Statuses(t *testing.T) {
	c := newCorpus(t)
	res, err := c.pipeline(2).Run(context.Background(), c.entries)
	require.NoError(t, err)

	byID := make(map[string]*dataset.Complex)
	for _, cx := range res.Complexes {
		byID[cx.Entry.ID()] = cx
	}

	assert.True(t, byID["1aaa_B"].Status.OK())

	st := byID["2bbb_B"].Status
	require.Len(t, st.Failures, 1)
	assert.Equal(t, dataset.StageContacts, st.Failures[0].Stage)
	assert.ErrorIs(t, st.Failures[0].Err, contacts.ErrMissingOutput)

	st = byID["3ccc_B"].Status
	require.Len(t, st.Failures, 1)
	assert.Equal(t, dataset.StageProfile, st.Failures[0].Stage)
	assert.Equal(t, dataset.Peptide, st.Failures[0].Kind)
	assert.False(t, st.Failed(dataset.Protein))

	st = byID["5eee_B"].Status
	require.Len(t, st.Failures, 1)
	assert.Equal(t, dataset.StageSequence, st.Failures[0].Stage)
	assert.Contains(t, st.Failures[0].Err.Error(), "peptide")

	assert.True(t, byID["8hhh_B"].Status.OK(), "sequence filters are not failures")
}

func TestRun_ProfilesOnlyForSurvivors(t *testing.T) {
	c := newCorpus(t)
	_, err := c.pipeline(1).Run(context.Background(), c.entries)
	require.NoError(t, err)

	// 2bbb fails at contacts before profiles are built.
	assert.ElementsMatch(t, []string{peptide1, protein1, peptide3, protein3}, c.profiles.calls)
}

func TestRun_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := newCorpus(t)
	p := c.pipeline(1)
	p.SetLogger(zap.New(core))

	_, err := p.Run(context.Background(), c.entries)
	require.NoError(t, err)

	assert.Equal(t, 3, logs.FilterMessage("complex enriched").Len())
	last := logs.FilterMessage("complex enriched").All()[2]
	assert.Equal(t, "3/3", last.ContextMap()["progress"])

	failed := logs.FilterMessage("stage failed").All()
	require.Len(t, failed, 3)
	assert.Equal(t, "sequence", failed[0].ContextMap()["stage"])
	assert.Equal(t, 1, logs.FilterMessage("tables built").Len())
}

func TestRun_Cancelled(t *testing.T) {
	c := newCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.pipeline(2).Run(ctx, c.entries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_MissingRoot(t *testing.T) {
	p := New(Options{PepBDB: filepath.Join(t.TempDir(), "none"), RequireLocal: true},
		&fakeLabeler{}, &fakeAnnotator{}, &fakeProfiles{})
	_, err := p.Run(context.Background(), []dataset.Entry{entry("1aaa", 10, 1.0)})
	assert.Error(t, err)
}

func enrichOne(t *testing.T, a StructureAnnotator) *dataset.Complex {
	t.Helper()
	c := newCorpus(t)
	cx := dataset.NewComplex(c.entries[0], c.root)
	require.NoError(t, readSequences(cx))

	p := New(Options{}, c.labeler, a, c.profiles)
	require.NoError(t, p.Enrich(context.Background(), cx))
	return cx
}

func TestEnrich_Molecule(t *testing.T) {
	cx := enrichOne(t, &fakeAnnotator{})
	require.True(t, cx.Status.OK(), cx.Status.String())

	m := cx.Peptide
	assert.Equal(t, peptide1, m.Sequence)
	assert.Equal(t, []int{3, 4}, m.BindingIndices)
	assert.Len(t, m.Properties, 7)

	// The fake leaves out both chain ends; they repeat their neighbours.
	require.Len(t, m.HSEUp, 10)
	assert.Equal(t, 1.0, m.HSEUp[0])
	assert.Equal(t, 1.0, m.HSEUp[1])
	assert.Equal(t, 8.0, m.HSEUp[8])
	assert.Equal(t, 8.0, m.HSEUp[9])
	assert.Equal(t, 16.0, m.HSEDown[9])

	assert.Equal(t, []byte(strings.Repeat("H", 10)), m.SS)
	assert.Equal(t, 1.0, m.SSOneHot[0][0])
	assert.Equal(t, 0.0, m.SSOneHot[7][0])
	assert.Equal(t, -57.0, m.Phi[9])
	assert.True(t, m.PSSM.Complete(10))
	assert.Equal(t, []int{5, 6}, cx.Protein.BindingIndices)
}

func TestEnrich_SecondaryStructureGap(t *testing.T) {
	cx := enrichOne(t, &fakeAnnotator{dropDSSP: 2})

	require.Len(t, cx.Status.Failures, 2)
	for _, f := range cx.Status.Failures {
		assert.Equal(t, dataset.StageAnnotation, f.Stage)
		assert.Contains(t, f.Err.Error(), "secondary structure missing for 2 of")
	}
	assert.Nil(t, cx.Peptide.PSSM, "later stages are skipped")
}

type nullAnnotator struct{}

func (nullAnnotator) Annotate(context.Context, string) *annotate.Result {
	return &annotate.Result{Err: errors.New("mkdssp exited with status 1")}
}

func TestEnrich_NullAnnotation(t *testing.T) {
	cx := enrichOne(t, nullAnnotator{})

	assert.True(t, cx.Status.Failed(dataset.Peptide))
	assert.True(t, cx.Status.Failed(dataset.Protein))
	assert.Nil(t, cx.Peptide.HSEUp)
	assert.Len(t, cx.Peptide.Properties, 7, "earlier stages are kept")
}

func TestAlignAnnotation_InteriorGapStaysMissing(t *testing.T) {
	seq := structure.Sequence{Letters: "ACDEFGH"}
	for i := 1; i <= 7; i++ {
		seq.Keys = append(seq.Keys, structure.ResidueKey{Chain: "A", Seq: i})
	}
	m := &dataset.Molecule{Sequence: seq.Letters, Keys: seq.Keys}
	ann := &annotate.Result{
		HSEKeys:     []structure.ResidueKey{seq.Keys[1], seq.Keys[2], seq.Keys[4], seq.Keys[5]},
		HSEUp:       []float64{1, 2, 4, 5},
		HSEDown:     []float64{1, 2, 4, 5},
		PseudoAngle: []float64{1, 2, 4, 5},
		DSSPKeys:    seq.Keys,
		SS:          []byte("HHHEEE-"),
		ASA:         make([]float64, 7),
		Phi:         make([]float64, 7),
		Psi:         make([]float64, 7),
	}

	require.NoError(t, alignAnnotation(m, ann))
	assert.Equal(t, 1.0, m.HSEUp[0])
	assert.True(t, math.IsNaN(m.HSEUp[3]))
	assert.Equal(t, 5.0, m.HSEUp[6])
}

func TestOptionsFromConfig(t *testing.T) {
	c := &config.Config{Workers: 3}
	c.Paths.PepBDB = "/data/pepbdb"
	c.Filter.MaxResolution = 2.5
	c.Filter.MinPeptideLength = 10
	c.Filter.ExcludeMolecularType = "prot-nuc"
	c.Filter.RequireLocal = true

	opts := OptionsFromConfig(c)
	assert.Equal(t, "/data/pepbdb", opts.PepBDB)
	assert.Equal(t, dataset.DefaultFilterOptions(), opts.Filter)
	assert.True(t, opts.RequireLocal)
	assert.Equal(t, 3, opts.Workers)
}

func TestAlignAnnotation_MissingAngleNextToChainEnd(t *testing.T) {
	nan := math.NaN()
	var keys []structure.ResidueKey
	for i := 1; i <= 5; i++ {
		keys = append(keys, structure.ResidueKey{Chain: "A", Seq: i})
	}
	m := &dataset.Molecule{Sequence: "ACDEF", Keys: keys}
	ann := &annotate.Result{
		HSEKeys:     keys[1:4],
		HSEUp:       []float64{3, 4, 5},
		HSEDown:     []float64{6, 7, 8},
		PseudoAngle: []float64{nan, 0.7, 0.9},
		DSSPKeys:    keys,
		SS:          []byte("HHHHH"),
		ASA:         make([]float64, 5),
		Phi:         make([]float64, 5),
		Psi:         make([]float64, 5),
	}

	require.NoError(t, alignAnnotation(m, ann))
	assert.True(t, math.IsNaN(m.PseudoAngle[0]), "chain start copies residue 2's missing angle")
	assert.True(t, math.IsNaN(m.PseudoAngle[1]))
	assert.Equal(t, []float64{0.7, 0.9, 0.9}, m.PseudoAngle[2:])
	assert.Equal(t, []float64{3, 3, 4, 5, 5}, m.HSEUp)

	m.Properties = datasettest.Molecule(t, "1abc_B", dataset.Peptide, "ACDEF", nil).Properties
	m.PSSM = datasettest.Profile("ACDEF")
	tbl, err := dataset.Tabularize(m)
	require.NoError(t, err)
	rows, dropped := dataset.DropNA(dataset.Concat([]*dataset.Table{tbl}))
	assert.Equal(t, 2, dropped, "both residues without an angle are dropped")
	assert.Len(t, rows, 3)
}

func TestTabulate_SkipsMismatchedMolecule(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := New(Options{}, &fakeLabeler{}, &fakeAnnotator{}, &fakeProfiles{})
	p.SetLogger(zap.New(core))

	good := datasettest.Molecule(t, "1aaa_B", dataset.Peptide, peptide1, []int{3})
	bad := datasettest.Molecule(t, "1aaa_B", dataset.Protein, protein1, nil)
	bad.HSEUp = bad.HSEUp[:len(bad.HSEUp)-1]

	var st Stats
	tables := p.tabulate([]*dataset.Molecule{bad, good}, &st)

	require.Len(t, tables, 1)
	assert.Equal(t, dataset.Peptide, tables[0].Molecule)
	assert.Equal(t, 1, st.TableFailures)
	assert.Equal(t, 1, st.Tables)

	assert.True(t, good.Status.OK())
	require.Len(t, bad.Status.Failures, 1)
	f := bad.Status.Failures[0]
	assert.Equal(t, dataset.StageTable, f.Stage)
	assert.Equal(t, dataset.Protein, f.Kind)
	var me *dataset.MismatchError
	require.ErrorAs(t, f.Err, &me)
	assert.Equal(t, dataset.ColHSEUp, me.Column)

	entries := logs.FilterMessage("molecule skipped").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "1aaa_B", fields["complex"])
	assert.Equal(t, "protein", fields["molecule"])
}
