package dataset

import (
	"fmt"
	"strings"

	"github.com/inodb/peppi/internal/pssm"
	"github.com/inodb/peppi/internal/structure"
)

// Kind tells the two molecules of a complex apart.
type Kind int

const (
	Peptide Kind = iota + 1
	Protein
)

func (k Kind) String() string {
	switch k {
	case Peptide:
		return "peptide"
	case Protein:
		return "protein"
	default:
		return "complex"
	}
}

// Molecule is the enriched feature bundle of one molecule of a complex.
// A nil series means the producing stage failed for this molecule.
type Molecule struct {
	Kind    Kind
	Complex string // complex ID, see Entry.ID
	Path    string
	Chain   string
	Atoms   int

	Sequence string
	Keys     []structure.ResidueKey

	// BindingIndices holds unique ascending 1-indexed positions of
	// residues in contact with the partner molecule.
	BindingIndices []int

	// Properties holds one AAindex series per aaindex.Properties entry.
	Properties [][]float64

	HSEUp       []float64
	HSEDown     []float64
	PseudoAngle []float64
	SS          []byte
	ASA         []float64
	Phi         []float64
	Psi         []float64
	SSOneHot    [8][]float64

	PSSM *pssm.Profile

	// Status is shared with the owning complex.
	Status *Status
}

// Len returns the sequence length.
func (m *Molecule) Len() int {
	return len(m.Sequence)
}

// Complex is one peptide–protein complex flowing through the pipeline.
type Complex struct {
	Entry   Entry
	Peptide *Molecule
	Protein *Molecule
	Status  *Status
}

// NewComplex creates the record of e with empty molecules whose paths are
// resolved under the PepBDB root.
func NewComplex(e Entry, root string) *Complex {
	st := &Status{}
	return &Complex{
		Entry: e,
		Peptide: &Molecule{
			Kind:    Peptide,
			Complex: e.ID(),
			Path:    e.PeptidePath(root),
			Chain:   e.PeptideChain,
			Atoms:   e.PeptideAtoms,
			Status:  st,
		},
		Protein: &Molecule{
			Kind:    Protein,
			Complex: e.ID(),
			Path:    e.ProteinPath(root),
			Chain:   e.ProteinChain,
			Atoms:   e.ProteinAtoms,
			Status:  st,
		},
		Status: st,
	}
}

// Molecules returns the peptide and protein records.
func (c *Complex) Molecules() []*Molecule {
	return []*Molecule{c.Peptide, c.Protein}
}

// Stage names a pipeline step that can fail for a single complex.
type Stage string

const (
	StageSequence   Stage = "sequence"
	StageContacts   Stage = "contacts"
	StageProperties Stage = "properties"
	StageAnnotation Stage = "annotation"
	StageProfile    Stage = "profile"
	StageTable      Stage = "table"
)

// Failure records one stage failure. A zero Kind means the whole complex
// is affected.
type Failure struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %s: %v", f.Stage, f.Kind, f.Err)
}

// Status collects the failures of one complex. The zero value is a
// complex without failures.
type Status struct {
	Failures []Failure
}

// Fail records err for stage. Use a zero kind for failures that affect
// both molecules.
func (s *Status) Fail(stage Stage, kind Kind, err error) {
	s.Failures = append(s.Failures, Failure{Stage: stage, Kind: kind, Err: err})
}

// OK reports whether no stage failed.
func (s *Status) OK() bool {
	return s == nil || len(s.Failures) == 0
}

// Failed reports whether a failure affects molecules of kind k.
func (s *Status) Failed(k Kind) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Failures {
		if f.Kind == 0 || f.Kind == k {
			return true
		}
	}
	return false
}

// String joins the recorded failures.
func (s *Status) String() string {
	if s.OK() {
		return "ok"
	}
	parts := make([]string, len(s.Failures))
	for i, f := range s.Failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
