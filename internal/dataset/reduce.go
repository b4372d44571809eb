package dataset

// Reduce flattens complexes into one molecule list: every peptide in input
// order, followed by every protein in input order.
func Reduce(complexes []*Complex) []*Molecule {
	out := make([]*Molecule, 0, 2*len(complexes))
	for _, c := range complexes {
		if c.Peptide != nil {
			out = append(out, c.Peptide)
		}
	}
	for _, c := range complexes {
		if c.Protein != nil {
			out = append(out, c.Protein)
		}
	}
	return out
}

// GateStats counts the molecules removed by Gate.
type GateStats struct {
	Failed            int // a stage failed for the molecule or its complex
	IncompleteProfile int // empty profile, wrong length or missing scores
}

// Dropped returns the total number of removed molecules.
func (s GateStats) Dropped() int {
	return s.Failed + s.IncompleteProfile
}

// Gate keeps the molecules that can be tabularized: no recorded failure for
// the molecule or its complex, and a complete profile covering every
// residue.
func Gate(molecules []*Molecule) ([]*Molecule, GateStats) {
	var stats GateStats
	var out []*Molecule
	for _, m := range molecules {
		switch {
		case m.Status.Failed(m.Kind):
			stats.Failed++
		case !m.PSSM.Complete(m.Len()):
			stats.IncompleteProfile++
		default:
			out = append(out, m)
		}
	}
	return out, stats
}
