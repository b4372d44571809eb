package dataset

import (
	"fmt"
	"os"
	"strings"
)

// FilterOptions selects the complexes worth processing.
type FilterOptions struct {
	MaxResolution        float64 // entries at or above this resolution are dropped
	MinPeptideLength     int
	ExcludeMolecularType string
}

// DefaultFilterOptions returns the thresholds used to build the published
// dataset.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		MaxResolution:        2.5,
		MinPeptideLength:     10,
		ExcludeMolecularType: "prot-nuc",
	}
}

// Filter drops nucleic-acid complexes, low-resolution structures and short
// peptides. Input order is preserved.
func Filter(entries []Entry, opts FilterOptions) []Entry {
	var out []Entry
	for _, e := range entries {
		if opts.ExcludeMolecularType != "" && e.MolecularType == opts.ExcludeMolecularType {
			continue
		}
		if opts.MaxResolution > 0 && e.Resolution >= opts.MaxResolution {
			continue
		}
		if e.PeptideLength < opts.MinPeptideLength {
			continue
		}
		out = append(out, e)
	}
	return out
}

// LocalIDs returns the PDB IDs present under root, taken from the first
// four characters of each complex directory name.
func LocalIDs(root string) (map[string]bool, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list pepbdb directory: %w", err)
	}
	ids := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		if !d.IsDir() || len(d.Name()) < 4 {
			continue
		}
		ids[d.Name()[:4]] = true
	}
	return ids, nil
}

// FilterLocal keeps the entries whose PDB ID is in ids.
func FilterLocal(entries []Entry, ids map[string]bool) []Entry {
	var out []Entry
	for _, e := range entries {
		if ids[e.PDBID] {
			out = append(out, e)
		}
	}
	return out
}

// nonStandardLetters are one-letter codes outside the twenty standard
// amino acids that disqualify a sequence.
const nonStandardLetters = "UOBZJX*"

// HasNonStandard reports whether seq contains a non-standard residue code.
func HasNonStandard(seq string) bool {
	return strings.ContainsAny(seq, nonStandardLetters)
}

// FilterSequences drops complexes with a non-standard residue in either
// sequence, then drops complexes whose (peptide, protein) sequence pair has
// already been seen. The first occurrence is kept.
func FilterSequences(complexes []*Complex) []*Complex {
	type pair struct{ peptide, protein string }
	seen := make(map[pair]bool, len(complexes))

	var out []*Complex
	for _, c := range complexes {
		pep, pro := c.Peptide.Sequence, c.Protein.Sequence
		if HasNonStandard(pep) || HasNonStandard(pro) {
			continue
		}
		k := pair{pep, pro}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
