package structure

import "strings"

// threeToOne maps the 20 standard amino acid residue names to their
// single-letter codes.
var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

// StandardAminoAcids lists the 20 standard single-letter codes.
const StandardAminoAcids = "ARNDCQEGHILKMFPSTWYV"

// Unknown is the letter used for unresolved or non-standard residues.
const Unknown = 'X'

// ThreeToOne converts a 3-letter residue name to its single-letter code.
// UNK and every name outside the standard 20 map to 'X'.
func ThreeToOne(name string) byte {
	if aa, ok := threeToOne[strings.ToUpper(name)]; ok {
		return aa
	}
	return Unknown
}

// IsStandard reports whether name is one of the 20 standard residues.
func IsStandard(name string) bool {
	_, ok := threeToOne[strings.ToUpper(name)]
	return ok
}

// IsWater reports whether name denotes a water molecule.
func IsWater(name string) bool {
	switch strings.ToUpper(name) {
	case "HOH", "WAT", "DOD", "H2O":
		return true
	}
	return false
}

// Sequence is a one-letter sequence together with the key of the residue
// each letter was read from.
type Sequence struct {
	Letters string
	Keys    []ResidueKey
}

// Len returns the number of residues in the sequence.
func (s Sequence) Len() int {
	return len(s.Letters)
}

// ExtractSequence walks every model, chain and residue of s in file order
// and returns the one-letter sequence. Water residues contribute nothing.
func ExtractSequence(s *Structure) Sequence {
	var sb strings.Builder
	var keys []ResidueKey

	for mi, m := range s.Models {
		for _, c := range m.Chains {
			for _, r := range c.Residues {
				if IsWater(r.Name) {
					continue
				}
				sb.WriteByte(ThreeToOne(r.Name))
				keys = append(keys, ResidueKey{Model: mi, Chain: c.ID, Seq: r.Seq, ICode: r.ICode})
			}
		}
	}

	return Sequence{Letters: sb.String(), Keys: keys}
}

// ExtractSequenceFile reads the PDB file at path and extracts its sequence.
func ExtractSequenceFile(path string) (Sequence, error) {
	s, err := ReadFile(path)
	if err != nil {
		return Sequence{}, err
	}
	return ExtractSequence(s), nil
}
