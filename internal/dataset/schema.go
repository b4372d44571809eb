package dataset

import (
	"github.com/inodb/peppi/internal/aaindex"
	"github.com/inodb/peppi/internal/features"
	"github.com/inodb/peppi/internal/pssm"
)

// Column names outside the feature block.
const (
	ColResidue = "AA"
	ColBinding = "Binding Indices"
	ColPSSM    = "PSSM" // names the profile block as a whole in errors
)

// Structural feature column names, in table order.
const (
	ColHSEUp       = "HSE Up"
	ColHSEDown     = "HSE Down"
	ColPseudoAngle = "Pseudo Angles"
	ColASA         = "ASA"
	ColPhi         = "Phi"
	ColPsi         = "Psi"
)

// FeatureColumns returns the names of the numeric feature columns in table
// order: the AAindex properties, the structural series, the secondary
// structure indicators and the 20 profile scores.
func FeatureColumns() []string {
	cols := make([]string, 0, 41)
	for _, p := range aaindex.Properties {
		cols = append(cols, p.Name)
	}
	cols = append(cols, ColHSEUp, ColHSEDown, ColPseudoAngle, ColASA, ColPhi, ColPsi)
	for i := 0; i < len(features.SSAlphabet); i++ {
		cols = append(cols, "SS "+features.SSAlphabet[i:i+1])
	}
	for i := 0; i < len(pssm.Alphabet); i++ {
		cols = append(cols, pssm.Alphabet[i:i+1])
	}
	return cols
}

// Schema returns every column of a per-residue table: the residue letter,
// the feature columns and the binding indicator.
func Schema() []string {
	cols := []string{ColResidue}
	cols = append(cols, FeatureColumns()...)
	return append(cols, ColBinding)
}
