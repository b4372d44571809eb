// Package aaindex provides physicochemical amino acid property scales from
// the AAindex1 database and maps sequences onto them.
package aaindex

import "fmt"

// Property is a named amino acid scale covering the 20 standard residues.
type Property struct {
	Name      string // column name, e.g. "Hydrophobicity"
	Accession string // AAindex1 accession, e.g. "KYTJ820101"
	Values    map[byte]float64
}

// Scales in ARNDCQEGHILKMFPSTWYV order, as published in AAindex1.
var (
	Hydrophobicity = newProperty("Hydrophobicity", "KYTJ820101", [20]float64{
		1.8, -4.5, -3.5, -3.5, 2.5, -3.5, -3.5, -0.4, -3.2, 4.5,
		3.8, -3.9, 1.9, 2.8, -1.6, -0.8, -0.7, -0.9, -1.3, 4.2,
	})
	StericParameter = newProperty("Steric Parameter", "CHAM810101", [20]float64{
		0.52, 0.68, 0.76, 0.76, 0.62, 0.68, 0.68, 0.00, 0.70, 1.02,
		0.98, 0.68, 0.78, 0.70, 0.36, 0.53, 0.50, 0.70, 0.70, 0.76,
	})
	Volume = newProperty("Volume", "BIGC670101", [20]float64{
		52.6, 109.1, 75.7, 68.4, 68.3, 89.7, 84.7, 36.3, 91.9, 102.0,
		102.0, 105.1, 97.7, 113.9, 73.6, 54.9, 71.2, 135.4, 116.2, 85.1,
	})
	Polarizability = newProperty("Polarizability", "CHAM820101", [20]float64{
		0.046, 0.291, 0.134, 0.105, 0.128, 0.180, 0.151, 0.000, 0.230, 0.186,
		0.186, 0.219, 0.221, 0.290, 0.131, 0.062, 0.108, 0.409, 0.298, 0.140,
	})
	HelixProbability = newProperty("Helix Probability", "KANM800101", [20]float64{
		1.36, 1.00, 0.89, 1.04, 0.82, 1.14, 1.48, 0.63, 1.11, 1.08,
		1.21, 1.22, 1.45, 1.05, 0.52, 0.74, 0.81, 0.97, 0.79, 0.94,
	})
	BetaProbability = newProperty("Beta Probability", "KANM800102", [20]float64{
		0.81, 0.85, 0.62, 0.71, 1.17, 0.98, 0.53, 0.88, 0.92, 1.48,
		1.24, 0.77, 1.05, 1.20, 0.61, 0.92, 1.18, 1.18, 1.23, 1.66,
	})
	IsoelectricPoint = newProperty("Isoelectric Point", "ZIMJ680104", [20]float64{
		6.00, 10.76, 5.41, 2.77, 5.05, 5.65, 3.22, 5.97, 7.59, 6.02,
		5.98, 9.74, 5.74, 5.48, 6.30, 5.68, 5.66, 5.89, 5.66, 5.96,
	})
)

// Properties is the ordered list of scales attached to every molecule.
var Properties = []*Property{
	Hydrophobicity,
	StericParameter,
	Volume,
	Polarizability,
	HelixProbability,
	BetaProbability,
	IsoelectricPoint,
}

const alphabet = "ARNDCQEGHILKMFPSTWYV"

func newProperty(name, accession string, values [20]float64) *Property {
	p := &Property{Name: name, Accession: accession, Values: make(map[byte]float64, len(alphabet))}
	for i := 0; i < len(alphabet); i++ {
		p.Values[alphabet[i]] = values[i]
	}
	return p
}

// UnknownResidueError is returned when a sequence contains a letter the
// property scale has no value for (e.g. 'X').
type UnknownResidueError struct {
	Property string
	Residue  byte
	Position int // 0-based
}

func (e *UnknownResidueError) Error() string {
	return fmt.Sprintf("%s: no value for residue %q at position %d", e.Property, e.Residue, e.Position+1)
}

// FeatureVector maps each residue of seq to its value on the property scale.
func FeatureVector(seq string, p *Property) ([]float64, error) {
	out := make([]float64, len(seq))
	for i := 0; i < len(seq); i++ {
		v, ok := p.Values[seq[i]]
		if !ok {
			return nil, &UnknownResidueError{Property: p.Name, Residue: seq[i], Position: i}
		}
		out[i] = v
	}
	return out, nil
}
