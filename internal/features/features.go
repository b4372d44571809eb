// Package features turns raw structural annotations into per-residue
// feature series aligned to a molecule's sequence.
package features

import (
	"fmt"
	"math"
)

// SSAlphabet is the secondary-structure alphabet in one-hot column order.
// '-' marks residues without an assignment.
const SSAlphabet = "HBEGITS-"

// UnknownSymbolError is returned when a secondary-structure series contains
// a symbol outside SSAlphabet.
type UnknownSymbolError struct {
	Symbol   byte
	Position int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown secondary structure symbol %q at position %d", e.Symbol, e.Position+1)
}

// OneHot encodes ss into one indicator series per SSAlphabet symbol. Every
// position carries exactly one 1 across the eight series.
func OneHot(ss []byte) ([8][]float64, error) {
	var out [8][]float64
	for k := range out {
		out[k] = make([]float64, len(ss))
	}
	for i, s := range ss {
		k := symbolIndex(s)
		if k < 0 {
			return [8][]float64{}, &UnknownSymbolError{Symbol: s, Position: i}
		}
		out[k][i] = 1
	}
	return out, nil
}

func symbolIndex(s byte) int {
	for k := 0; k < len(SSAlphabet); k++ {
		if SSAlphabet[k] == s {
			return k
		}
	}
	return -1
}

// Extend returns series with a copy of its first value prepended and a
// copy of its last value appended, whatever those values are. An empty
// series becomes two missing values.
func Extend(series []float64) []float64 {
	if len(series) == 0 {
		return []float64{math.NaN(), math.NaN()}
	}
	out := make([]float64, 0, len(series)+2)
	out = append(out, series[0])
	out = append(out, series...)
	return append(out, series[len(series)-1])
}
