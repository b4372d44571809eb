// Package window cuts per-residue feature tables into fixed-width windows
// centred on each residue.
package window

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Width is the number of residues in a window: three either side of the
// centre.
const Width = 7

// MinLength is the shortest chain whose terminal windows stay inside the
// chain. A chain of six residues has no interior window.
const MinLength = 6

// ErrShortChain is returned for chains shorter than MinLength.
var ErrShortChain = errors.New("chain too short for windowing")

// Indices returns the residue positions, 0-indexed, making up the window
// of residue i in a chain of n residues. Interior windows are the
// contiguous run i-3..i+3. The three residues at each end borrow mirrored
// neighbours to keep the width at 7, following a fixed asymmetric rule.
func Indices(i, n int) []int {
	switch {
	case i == 0:
		return []int{3, 2, 1, 0, 1, 2, 3}
	case i == 1:
		return []int{1, 0, 0, 1, 2, 3, 4}
	case i == 2:
		return []int{1, 0, 1, 2, 3, 4, 5}
	case i == n-3:
		return []int{n - 6, n - 5, n - 4, n - 3, n - 2, n - 1, n - 2}
	case i == n-2:
		return []int{n - 5, n - 4, n - 3, n - 2, n - 1, n - 3, n - 4}
	case i == n-1:
		return []int{n - 4, n - 3, n - 2, n - 1, n - 2, n - 3, n - 4}
	}
	out := make([]int, Width)
	for k := range out {
		out[k] = i - 3 + k
	}
	return out
}

// Make returns one window per residue of features, whose rows are residues
// and columns are features. Each window is F × 7: one row per feature and
// one column per residue.
func Make(features mat.Matrix) ([]*mat.Dense, error) {
	n, f := features.Dims()
	if n < MinLength {
		return nil, ErrShortChain
	}

	windows := make([]*mat.Dense, n)
	for i := 0; i < n; i++ {
		w := mat.NewDense(f, Width, nil)
		for c, r := range Indices(i, n) {
			for j := 0; j < f; j++ {
				w.Set(j, c, features.At(r, j))
			}
		}
		windows[i] = w
	}
	return windows, nil
}
