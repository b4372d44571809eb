package features

import (
	"math"

	"github.com/inodb/peppi/internal/structure"
)

// AlignByKey places values, reported for gotKeys, on the positions of keys.
// Positions without a reported value are NaN. The second return value
// counts reported keys that do not occur in keys.
func AlignByKey(keys, gotKeys []structure.ResidueKey, values []float64) ([]float64, int) {
	pos := make(map[structure.ResidueKey]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}

	out := make([]float64, len(keys))
	for i := range out {
		out[i] = math.NaN()
	}

	unmatched := 0
	for i, k := range gotKeys {
		if i >= len(values) {
			break
		}
		p, ok := pos[k]
		if !ok {
			unmatched++
			continue
		}
		out[p] = values[i]
	}
	return out, unmatched
}

// AlignSymbolsByKey is AlignByKey for symbol series. Positions without a
// reported symbol are 0.
func AlignSymbolsByKey(keys, gotKeys []structure.ResidueKey, symbols []byte) ([]byte, int) {
	pos := make(map[structure.ResidueKey]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}

	out := make([]byte, len(keys))
	unmatched := 0
	for i, k := range gotKeys {
		if i >= len(symbols) {
			break
		}
		p, ok := pos[k]
		if !ok {
			unmatched++
			continue
		}
		out[p] = symbols[i]
	}
	return out, unmatched
}

// Missing returns the positions of keys that have no entry in gotKeys.
func Missing(keys, gotKeys []structure.ResidueKey) []int {
	seen := make(map[structure.ResidueKey]bool, len(gotKeys))
	for _, k := range gotKeys {
		seen[k] = true
	}
	var out []int
	for i, k := range keys {
		if !seen[k] {
			out = append(out, i)
		}
	}
	return out
}

// ExtendChainTerminals places values reported for gotKeys on keys, like
// AlignByKey, then fills the unreported residues at both ends of every
// chain (run of keys sharing model and chain) with the value of the
// nearest reported residue of that chain. The copied value may itself be
// NaN. Unreported residues between two reported ones stay NaN, as does a
// chain without any reported residue.
func ExtendChainTerminals(keys, gotKeys []structure.ResidueKey, values []float64) []float64 {
	out, _ := AlignByKey(keys, gotKeys, values)

	reported := make(map[structure.ResidueKey]bool, len(gotKeys))
	for i, k := range gotKeys {
		if i < len(values) {
			reported[k] = true
		}
	}

	start := 0
	for end := 1; end <= len(keys); end++ {
		if end < len(keys) && keys[end].Model == keys[start].Model && keys[end].Chain == keys[start].Chain {
			continue
		}
		first, last := -1, -1
		for i := start; i < end; i++ {
			if reported[keys[i]] {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first >= 0 {
			for i := start; i < first; i++ {
				out[i] = out[first]
			}
			for i := last + 1; i < end; i++ {
				out[i] = out[last]
			}
		}
		start = end
	}
	return out
}
