// Package structuretest builds synthetic PDB coordinate files for tests.
package structuretest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var oneToThree = map[byte]string{
	'A': "ALA", 'R': "ARG", 'N': "ASN", 'D': "ASP", 'C': "CYS",
	'Q': "GLN", 'E': "GLU", 'G': "GLY", 'H': "HIS", 'I': "ILE",
	'L': "LEU", 'K': "LYS", 'M': "MET", 'F': "PHE", 'P': "PRO",
	'S': "SER", 'T': "THR", 'W': "TRP", 'Y': "TYR", 'V': "VAL",
	'X': "UNK",
}

// AtomLine formats a single fixed-column coordinate record.
func AtomLine(record string, serial int, name, resName, chain string, resSeq int, x, y, z float64) string {
	element := name[:1]
	return fmt.Sprintf("%-6s%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, serial, name, resName, chain, resSeq, x, y, z, 1.0, 0.0, element)
}

// Helix returns PDB text for an ideal alpha helix carrying the given
// one-letter sequence on chain, numbered from first. Each residue has
// N, CA, C and (except glycine) CB atoms; the origin of the helix axis is
// shifted along x by offset so several chains can share a file.
func Helix(chain, sequence string, first int, offset float64) string {
	var sb strings.Builder
	serial := 1
	for i := 0; i < len(sequence); i++ {
		resName, ok := oneToThree[sequence[i]]
		if !ok {
			resName = "UNK"
		}
		theta := float64(i) * 100 * math.Pi / 180
		ca := [3]float64{offset + 2.3*math.Cos(theta), 2.3 * math.Sin(theta), 1.5 * float64(i)}
		n := [3]float64{offset + 1.9*math.Cos(theta-0.45), 1.9 * math.Sin(theta-0.45), 1.5*float64(i) - 0.9}
		c := [3]float64{offset + 1.9*math.Cos(theta+0.45), 1.9 * math.Sin(theta+0.45), 1.5*float64(i) + 0.9}
		cb := [3]float64{offset + 3.8*math.Cos(theta), 3.8 * math.Sin(theta), 1.5 * float64(i)}

		atoms := []struct {
			name string
			pos  [3]float64
		}{{"N", n}, {"CA", ca}, {"C", c}}
		if sequence[i] != 'G' {
			atoms = append(atoms, struct {
				name string
				pos  [3]float64
			}{"CB", cb})
		}
		for _, a := range atoms {
			sb.WriteString(AtomLine("ATOM", serial, a.name, resName, chain, first+i, a.pos[0], a.pos[1], a.pos[2]))
			sb.WriteByte('\n')
			serial++
		}
	}
	sb.WriteString("TER\n")
	return sb.String()
}

// Water returns HETATM records for n water molecules on chain.
func Water(chain string, first, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(AtomLine("HETATM", 9000+i, "O", "HOH", chain, first+i, 20+float64(i), 20, 20))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
