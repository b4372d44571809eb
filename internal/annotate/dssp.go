package annotate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/peppi/internal/runner"
	"github.com/inodb/peppi/internal/structure"
)

// maxASA holds the maximal accessible surface areas (Sander & Rost 1994)
// used to turn DSSP's absolute ACC into relative accessibility.
var maxASA = map[byte]float64{
	'A': 106, 'R': 248, 'N': 157, 'D': 163, 'C': 135,
	'Q': 198, 'E': 194, 'G': 84, 'H': 184, 'I': 169,
	'L': 164, 'K': 205, 'M': 188, 'F': 197, 'P': 136,
	'S': 130, 'T': 142, 'W': 227, 'Y': 222, 'V': 142,
}

// DSSPRecord is one residue line of a classic DSSP file.
type DSSPRecord struct {
	Key structure.ResidueKey
	AA  byte
	SS  byte    // one of HBEGITS-
	ASA float64 // relative accessible surface area, NaN if unknown
	Phi float64
	Psi float64
}

// DSSP runs mkdssp and parses its classic output.
type DSSP struct {
	Exec    string
	TempDir string

	runner *runner.Runner
}

// NewDSSP creates a DSSP wrapper invoking exe through r.
func NewDSSP(exe string, r *runner.Runner) *DSSP {
	return &DSSP{Exec: exe, runner: r}
}

// Run assigns secondary structure and accessibility to the structure at path.
func (d *DSSP) Run(ctx context.Context, path string) ([]DSSPRecord, error) {
	scratch := runner.NewScratch(d.TempDir)
	defer scratch.Cleanup()

	out, err := scratch.Reserve("peppi-*.dssp")
	if err != nil {
		return nil, err
	}
	if err := d.runner.Run(ctx, d.Exec, "--output-format", "dssp", path, out); err != nil {
		return nil, err
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open dssp output: %w", err)
	}
	defer f.Close()
	return ParseDSSP(f)
}

// ParseDSSP reads residue records from classic fixed-column DSSP output.
// Chain break markers are skipped.
func ParseDSSP(r io.Reader) ([]DSSPRecord, error) {
	var records []DSSPRecord
	started := false
	lineNumber := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNumber++
		l := scanner.Text()
		if !started {
			started = strings.HasPrefix(l, "  #  RESIDUE")
			continue
		}
		if len(l) < 115 || l[13] == '!' {
			continue
		}

		seq, err := strconv.Atoi(strings.TrimSpace(l[5:10]))
		if err != nil {
			return nil, fmt.Errorf("dssp line %d: invalid residue number %q", lineNumber, l[5:10])
		}
		acc, err := strconv.ParseFloat(strings.TrimSpace(l[34:38]), 64)
		if err != nil {
			return nil, fmt.Errorf("dssp line %d: invalid accessibility %q", lineNumber, l[34:38])
		}
		phi, err := strconv.ParseFloat(strings.TrimSpace(l[103:109]), 64)
		if err != nil {
			return nil, fmt.Errorf("dssp line %d: invalid phi %q", lineNumber, l[103:109])
		}
		psi, err := strconv.ParseFloat(strings.TrimSpace(l[109:115]), 64)
		if err != nil {
			return nil, fmt.Errorf("dssp line %d: invalid psi %q", lineNumber, l[109:115])
		}

		aa := l[13]
		if aa >= 'a' && aa <= 'z' {
			// Lowercase letters pair up disulfide-bonded cysteines.
			aa = 'C'
		}
		ss := l[16]
		if ss == ' ' {
			ss = '-'
		}
		rel := math.NaN()
		if m, ok := maxASA[aa]; ok {
			rel = acc / m
		}

		records = append(records, DSSPRecord{
			Key: structure.ResidueKey{Chain: string(l[11]), Seq: seq, ICode: l[10]},
			AA:  aa,
			SS:  ss,
			ASA: rel,
			Phi: phi,
			Psi: psi,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dssp: %w", err)
	}
	if !started {
		return nil, fmt.Errorf("dssp output has no residue section")
	}
	return records, nil
}
