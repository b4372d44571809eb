// Package pssm builds and parses position-specific scoring matrices.
package pssm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Alphabet is the amino-acid order of the score columns.
const Alphabet = "ARNDCQEGHILKMFPSTWYV"

// headerLines is the number of lines psiblast writes before the first
// position row of an ASCII PSSM.
const headerLines = 3

// ErrEmptyProfile is returned when a PSSM holds no position rows.
var ErrEmptyProfile = errors.New("empty profile")

// Profile is a parsed PSSM: one symbol and 20 scores per query position.
type Profile struct {
	Symbols []byte
	Scores  [][20]float64
}

// Len returns the number of positions in the profile.
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Scores)
}

// Complete reports whether the profile has exactly n positions and no
// missing score.
func (p *Profile) Complete(n int) bool {
	if p.Len() == 0 || p.Len() != n {
		return false
	}
	for _, row := range p.Scores {
		for _, v := range row {
			if math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}

// Matrix returns the scores as a 20 × Len matrix with one row per amino
// acid in Alphabet order and one column per position. It returns nil for
// an empty profile.
func (p *Profile) Matrix() *mat.Dense {
	if p.Len() == 0 {
		return nil
	}
	m := mat.NewDense(len(Alphabet), p.Len(), nil)
	for j, row := range p.Scores {
		for i, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

// Parse reads at most n position rows of an ASCII PSSM. Scores that are
// absent or not numeric are NaN.
func Parse(r io.Reader, n int) (*Profile, error) {
	p := &Profile{}
	lineNumber := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		lineNumber++
		if lineNumber <= headerLines {
			continue
		}
		if p.Len() >= n {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			// psiblast ends the position block with a blank line.
			break
		}

		var row [20]float64
		for i := range row {
			row[i] = math.NaN()
			if 2+i >= len(fields) {
				continue
			}
			if v, err := strconv.ParseFloat(fields[2+i], 64); err == nil {
				row[i] = v
			}
		}
		p.Symbols = append(p.Symbols, fields[1][0])
		p.Scores = append(p.Scores, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pssm: %w", err)
	}

	if p.Len() == 0 {
		return nil, ErrEmptyProfile
	}
	return p, nil
}

// ParseFile parses the PSSM at path.
func ParseFile(path string, n int) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pssm: %w", err)
	}
	defer f.Close()
	return Parse(f, n)
}
