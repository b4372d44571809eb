// Package structure provides PDB coordinate file parsing and sequence extraction.
package structure

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom is a single ATOM or HETATM record.
type Atom struct {
	Name    string
	Element string
	Coord   r3.Vec
}

// Residue groups the atoms sharing a residue identifier within a chain.
type Residue struct {
	Name   string
	Seq    int
	ICode  byte
	Hetero bool
	Atoms  []*Atom
}

// Atom returns the atom with the given name.
func (r *Residue) Atom(name string) (*Atom, bool) {
	for _, a := range r.Atoms {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Chain is an ordered list of residues sharing a chain identifier.
type Chain struct {
	ID       string
	Residues []*Residue

	index map[residueID]*Residue
}

// Model is one MODEL block of a PDB file. Files without MODEL records
// have a single implicit model.
type Model struct {
	Serial int
	Chains []*Chain
}

// Chain returns the chain with the given identifier.
func (m *Model) Chain(id string) (*Chain, bool) {
	for _, c := range m.Chains {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Structure is the model → chain → residue → atom hierarchy of a PDB file.
type Structure struct {
	Path   string
	Models []*Model
}

// ResidueKey identifies a residue independently of its ordinal position.
// Model is the 0-based model index within the structure.
type ResidueKey struct {
	Model int
	Chain string
	Seq   int
	ICode byte
}

func (k ResidueKey) String() string {
	s := fmt.Sprintf("%d/%s/%d", k.Model, k.Chain, k.Seq)
	if k.ICode != ' ' && k.ICode != 0 {
		s += string(k.ICode)
	}
	return s
}

// residueID mirrors the (hetero field, sequence number, insertion code)
// triple PDB uses to distinguish residues within a chain.
type residueID struct {
	het   string
	seq   int
	icode byte
}

// ParseError reports a malformed coordinate record.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pdb parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
}

// ReadFile parses the PDB file at path. Files ending in ".gz" are
// decompressed transparently.
func ReadFile(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdb file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	s, err := parse(r, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Parse reads a PDB structure from r.
func Parse(r io.Reader) (*Structure, error) {
	return parse(r, "<reader>")
}

func parse(r io.Reader, path string) (*Structure, error) {
	s := &Structure{Path: path}
	var model *Model
	lineNumber := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if len(line) < 6 {
			continue
		}

		switch strings.TrimSpace(line[0:6]) {
		case "MODEL":
			serial, _ := strconv.Atoi(strings.TrimSpace(safeSlice(line, 6, 14)))
			model = &Model{Serial: serial}
			s.Models = append(s.Models, model)
		case "ENDMDL":
			model = nil
		case "ATOM", "HETATM":
			if model == nil {
				// Records outside MODEL/ENDMDL belong to the first model.
				if len(s.Models) == 0 {
					s.Models = append(s.Models, &Model{Serial: 1})
				}
				model = s.Models[len(s.Models)-1]
			}
			if err := parseAtom(model, line); err != nil {
				return nil, &ParseError{Path: path, Line: lineNumber, Message: err.Error()}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pdb: %w", err)
	}

	if len(s.Models) == 0 {
		return nil, &ParseError{Path: path, Line: lineNumber, Message: "no coordinate records found"}
	}
	return s, nil
}

func parseAtom(m *Model, line string) error {
	if len(line) < 54 {
		return fmt.Errorf("coordinate record too short (%d columns)", len(line))
	}

	// Keep only the first alternate location of disordered atoms.
	if alt := line[16]; alt != ' ' && alt != 'A' && alt != '1' {
		return nil
	}

	seq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
	if err != nil {
		return fmt.Errorf("invalid residue sequence number %q", line[22:26])
	}

	var coord r3.Vec
	for i, field := range []string{line[30:38], line[38:46], line[46:54]} {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", field)
		}
		switch i {
		case 0:
			coord.X = v
		case 1:
			coord.Y = v
		case 2:
			coord.Z = v
		}
	}

	resName := strings.TrimSpace(line[17:20])
	hetero := strings.HasPrefix(line, "HETATM")
	id := residueID{seq: seq, icode: line[26]}
	switch {
	case IsWater(resName):
		id.het = "W"
	case hetero:
		id.het = "H_" + resName
	}

	chain := m.chain(line[21:22])
	res, ok := chain.index[id]
	if !ok {
		res = &Residue{Name: resName, Seq: seq, ICode: line[26], Hetero: hetero}
		chain.index[id] = res
		chain.Residues = append(chain.Residues, res)
	}

	res.Atoms = append(res.Atoms, &Atom{
		Name:    strings.TrimSpace(line[12:16]),
		Element: strings.TrimSpace(safeSlice(line, 76, 78)),
		Coord:   coord,
	})
	return nil
}

func (m *Model) chain(id string) *Chain {
	if c, ok := m.Chain(id); ok {
		return c
	}
	c := &Chain{ID: id, index: make(map[residueID]*Residue)}
	m.Chains = append(m.Chains, c)
	return c
}

func safeSlice(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}
