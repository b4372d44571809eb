// Package dataset holds the PepBDB corpus entries, the per-complex and
// per-molecule records enriched by the pipeline, and the per-residue
// tables built from them.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// entryFields is the number of whitespace-separated fields per corpus line.
const entryFields = 11

// Entry is one line of the PepBDB peptide list.
type Entry struct {
	PDBID         string
	PeptideChain  string
	PeptideLength int
	PeptideAtoms  int
	ProteinChain  string
	ProteinAtoms  int
	AtomContacts  int
	Unknown1      float64
	Unknown2      float64
	Resolution    float64
	MolecularType string
}

// ID identifies the complex as "{PDB ID}_{peptide chain}", the name of its
// directory in PepBDB.
func (e Entry) ID() string {
	return e.PDBID + "_" + e.PeptideChain
}

// PeptidePath returns the peptide structure path under the PepBDB root.
func (e Entry) PeptidePath(root string) string {
	return filepath.Join(root, e.ID(), "peptide.pdb")
}

// ProteinPath returns the receptor structure path under the PepBDB root.
func (e Entry) ProteinPath(root string) string {
	return filepath.Join(root, e.ID(), "receptor.pdb")
}

// ParseError represents an error in the peptide list with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("peptide list parse error at line %d: %s", e.Line, e.Message)
}

// ReadEntries reads the peptide list at path.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open peptide list: %w", err)
	}
	defer f.Close()
	return ParseEntries(f)
}

// ParseEntries reads peptide list entries from r. Blank lines and lines
// starting with '#' are skipped.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	lineNumber := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := parseEntry(line)
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Message: err.Error()}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read peptide list: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != entryFields {
		return Entry{}, fmt.Errorf("expected %d fields, found %d", entryFields, len(fields))
	}

	e := Entry{
		PDBID:         fields[0],
		PeptideChain:  fields[1],
		ProteinChain:  fields[4],
		MolecularType: fields[10],
	}

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"peptide length", fields[2], &e.PeptideLength},
		{"peptide atoms", fields[3], &e.PeptideAtoms},
		{"protein atoms", fields[5], &e.ProteinAtoms},
		{"atom contacts", fields[6], &e.AtomContacts},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(f.raw)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid %s: %s", f.name, f.raw)
		}
		*f.dst = v
	}

	floats := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"unknown1", fields[7], &e.Unknown1},
		{"unknown2", fields[8], &e.Unknown2},
		{"resolution", fields[9], &e.Resolution},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid %s: %s", f.name, f.raw)
		}
		*f.dst = v
	}

	return e, nil
}
