// Package contacts labels interface residues of a peptide–protein complex
// using the PRODIGY contact list.
package contacts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/peppi/internal/structure"
)

// ErrMissingOutput is returned when the contact tool produced no contact list.
var ErrMissingOutput = errors.New("contact list not found")

// ResidueRef is a residue as named by the contact tool.
type ResidueRef struct {
	Name  string
	Seq   int
	Chain string
}

// Contact is one line of a PRODIGY .ic file: a peptide residue and a
// protein residue within contact distance.
type Contact struct {
	Peptide ResidueRef
	Protein ResidueRef
}

// Binding holds the interface residues found on each molecule.
type Binding struct {
	// Peptide and Protein are the unique residue numbers, ascending.
	Peptide []int
	Protein []int

	Contacts []Contact
}

// ParseError reports a malformed contact line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("contact list parse error at line %d: %s", e.Line, e.Message)
}

// ParseContacts reads a whitespace-delimited contact list with the columns
// peptide residue, peptide index, peptide chain, protein residue, protein
// index, protein chain.
func ParseContacts(r io.Reader) (Binding, error) {
	var b Binding
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 6 {
			return Binding{}, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected 6 columns, found %d", len(fields)),
			}
		}

		pepSeq, err := strconv.Atoi(fields[1])
		if err != nil {
			return Binding{}, &ParseError{Line: lineNumber, Message: fmt.Sprintf("invalid peptide index: %s", fields[1])}
		}
		proSeq, err := strconv.Atoi(fields[4])
		if err != nil {
			return Binding{}, &ParseError{Line: lineNumber, Message: fmt.Sprintf("invalid protein index: %s", fields[4])}
		}

		b.Contacts = append(b.Contacts, Contact{
			Peptide: ResidueRef{Name: fields[0], Seq: pepSeq, Chain: fields[2]},
			Protein: ResidueRef{Name: fields[3], Seq: proSeq, Chain: fields[5]},
		})
	}
	if err := scanner.Err(); err != nil {
		return Binding{}, fmt.Errorf("read contact list: %w", err)
	}

	b.Peptide = uniqueSorted(b.Contacts, func(c Contact) int { return c.Peptide.Seq })
	b.Protein = uniqueSorted(b.Contacts, func(c Contact) int { return c.Protein.Seq })
	return b, nil
}

// ParseContactsFile reads the contact list at path.
func ParseContactsFile(path string) (Binding, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Binding{}, fmt.Errorf("%s: %w", path, ErrMissingOutput)
		}
		return Binding{}, fmt.Errorf("open contact list: %w", err)
	}
	defer f.Close()
	return ParseContacts(f)
}

// PeptidePositions maps the peptide-side contacts onto 1-indexed positions
// of a sequence with the given residue keys.
func (b Binding) PeptidePositions(keys []structure.ResidueKey) (positions []int, unmatched int) {
	return positions1(b.Contacts, keys, func(c Contact) ResidueRef { return c.Peptide })
}

// ProteinPositions maps the protein-side contacts onto 1-indexed positions
// of a sequence with the given residue keys.
func (b Binding) ProteinPositions(keys []structure.ResidueKey) (positions []int, unmatched int) {
	return positions1(b.Contacts, keys, func(c Contact) ResidueRef { return c.Protein })
}

type chainSeq struct {
	chain string
	seq   int
}

func positions1(contacts []Contact, keys []structure.ResidueKey, side func(Contact) ResidueRef) ([]int, int) {
	index := make(map[chainSeq]int, len(keys))
	for i, k := range keys {
		if k.Model != 0 {
			continue
		}
		cs := chainSeq{k.Chain, k.Seq}
		if _, ok := index[cs]; !ok {
			index[cs] = i + 1
		}
	}

	seen := make(map[int]bool)
	missing := make(map[chainSeq]bool)
	var positions []int
	for _, c := range contacts {
		ref := side(c)
		cs := chainSeq{ref.Chain, ref.Seq}
		pos, ok := index[cs]
		if !ok {
			missing[cs] = true
			continue
		}
		if !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}
	sort.Ints(positions)
	return positions, len(missing)
}

func uniqueSorted(contacts []Contact, key func(Contact) int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range contacts {
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}
