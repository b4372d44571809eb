// Package output provides corpus output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/peppi/internal/dataset"
)

// CSVWriter writes corpus rows in comma-delimited format, one row per
// residue, with dataset.Schema as header.
type CSVWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewCSVWriter creates a new comma-delimited writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		w:       bufio.NewWriter(w),
		columns: dataset.Schema(),
	}
}

// WriteHeader writes the header line.
func (cw *CSVWriter) WriteHeader() error {
	_, err := cw.w.WriteString(strings.Join(cw.columns, ",") + "\n")
	return err
}

// Write writes a single residue row.
func (cw *CSVWriter) Write(r dataset.Row) error {
	if got, want := len(r.Features)+2, len(cw.columns); got != want {
		return fmt.Errorf("row %s %s %d has %d columns, header has %d", r.Complex, r.Molecule, r.Position, got, want)
	}

	values := make([]string, 0, len(cw.columns))
	values = append(values, string(r.Residue))
	for _, v := range r.Features {
		values = append(values, strconv.FormatFloat(v, 'g', -1, 64))
	}
	values = append(values, strconv.Itoa(r.Binding))

	_, err := cw.w.WriteString(strings.Join(values, ",") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	return cw.w.Flush()
}

// WriteCSVFile writes the header and rows to path.
func WriteCSVFile(path string, rows []dataset.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	w := NewCSVWriter(f)
	if err := w.WriteHeader(); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}
