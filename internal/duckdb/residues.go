package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/peppi/internal/dataset"
)

// appendRows opens an appender on table, calls fill with it and flushes.
func (s *Store) appendRows(table string, fill func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// WriteRows batch-inserts corpus rows into the residues table using the
// Appender API.
func (s *Store) WriteRows(rows []dataset.Row) error {
	if len(rows) == 0 {
		return nil
	}
	width := len(dataset.FeatureColumns())

	return s.appendRows("residues", func(a *goduckdb.Appender) error {
		values := make([]driver.Value, 0, width+5)
		for _, r := range rows {
			if len(r.Features) != width {
				return fmt.Errorf("row %s %s %d has %d features, want %d",
					r.Complex, r.Molecule, r.Position, len(r.Features), width)
			}
			values = values[:0]
			values = append(values, r.Complex, r.Molecule.String(), int32(r.Position), string(r.Residue))
			for _, v := range r.Features {
				values = append(values, v)
			}
			values = append(values, int32(r.Binding))

			if err := a.AppendRow(values...); err != nil {
				return fmt.Errorf("append residue: %w", err)
			}
		}
		return nil
	})
}

// ClearRows removes all residues and complex statuses so that a rebuild
// replaces the previous dataset. Recorded runs are kept.
func (s *Store) ClearRows() error {
	for _, table := range []string{"residues", "complex_status"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// ResidueCount returns the number of stored residues.
func (s *Store) ResidueCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM residues").Scan(&n); err != nil {
		return 0, fmt.Errorf("count residues: %w", err)
	}
	return n, nil
}

// BindingCount returns the number of stored residues of molecule kind k
// labelled as binding.
func (s *Store) BindingCount(k dataset.Kind) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT count(*) FROM residues WHERE molecule = ? AND %s = 1", quote(dataset.ColBinding))
	if err := s.db.QueryRow(q, k.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count binding residues: %w", err)
	}
	return n, nil
}

// MoleculeResidues returns the residue letters stored for one molecule, in
// sequence order.
func (s *Store) MoleculeResidues(complexID string, k dataset.Kind) (string, error) {
	rows, err := s.db.Query(
		fmt.Sprintf("SELECT %s FROM residues WHERE complex = ? AND molecule = ? ORDER BY position", quote(dataset.ColResidue)),
		complexID, k.String())
	if err != nil {
		return "", fmt.Errorf("query residues: %w", err)
	}
	defer rows.Close()

	var seq []byte
	for rows.Next() {
		var aa string
		if err := rows.Scan(&aa); err != nil {
			return "", fmt.Errorf("scan residue: %w", err)
		}
		seq = append(seq, aa...)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate residues: %w", err)
	}
	return string(seq), nil
}
