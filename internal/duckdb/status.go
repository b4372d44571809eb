package duckdb

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/peppi/internal/dataset"
)

// WriteStatuses records the processing outcome of every complex.
// Complexes already present are skipped.
func (s *Store) WriteStatuses(complexes []*dataset.Complex) error {
	if len(complexes) == 0 {
		return nil
	}

	existing, err := s.statusIDs()
	if err != nil {
		return err
	}

	return s.appendRows("complex_status", func(a *goduckdb.Appender) error {
		for _, c := range complexes {
			id := c.Entry.ID()
			if existing[id] {
				continue
			}
			existing[id] = true

			if err := a.AppendRow(
				id, c.Entry.PDBID, c.Entry.PeptideChain, c.Entry.ProteinChain,
				c.Entry.Resolution, c.Status.OK(), c.Status.String(),
			); err != nil {
				return fmt.Errorf("append status: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) statusIDs() (map[string]bool, error) {
	rows, err := s.db.Query("SELECT complex FROM complex_status")
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ComplexFailure is one complex whose processing failed.
type ComplexFailure struct {
	Complex  string
	Failures string
}

// FailedComplexes returns the complexes with at least one failed stage,
// ordered by complex ID.
func (s *Store) FailedComplexes() ([]ComplexFailure, error) {
	rows, err := s.db.Query("SELECT complex, failures FROM complex_status WHERE NOT ok ORDER BY complex")
	if err != nil {
		return nil, fmt.Errorf("query failed complexes: %w", err)
	}
	defer rows.Close()

	var out []ComplexFailure
	for rows.Next() {
		var f ComplexFailure
		if err := rows.Scan(&f.Complex, &f.Failures); err != nil {
			return nil, fmt.Errorf("scan failed complex: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed complexes: %w", err)
	}
	return out, nil
}
