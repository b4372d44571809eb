package duckdb

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run is one recorded build.
type Run struct {
	PeptideList FileFingerprint
	Residues    int
	FinishedAt  time.Time
}

// RecordRun stores the peptide list a build read and the number of
// residues it produced.
func (s *Store) RecordRun(list FileFingerprint, residues int) error {
	_, err := s.db.Exec("INSERT INTO runs VALUES (?, ?, ?, ?, ?)",
		list.Path, list.Size, list.ModTime.UTC().Truncate(time.Microsecond), residues, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent recorded build. ok is false when no
// build has been recorded.
func (s *Store) LastRun() (run Run, ok bool, err error) {
	rows, err := s.db.Query(`SELECT peptide_list, peptide_list_size, peptide_list_mod_time, residues, finished_at
		FROM runs ORDER BY finished_at DESC LIMIT 1`)
	if err != nil {
		return Run{}, false, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Run{}, false, rows.Err()
	}
	if err := rows.Scan(&run.PeptideList.Path, &run.PeptideList.Size, &run.PeptideList.ModTime, &run.Residues, &run.FinishedAt); err != nil {
		return Run{}, false, fmt.Errorf("scan run: %w", err)
	}
	return run, true, nil
}
