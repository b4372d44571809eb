// Package duckdb exports the residue corpus and per-complex processing
// status to a DuckDB database for querying.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/peppi/internal/dataset"
)

// Store manages a DuckDB connection holding one corpus.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		residuesDDL(),
		`CREATE TABLE IF NOT EXISTS complex_status (
			complex VARCHAR PRIMARY KEY,
			pdb_id VARCHAR,
			peptide_chain VARCHAR,
			protein_chain VARCHAR,
			resolution DOUBLE,
			ok BOOLEAN,
			failures VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			peptide_list VARCHAR,
			peptide_list_size BIGINT,
			peptide_list_mod_time TIMESTAMP,
			residues BIGINT,
			finished_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// residuesDDL declares one column per dataset.Schema entry after the
// residue's identity columns.
func residuesDDL() string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS residues (\n")
	sb.WriteString("\tcomplex VARCHAR,\n\tmolecule VARCHAR,\n\tposition INTEGER,\n")
	sb.WriteString("\t" + quote(dataset.ColResidue) + " VARCHAR,\n")
	for _, c := range dataset.FeatureColumns() {
		sb.WriteString("\t" + quote(c) + " DOUBLE,\n")
	}
	sb.WriteString("\t" + quote(dataset.ColBinding) + " INTEGER\n)")
	return sb.String()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
