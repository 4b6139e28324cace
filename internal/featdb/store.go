// Package featdb provides the feature-store backend: annotated genomic
// features held in DuckDB and queried by type, source and region.
package featdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
)

// Store manages a DuckDB connection holding the features table.
type Store struct {
	db     *sql.DB
	path   string
	prefix string
	chroms *chrom.Map
}

// Open opens or creates a DuckDB feature database at the given path.
// Use an empty string for an in-memory database.
func Open(path, prefix string) (*Store, error) {
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

	s := &Store{db: db, path: path, prefix: prefix}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.refreshChroms(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// Chroms returns the chromosome names present in the features table.
func (s *Store) Chroms() *chrom.Map { return s.chroms }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS features (
		seq_id VARCHAR,
		source VARCHAR,
		primary_tag VARCHAR,
		start BIGINT,
		stop BIGINT,
		strand TINYINT,
		score DOUBLE,
		name VARCHAR,
		attributes VARCHAR
	)`)
	return err
}

func (s *Store) refreshChroms() error {
	names, err := s.Chromosomes()
	if err != nil {
		return err
	}
	s.chroms = chrom.FromNames(s.prefix, names)
	return nil
}

// Chromosomes returns the distinct sequence names, sorted.
func (s *Store) Chromosomes() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT seq_id FROM features ORDER BY seq_id`)
	if err != nil {
		return nil, fmt.Errorf("query chromosomes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chromosome: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of stored features.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}
