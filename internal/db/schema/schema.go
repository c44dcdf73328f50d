// Package schema implements a small forward-only migration engine for the
// metadata store: numbered Update functions applied in order, each inside
// its own transaction, tracked in a "schema" table.
package schema

import (
	"database/sql"
	"fmt"
)

// Update applies one schema migration inside tx.
type Update func(tx *sql.Tx) error

// Schema is an ordered list of Updates.
type Schema struct {
	updates []Update
	fresh   string
}

// Empty returns a Schema with no updates.
func Empty() *Schema {
	return &Schema{}
}

// NewFromMap builds a Schema from a map of version -> Update. It panics if
// the map has gaps: versions must run contiguously from 1.
func NewFromMap(versions map[int]Update) *Schema {
	s := Empty()

	for i := 1; i <= len(versions); i++ {
		update, ok := versions[i]
		if !ok {
			panic(fmt.Sprintf("updates map misses version %d", i))
		}

		s.updates = append(s.updates, update)
	}

	return s
}

// Add appends a new Update to the end of the series.
func (s *Schema) Add(update Update) {
	s.updates = append(s.updates, update)
}

// Fresh sets a single SQL statement that creates the schema from scratch,
// used as a fast path when the schema table doesn't exist yet at all.
func (s *Schema) Fresh(statement string) {
	s.fresh = statement
}

// Ensure applies every update newer than the database's recorded version,
// creating the schema table if needed. It returns the version the database
// was at before any update ran.
func (s *Schema) Ensure(db *sql.DB) (int, error) {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	version    INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
)
`)
	if err != nil {
		return -1, fmt.Errorf("failed to create schema table: %w", err)
	}

	versions, err := appliedVersions(db)
	if err != nil {
		return -1, err
	}

	if len(versions) == 0 && s.fresh != "" {
		if _, err := db.Exec(s.fresh); err != nil {
			return -1, fmt.Errorf("cannot apply fresh schema: %w", err)
		}

		return 0, markAllApplied(db, len(s.updates))
	}

	current := 0
	for _, v := range versions {
		if v != current+1 {
			return -1, fmt.Errorf("Missing updates: %d to %d", current+1, v-1)
		}

		current = v
	}

	if current > len(s.updates) {
		return -1, fmt.Errorf("schema version '%d' is more recent than expected '%d'", current, len(s.updates))
	}

	initial := current

	for i := current; i < len(s.updates); i++ {
		tx, err := db.Begin()
		if err != nil {
			return -1, err
		}

		if err := s.updates[i](tx); err != nil {
			tx.Rollback()
			return -1, fmt.Errorf("failed to apply update %d: %w", i+1, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema (version, updated_at) VALUES (?, strftime("%s"))`, i+1); err != nil {
			tx.Rollback()
			return -1, err
		}

		if err := tx.Commit(); err != nil {
			return -1, err
		}
	}

	return initial, nil
}

func appliedVersions(db *sql.DB) ([]int, error) {
	rows, err := db.Query("SELECT version FROM schema ORDER BY version")
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var versions []int

	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}

		versions = append(versions, v)
	}

	return versions, rows.Err()
}

func markAllApplied(db *sql.DB, count int) error {
	for i := 1; i <= count; i++ {
		if _, err := db.Exec(`INSERT INTO schema (version, updated_at) VALUES (?, strftime("%s"))`, i); err != nil {
			return err
		}
	}

	return nil
}
