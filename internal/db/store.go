package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nls90/bootd/internal/db/schema"
)

// Store is the metadata store's handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	if _, err := schemaDefinition().Ensure(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("bringing metadata store schema up to date: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func schemaDefinition() *schema.Schema {
	return schema.NewFromMap(map[int]schema.Update{
		1: updateInitialSchema,
	})
}

func updateInitialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
CREATE TABLE pdus (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	ip_address    TEXT NOT NULL UNIQUE,
	mac_address   TEXT UNIQUE,
	total_outlets INTEGER NOT NULL DEFAULT 0,
	model         TEXT,
	serial        TEXT,
	username      TEXT,
	password      TEXT
);

CREATE TABLE kvms (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	ip_address  TEXT NOT NULL UNIQUE,
	mac_address TEXT UNIQUE,
	total_ports INTEGER NOT NULL DEFAULT 0,
	model       TEXT,
	serial      TEXT,
	username    TEXT,
	password    TEXT
);

CREATE TABLE initiators (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mac_address    TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL UNIQUE,
	mode           TEXT NOT NULL DEFAULT 'A',
	ip_address     TEXT,
	pdu_id         INTEGER REFERENCES pdus(id) ON DELETE SET NULL,
	pdu_port       INTEGER NOT NULL DEFAULT 0,
	kvm_id         INTEGER REFERENCES kvms(id) ON DELETE SET NULL,
	kvm_port       INTEGER NOT NULL DEFAULT 0,
	last_initiated DATETIME
);

CREATE TABLE targets (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL UNIQUE,
	boot         INTEGER NOT NULL DEFAULT 0,
	active       INTEGER NOT NULL DEFAULT 0,
	status       INTEGER NOT NULL DEFAULT 0,
	initiator_id INTEGER UNIQUE REFERENCES initiators(id) ON DELETE SET NULL
);

CREATE TABLE logical_units (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	vendor_id     TEXT,
	product_id    TEXT,
	product_rev   TEXT,
	group_name    TEXT NOT NULL,
	size_in_gb    REAL NOT NULL DEFAULT 20.0,
	use           INTEGER NOT NULL DEFAULT 1,
	status        INTEGER NOT NULL DEFAULT 0,
	boot_count    INTEGER NOT NULL DEFAULT 0,
	last_attached DATETIME,
	target_id     INTEGER REFERENCES targets(id) ON DELETE SET NULL
);

CREATE TABLE snapshots (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL UNIQUE,
	size_in_gb      REAL NOT NULL DEFAULT 5.0,
	active          INTEGER NOT NULL DEFAULT 0,
	description     TEXT,
	logical_unit_id INTEGER NOT NULL REFERENCES logical_units(id) ON DELETE CASCADE
);
`)

	return err
}
