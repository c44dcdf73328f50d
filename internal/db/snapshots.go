package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

const snapshotColumns = `id, name, size_in_gb, active, description, logical_unit_id`

func scanSnapshot(row interface{ Scan(...any) error }) (*Snapshot, error) {
	sn := &Snapshot{}

	var active int
	var description sql.NullString

	err := row.Scan(&sn.ID, &sn.Name, &sn.SizeInGB, &active, &description, &sn.LogicalUnitID)
	if err != nil {
		return nil, err
	}

	sn.Active = active != 0
	sn.Description = description.String

	return sn, nil
}

// CreateSnapshot inserts a new Snapshot row and returns its id. It does not
// itself enforce the one-active-snapshot-per-LogicalUnit invariant; the
// Core does that in ActivateSnapshot.
func (s *Store) CreateSnapshot(sn *Snapshot) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := query.UpsertObject(tx, "snapshots",
		[]string{"name", "size_in_gb", "active", "description", "logical_unit_id"},
		[]any{sn.Name, sn.SizeInGB, boolToInt(sn.Active), nullable(sn.Description), sn.LogicalUnitID},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating snapshot: %w", err)
	}

	return id, tx.Commit()
}

// GetSnapshot fetches a Snapshot by id.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotColumns+` FROM snapshots WHERE id=?`, id)

	sn, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("snapshot %d not found", id)
	}

	return sn, err
}

// ListSnapshotsForLogicalUnit returns every Snapshot belonging to the given
// LogicalUnit, oldest first.
func (s *Store) ListSnapshotsForLogicalUnit(logicalUnitID int64) ([]*Snapshot, error) {
	rows, err := s.db.Query(`SELECT `+snapshotColumns+` FROM snapshots WHERE logical_unit_id=? ORDER BY id`, logicalUnitID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*Snapshot

	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, sn)
	}

	return out, rows.Err()
}

// GetActiveSnapshot returns the Snapshot currently marked active for the
// given LogicalUnit, or nil if none is active.
func (s *Store) GetActiveSnapshot(logicalUnitID int64) (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotColumns+` FROM snapshots WHERE logical_unit_id=? AND active=1`, logicalUnitID)

	sn, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return sn, err
}

// UpdateSnapshot replaces the row matching sn.ID.
func (s *Store) UpdateSnapshot(sn *Snapshot) error {
	_, err := s.db.Exec(
		`UPDATE snapshots SET name=?, size_in_gb=?, active=?, description=?, logical_unit_id=? WHERE id=?`,
		sn.Name, sn.SizeInGB, boolToInt(sn.Active), nullable(sn.Description), sn.LogicalUnitID, sn.ID,
	)
	return err
}

// ClearActiveSnapshot marks every Snapshot of the given LogicalUnit inactive.
// Used by the Core before activating a new one, so at most one stays active.
func (s *Store) ClearActiveSnapshot(logicalUnitID int64) error {
	_, err := s.db.Exec(`UPDATE snapshots SET active=0 WHERE logical_unit_id=?`, logicalUnitID)
	return err
}

// DeleteSnapshot removes the Snapshot with the given id.
func (s *Store) DeleteSnapshot(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "snapshots", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("snapshot %d not found", id)
	}

	return tx.Commit()
}
