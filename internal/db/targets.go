package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

const targetColumns = `id, name, boot, active, status, initiator_id`

func scanTarget(row interface{ Scan(...any) error }) (*Target, error) {
	t := &Target{}

	var boot, active int
	var initiatorID sql.NullInt64

	err := row.Scan(&t.ID, &t.Name, &boot, &active, &t.Status, &initiatorID)
	if err != nil {
		return nil, err
	}

	t.Boot = boot != 0
	t.Active = active != 0

	if initiatorID.Valid {
		t.InitiatorID = &initiatorID.Int64
	}

	return t, nil
}

// CreateTarget inserts a new Target row and returns its id.
func (s *Store) CreateTarget(t *Target) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := query.UpsertObject(tx, "targets",
		[]string{"name", "boot", "active", "status", "initiator_id"},
		[]any{t.Name, boolToInt(t.Boot), boolToInt(t.Active), int(t.Status), nullableID(t.InitiatorID)},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating target: %w", err)
	}

	return id, tx.Commit()
}

// GetTarget fetches a Target by id.
func (s *Store) GetTarget(id int64) (*Target, error) {
	row := s.db.QueryRow(`SELECT `+targetColumns+` FROM targets WHERE id=?`, id)

	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("target %d not found", id)
	}

	return t, err
}

// ListTargets returns every Target, optionally filtered to the one bound
// to the Initiator with the given MAC address.
func (s *Store) ListTargets(macAddressFilter string) ([]*Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets`
	var args []any

	if macAddressFilter != "" {
		query += ` WHERE initiator_id IN (SELECT id FROM initiators WHERE mac_address=?)`
		args = append(args, macAddressFilter)
	}

	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*Target

	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

// UpdateTarget replaces the row matching t.ID.
func (s *Store) UpdateTarget(t *Target) error {
	_, err := s.db.Exec(
		`UPDATE targets SET name=?, boot=?, active=?, status=?, initiator_id=? WHERE id=?`,
		t.Name, boolToInt(t.Boot), boolToInt(t.Active), int(t.Status), nullableID(t.InitiatorID), t.ID,
	)
	return err
}

// DeleteTarget removes the Target with the given id.
func (s *Store) DeleteTarget(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "targets", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("target %d not found", id)
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
