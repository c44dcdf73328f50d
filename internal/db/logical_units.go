package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

const logicalUnitColumns = `id, name, vendor_id, product_id, product_rev, group_name, size_in_gb, use, status, boot_count, last_attached, target_id`

func scanLogicalUnit(row interface{ Scan(...any) error }) (*LogicalUnit, error) {
	l := &LogicalUnit{}

	var vendorID, productID, productRev sql.NullString
	var use int
	var lastAttached sql.NullTime
	var targetID sql.NullInt64

	err := row.Scan(&l.ID, &l.Name, &vendorID, &productID, &productRev, &l.Group, &l.SizeInGB, &use, &l.Status, &l.BootCount, &lastAttached, &targetID)
	if err != nil {
		return nil, err
	}

	l.VendorID = vendorID.String
	l.ProductID = productID.String
	l.ProductRev = productRev.String
	l.Use = use != 0

	if lastAttached.Valid {
		t := lastAttached.Time
		l.LastAttached = &t
	}

	if targetID.Valid {
		l.TargetID = &targetID.Int64
	}

	return l, nil
}

// CreateLogicalUnit inserts a new LogicalUnit row and returns its id.
func (s *Store) CreateLogicalUnit(l *LogicalUnit) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := query.UpsertObject(tx, "logical_units",
		[]string{"name", "vendor_id", "product_id", "product_rev", "group_name", "size_in_gb", "use", "status", "boot_count", "last_attached", "target_id"},
		[]any{l.Name, nullable(l.VendorID), nullable(l.ProductID), nullable(l.ProductRev), l.Group, l.SizeInGB, boolToInt(l.Use), int(l.Status), l.BootCount, nullableTime(l.LastAttached), nullableID(l.TargetID)},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating logical unit: %w", err)
	}

	return id, tx.Commit()
}

// GetLogicalUnit fetches a LogicalUnit by id.
func (s *Store) GetLogicalUnit(id int64) (*LogicalUnit, error) {
	row := s.db.QueryRow(`SELECT `+logicalUnitColumns+` FROM logical_units WHERE id=?`, id)

	l, err := scanLogicalUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("logical unit %d not found", id)
	}

	return l, err
}

// ListLogicalUnits lists LogicalUnits, optionally scoped to a Target and/or
// filtered to a status.
func (s *Store) ListLogicalUnits(targetID *int64, status *LogicalUnitStatus) ([]*LogicalUnit, error) {
	q := `SELECT ` + logicalUnitColumns + ` FROM logical_units WHERE 1=1`
	var args []any

	if targetID != nil {
		q += ` AND target_id=?`
		args = append(args, *targetID)
	}

	if status != nil {
		q += ` AND status=?`
		args = append(args, int(*status))
	}

	q += ` ORDER BY id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*LogicalUnit

	for rows.Next() {
		l, err := scanLogicalUnit(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, l)
	}

	return out, rows.Err()
}

// FirstLogicalUnitWithStatus returns the first LogicalUnit under target
// with the given status, ordered by id (insertion order), or nil.
func (s *Store) FirstLogicalUnitWithStatus(targetID int64, status LogicalUnitStatus) (*LogicalUnit, error) {
	row := s.db.QueryRow(`SELECT `+logicalUnitColumns+` FROM logical_units WHERE target_id=? AND status=? ORDER BY id LIMIT 1`, targetID, int(status))

	l, err := scanLogicalUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return l, err
}

// NextBootCandidate returns the ONLINE LogicalUnit under target that has
// never been attached, or failing that the ONLINE one with the earliest
// last_attached, ties broken by insertion order (id).
func (s *Store) NextBootCandidate(targetID int64) (*LogicalUnit, error) {
	row := s.db.QueryRow(`
SELECT `+logicalUnitColumns+` FROM logical_units
WHERE target_id=? AND status=? AND last_attached IS NULL
ORDER BY id LIMIT 1`, targetID, int(LogicalUnitOnline))

	l, err := scanLogicalUnit(row)
	if err == nil {
		return l, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	row = s.db.QueryRow(`
SELECT `+logicalUnitColumns+` FROM logical_units
WHERE target_id=? AND status=?
ORDER BY last_attached ASC, id ASC LIMIT 1`, targetID, int(LogicalUnitOnline))

	l, err = scanLogicalUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return l, err
}

// UpdateLogicalUnit replaces the row matching l.ID.
func (s *Store) UpdateLogicalUnit(l *LogicalUnit) error {
	_, err := s.db.Exec(
		`UPDATE logical_units SET name=?, vendor_id=?, product_id=?, product_rev=?, group_name=?, size_in_gb=?, use=?, status=?, boot_count=?, last_attached=?, target_id=? WHERE id=?`,
		l.Name, nullable(l.VendorID), nullable(l.ProductID), nullable(l.ProductRev), l.Group, l.SizeInGB, boolToInt(l.Use), int(l.Status), l.BootCount, nullableTime(l.LastAttached), nullableID(l.TargetID), l.ID,
	)
	return err
}

// DeleteLogicalUnit removes the LogicalUnit with the given id.
func (s *Store) DeleteLogicalUnit(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "logical_units", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("logical unit %d not found", id)
	}

	return tx.Commit()
}
