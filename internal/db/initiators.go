package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

// CreateInitiator inserts a new Initiator row and returns its id.
func (s *Store) CreateInitiator(i *Initiator) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	mode := i.Mode
	if mode == "" {
		mode = InitiatorModeAutomatic
	}

	id, err := query.UpsertObject(tx, "initiators",
		[]string{"mac_address", "name", "mode", "ip_address", "pdu_id", "pdu_port", "kvm_id", "kvm_port", "last_initiated"},
		[]any{i.MACAddress, i.Name, string(mode), nullable(i.IPAddress), nullableID(i.PDUID), i.PDUPort, nullableID(i.KVMID), i.KVMPort, nullableTime(i.LastInitiated)},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating initiator: %w", err)
	}

	return id, tx.Commit()
}

func scanInitiator(row interface{ Scan(...any) error }) (*Initiator, error) {
	i := &Initiator{}

	var mode string
	var ip sql.NullString
	var pduID, kvmID sql.NullInt64
	var lastInitiated sql.NullTime

	err := row.Scan(&i.ID, &i.MACAddress, &i.Name, &mode, &ip, &pduID, &i.PDUPort, &kvmID, &i.KVMPort, &lastInitiated)
	if err != nil {
		return nil, err
	}

	i.Mode = InitiatorMode(mode)
	i.IPAddress = ip.String

	if pduID.Valid {
		i.PDUID = &pduID.Int64
	}

	if kvmID.Valid {
		i.KVMID = &kvmID.Int64
	}

	if lastInitiated.Valid {
		t := lastInitiated.Time
		i.LastInitiated = &t
	}

	return i, nil
}

const initiatorColumns = `id, mac_address, name, mode, ip_address, pdu_id, pdu_port, kvm_id, kvm_port, last_initiated`

// GetInitiator fetches an Initiator by id.
func (s *Store) GetInitiator(id int64) (*Initiator, error) {
	row := s.db.QueryRow(`SELECT `+initiatorColumns+` FROM initiators WHERE id=?`, id)

	i, err := scanInitiator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("initiator %d not found", id)
	}

	return i, err
}

// GetInitiatorByMAC fetches an Initiator by its MAC address.
func (s *Store) GetInitiatorByMAC(mac string) (*Initiator, error) {
	row := s.db.QueryRow(`SELECT `+initiatorColumns+` FROM initiators WHERE mac_address=?`, mac)

	i, err := scanInitiator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("initiator with mac %s not found", mac)
	}

	return i, err
}

// ListInitiators returns every Initiator.
func (s *Store) ListInitiators() ([]*Initiator, error) {
	rows, err := s.db.Query(`SELECT ` + initiatorColumns + ` FROM initiators ORDER BY id`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*Initiator

	for rows.Next() {
		i, err := scanInitiator(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, i)
	}

	return out, rows.Err()
}

// UpdateInitiator replaces the row matching i.ID.
func (s *Store) UpdateInitiator(i *Initiator) error {
	_, err := s.db.Exec(
		`UPDATE initiators SET mac_address=?, name=?, mode=?, ip_address=?, pdu_id=?, pdu_port=?, kvm_id=?, kvm_port=?, last_initiated=? WHERE id=?`,
		i.MACAddress, i.Name, string(i.Mode), nullable(i.IPAddress), nullableID(i.PDUID), i.PDUPort, nullableID(i.KVMID), i.KVMPort, nullableTime(i.LastInitiated), i.ID,
	)
	return err
}

// DeleteInitiator removes the Initiator with the given id.
func (s *Store) DeleteInitiator(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "initiators", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("initiator %d not found", id)
	}

	return tx.Commit()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}

	return *id
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}
