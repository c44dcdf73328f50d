package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

// CreatePDU inserts a new PDU row and returns its id.
func (s *Store) CreatePDU(p *PDU) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := query.UpsertObject(tx, "pdus",
		[]string{"name", "ip_address", "mac_address", "total_outlets", "model", "serial", "username", "password"},
		[]any{p.Name, p.IPAddress, nullable(p.MACAddress), p.TotalOutlets, p.Model, p.Serial, p.Username, p.Password},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating pdu: %w", err)
	}

	return id, tx.Commit()
}

// GetPDU fetches a PDU by id.
func (s *Store) GetPDU(id int64) (*PDU, error) {
	row := s.db.QueryRow(`SELECT id, name, ip_address, COALESCE(mac_address,''), total_outlets, COALESCE(model,''), COALESCE(serial,''), COALESCE(username,''), COALESCE(password,'') FROM pdus WHERE id=?`, id)

	p := &PDU{}

	err := row.Scan(&p.ID, &p.Name, &p.IPAddress, &p.MACAddress, &p.TotalOutlets, &p.Model, &p.Serial, &p.Username, &p.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("pdu %d not found", id)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

// ListPDUs returns every PDU.
func (s *Store) ListPDUs() ([]*PDU, error) {
	rows, err := s.db.Query(`SELECT id, name, ip_address, COALESCE(mac_address,''), total_outlets, COALESCE(model,''), COALESCE(serial,''), COALESCE(username,''), COALESCE(password,'') FROM pdus ORDER BY id`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*PDU

	for rows.Next() {
		p := &PDU{}
		if err := rows.Scan(&p.ID, &p.Name, &p.IPAddress, &p.MACAddress, &p.TotalOutlets, &p.Model, &p.Serial, &p.Username, &p.Password); err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// UpdatePDU replaces the row matching p.ID.
func (s *Store) UpdatePDU(p *PDU) error {
	_, err := s.db.Exec(
		`UPDATE pdus SET name=?, ip_address=?, mac_address=?, total_outlets=?, model=?, serial=?, username=?, password=? WHERE id=?`,
		p.Name, p.IPAddress, nullable(p.MACAddress), p.TotalOutlets, p.Model, p.Serial, p.Username, p.Password, p.ID,
	)
	return err
}

// DeletePDU removes the PDU with the given id.
func (s *Store) DeletePDU(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "pdus", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("pdu %d not found", id)
	}

	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
