package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db/query"
)

// CreateKVM inserts a new KVM row and returns its id.
func (s *Store) CreateKVM(k *KVM) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := query.UpsertObject(tx, "kvms",
		[]string{"name", "ip_address", "mac_address", "total_ports", "model", "serial", "username", "password"},
		[]any{k.Name, k.IPAddress, nullable(k.MACAddress), k.TotalPorts, k.Model, k.Serial, k.Username, k.Password},
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating kvm: %w", err)
	}

	return id, tx.Commit()
}

// GetKVM fetches a KVM by id.
func (s *Store) GetKVM(id int64) (*KVM, error) {
	row := s.db.QueryRow(`SELECT id, name, ip_address, COALESCE(mac_address,''), total_ports, COALESCE(model,''), COALESCE(serial,''), COALESCE(username,''), COALESCE(password,'') FROM kvms WHERE id=?`, id)

	k := &KVM{}

	err := row.Scan(&k.ID, &k.Name, &k.IPAddress, &k.MACAddress, &k.TotalPorts, &k.Model, &k.Serial, &k.Username, &k.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coreerr.NotFound("kvm %d not found", id)
	}

	if err != nil {
		return nil, err
	}

	return k, nil
}

// ListKVMs returns every KVM.
func (s *Store) ListKVMs() ([]*KVM, error) {
	rows, err := s.db.Query(`SELECT id, name, ip_address, COALESCE(mac_address,''), total_ports, COALESCE(model,''), COALESCE(serial,''), COALESCE(username,''), COALESCE(password,'') FROM kvms ORDER BY id`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []*KVM

	for rows.Next() {
		k := &KVM{}
		if err := rows.Scan(&k.ID, &k.Name, &k.IPAddress, &k.MACAddress, &k.TotalPorts, &k.Model, &k.Serial, &k.Username, &k.Password); err != nil {
			return nil, err
		}

		out = append(out, k)
	}

	return out, rows.Err()
}

// UpdateKVM replaces the row matching k.ID.
func (s *Store) UpdateKVM(k *KVM) error {
	_, err := s.db.Exec(
		`UPDATE kvms SET name=?, ip_address=?, mac_address=?, total_ports=?, model=?, serial=?, username=?, password=? WHERE id=?`,
		k.Name, k.IPAddress, nullable(k.MACAddress), k.TotalPorts, k.Model, k.Serial, k.Username, k.Password, k.ID,
	)
	return err
}

// DeleteKVM removes the KVM with the given id.
func (s *Store) DeleteKVM(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	deleted, err := query.DeleteObject(tx, "kvms", id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !deleted {
		tx.Rollback()
		return coreerr.NotFound("kvm %d not found", id)
	}

	return tx.Commit()
}
