// Package query provides small raw-SQL helpers used by the entity
// repositories in internal/db, in place of an ORM — the metadata store is
// a thin, explicit layer over database/sql.
package query

import (
	"database/sql"
	"fmt"
	"strings"
)

// Dest is called once per result row; it must return the list of pointers
// Scan should populate for that row.
type Dest func(i int) []any

// SelectObjects runs stmt and calls dest for every returned row.
func SelectObjects(stmt *sql.Stmt, dest Dest, args ...any) error {
	rows, err := stmt.Query(args...)
	if err != nil {
		return err
	}

	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(dest(i)...); err != nil {
			return err
		}
	}

	return rows.Err()
}

// UpsertObject inserts a new row, or updates the existing one when columns
// includes "id" and a row with that id already exists. It returns the
// row's id.
func UpsertObject(tx *sql.Tx, table string, columns []string, values []any) (int64, error) {
	if len(columns) == 0 {
		return -1, fmt.Errorf("columns length is zero")
	}

	if len(columns) != len(values) {
		return -1, fmt.Errorf("columns length does not match values length")
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	verb := "INSERT"
	for _, column := range columns {
		if column == "id" {
			verb = "INSERT OR REPLACE"
			break
		}
	}

	stmt := fmt.Sprintf(
		"%s INTO %s (%s) VALUES (%s)",
		verb, table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	result, err := tx.Exec(stmt, values...)
	if err != nil {
		return -1, err
	}

	return result.LastInsertId()
}

// DeleteObject deletes the row with the given id from table. The returned
// bool reports whether a row was actually removed.
func DeleteObject(tx *sql.Tx, table string, id int64) (bool, error) {
	result, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id=?", table), id)
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
