package schema_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/db/query"
	"github.com/nls90/bootd/internal/db/schema"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	return db
}

func updateCreateTable(tx *sql.Tx) error {
	_, err := tx.Exec("CREATE TABLE test (id INTEGER)")
	return err
}

func updateInsertValue(tx *sql.Tx) error {
	_, err := tx.Exec("INSERT INTO test VALUES (1)")
	return err
}

func TestNewFromMap(t *testing.T) {
	db := newDB(t)
	s := schema.NewFromMap(map[int]schema.Update{
		1: updateCreateTable,
		2: updateInsertValue,
	})

	initial, err := s.Ensure(db)
	require.NoError(t, err)
	assert.Equal(t, 0, initial)

	tx, err := db.Begin()
	require.NoError(t, err)

	ids, err := query.SelectIntegers(tx, "SELECT id FROM test")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
}

func TestNewFromMapMissingVersionsPanics(t *testing.T) {
	assert.Panics(t, func() {
		schema.NewFromMap(map[int]schema.Update{
			1: updateCreateTable,
			3: updateInsertValue,
		})
	})
}

func TestEnsureIsIdempotent(t *testing.T) {
	db := newDB(t)
	s := schema.NewFromMap(map[int]schema.Update{1: updateCreateTable})

	_, err := s.Ensure(db)
	require.NoError(t, err)

	_, err = s.Ensure(db)
	require.NoError(t, err)
}
