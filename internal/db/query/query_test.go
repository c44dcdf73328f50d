package query_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/db/query"
)

func newTx(t *testing.T) *sql.Tx {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO test VALUES (1, 'foo'), (2, 'bar')")
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)

	return tx
}

func TestSelectObjects(t *testing.T) {
	tx := newTx(t)

	stmt, err := tx.Prepare("SELECT id, name FROM test WHERE name=?")
	require.NoError(t, err)

	var id int
	var name string

	dest := func(i int) []any {
		require.Equal(t, 0, i)
		return []any{&id, &name}
	}

	err = query.SelectObjects(stmt, dest, "bar")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, "bar", name)
}

func TestUpsertObjectInsertAndUpdate(t *testing.T) {
	tx := newTx(t)

	id, err := query.UpsertObject(tx, "test", []string{"name"}, []any{"egg"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	id, err = query.UpsertObject(tx, "test", []string{"id", "name"}, []any{1, "spam"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	values, err := query.SelectStrings(tx, "SELECT name FROM test ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"spam", "bar", "egg"}, values)
}

func TestDeleteObject(t *testing.T) {
	tx := newTx(t)

	deleted, err := query.DeleteObject(tx, "test", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = query.DeleteObject(tx, "test", 1000)
	require.NoError(t, err)
	assert.False(t, deleted)
}
