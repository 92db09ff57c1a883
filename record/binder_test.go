/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package record

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/remora/database"
	"github.com/tomoncle/remora/types"
)

var usersTable = &Table{
	Name:             "users",
	Columns:          []string{"id", "name", "age", "version", "deleted"},
	PrimaryKeys:      []string{"id"},
	DeleteFlagColumn: "deleted",
	VersionColumn:    "version",
}

// newTestConnector opens a session against a fresh embedded database with the
// users table created and seeded.
func newTestConnector(t *testing.T) *database.Connector {
	t.Helper()
	registry := database.NewPoolRegistry()
	registry.Start()
	t.Cleanup(func() { _ = registry.End() })

	params := database.SQLiteParameters{DatabaseFile: filepath.Join(t.TempDir(), "record.db")}
	connector, err := registry.Connect(context.Background(), params)
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.Close() })

	ctx := context.Background()
	_, err = connector.Execute(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		age INTEGER,
		version INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0)`)
	require.NoError(t, err)
	return connector
}

func seedUsers(t *testing.T, c *database.Connector, rows ...[4]interface{}) {
	t.Helper()
	for _, row := range rows {
		_, err := c.Execute(context.Background(),
			"INSERT INTO users (name, age, version, deleted) VALUES (?, ?, ?, ?)",
			row[0], row[1], row[2], row[3])
		require.NoError(t, err)
	}
}

func TestRecordBinderEdit(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector,
		[4]interface{}{"alice", 30, 1, 0},
		[4]interface{}{"bob", 25, 1, 0},
		[4]interface{}{"carol", 30, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)

	where := NewWhereSet().Equals("age", 30)
	require.NoError(t, binder.Edit(ctx, where, "name DESC"))
	require.Equal(t, 2, binder.Count())

	name, _ := binder.Records()[0].Get("name")
	assert.Equal(t, "carol", name.Text())
	assert.Same(t, where, binder.Where())

	// no match binds an empty collection, not an error
	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("age", 99)))
	assert.Zero(t, binder.Count())

	// nil condition binds the whole table
	require.NoError(t, binder.Edit(ctx, nil, "id ASC"))
	assert.Equal(t, 3, binder.Count())
}

func TestRecordBinderEditRequiresConnector(t *testing.T) {
	binder := NewRecordBinder(usersTable)
	err := binder.Edit(context.Background(), nil)
	var dbErr *database.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestRecordBinderEditPage(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector,
		[4]interface{}{"u1", 20, 1, 0},
		[4]interface{}{"u2", 21, 1, 0},
		[4]interface{}{"u3", 22, 1, 0},
		[4]interface{}{"u4", 23, 1, 0},
		[4]interface{}{"u5", 24, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)

	page, err := binder.EditPage(ctx, nil, types.NewPageRequest(2, 2, "id ASC"))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	name, _ := page.Items[0].Get("name")
	assert.Equal(t, "u3", name.Text())
	assert.Equal(t, 2, binder.Count(), "the page is bound")

	// a page past the end of a filtered set
	page, err = binder.EditPage(ctx, NewWhereSet().Add("age", ">", 23), types.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
}

func TestRecordBinderInsert(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)

	// insert without a bound record is refused
	var dbErr *database.DatabaseError
	assert.ErrorAs(t, binder.Insert(ctx), &dbErr)

	binder.SetDefaultRecord()
	rec := binder.Records()[0]
	rec.Set("id", types.NewInt(1))
	rec.Set("name", types.NewString("alice"))
	rec.Set("age", types.NewInt(30))
	rec.Set("version", types.NewInt(1))
	rec.Set("deleted", types.NewInt(0))
	require.NoError(t, binder.Insert(ctx))

	count, err := connector.FetchField(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Int64())
}

func TestRecordBinderInsertValidation(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)
	binder.SetHooks(Hooks{
		Validate: func(r *types.RecordMap) error {
			name, _ := r.Get("name")
			if name.IsNull() {
				return NewRecordMapValidationError("name", "must not be empty")
			}
			return nil
		},
	})

	binder.SetDefaultRecord()
	err := binder.Insert(ctx)
	var vErr *RecordMapValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Column)
	assert.Zero(t, binder.Count(), "validation failure unbinds the record")

	count, err := connector.FetchField(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Zero(t, count.Int64(), "nothing reached the backend")
}

func TestRecordBinderSetDefaultRecordHookFallback(t *testing.T) {
	binder := NewRecordBinder(usersTable)
	binder.SetHooks(Hooks{
		DefaultRecord: func(*Table) (*types.RecordMap, error) {
			return nil, errors.New("hook exploded")
		},
	})
	binder.SetDefaultRecord()
	require.Equal(t, 1, binder.Count())
	rec := binder.Records()[0]
	assert.Equal(t, usersTable.Columns, rec.Columns())
	for _, col := range rec.Columns() {
		v, _ := rec.Get(col)
		assert.True(t, v.IsNull())
	}
}

func TestRecordBinderUpdate(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector, [4]interface{}{"alice", 30, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)

	// update without a bound condition is refused
	binder.SetDefaultRecord()
	var dbErr *database.DatabaseError
	assert.ErrorAs(t, binder.Update(ctx), &dbErr)

	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("name", "alice")))
	rec := binder.Records()[0]
	rec.Set("age", types.NewInt(31))
	rec.Set("version", types.NewInt(2))
	require.NoError(t, binder.Update(ctx))

	age, err := connector.FetchField(ctx, "SELECT age FROM users WHERE name = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(31), age.Int64())
}

func TestRecordBinderUpdateConflict(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector, [4]interface{}{"alice", 30, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)
	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("name", "alice")))

	// another session bumps the version behind the binder's back
	_, err := connector.Execute(ctx, "UPDATE users SET version = 9 WHERE name = ?", "alice")
	require.NoError(t, err)

	rec := binder.Records()[0]
	rec.Set("age", types.NewInt(99))
	err = binder.Update(ctx)
	var conflict *RecordConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "users", conflict.Table)
	require.Len(t, conflict.Conflicts, 1)
	storedVersion, _ := conflict.Conflicts[0].Get("version")
	assert.Equal(t, int64(9), storedVersion.Int64())
	assert.Zero(t, binder.Count(), "conflict unbinds the collection")

	// the stale write never reached the backend
	age, err := connector.FetchField(ctx, "SELECT age FROM users WHERE name = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(30), age.Int64())
}

func TestRecordBinderUpdateRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector, [4]interface{}{"alice", 30, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)
	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("name", "alice")))

	rec := binder.Records()[0]
	rec.Set("version", types.NewInt(2))
	rec.Set("age", types.NewInt(31))
	require.NoError(t, binder.Update(ctx))

	// the save refreshed the origin snapshot to the written state
	require.Equal(t, 1, binder.Count())
	origin, ok := rec.Origin("version")
	require.True(t, ok)
	assert.Equal(t, int64(2), origin.Int64())

	// a second save on the same binder is not a conflict with itself
	rec.Set("age", types.NewInt(32))
	require.NoError(t, binder.Update(ctx))

	age, err := connector.FetchField(ctx, "SELECT age FROM users WHERE name = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(32), age.Int64())
}

func TestRecordBinderInsertRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)
	binder.SetDefaultRecord()
	rec := binder.Records()[0]
	rec.Set("id", types.NewInt(1))
	rec.Set("name", types.NewString("alice"))
	rec.Set("age", types.NewInt(30))
	rec.Set("version", types.NewInt(1))
	rec.Set("deleted", types.NewInt(0))
	require.NoError(t, binder.Insert(ctx))

	// the inserted record now mirrors a stored row
	assert.True(t, rec.IsFetched())
	assert.False(t, rec.Modified())
}

func TestRecordBinderSave(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector, [4]interface{}{"alice", 30, 1, 0})

	binder := NewRecordBinder(usersTable)
	binder.SetConnector(connector)

	// fetched records save as an update
	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("name", "alice")))
	binder.Records()[0].Set("age", types.NewInt(40))
	require.NoError(t, binder.Save(ctx))
	age, err := connector.FetchField(ctx, "SELECT age FROM users WHERE name = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(40), age.Int64())

	// fresh records save as an insert
	fresh := NewRecordBinder(usersTable)
	fresh.SetConnector(connector)
	fresh.SetDefaultRecord()
	rec := fresh.Records()[0]
	rec.Set("id", types.NewInt(2))
	rec.Set("name", types.NewString("bob"))
	rec.Set("age", types.NewInt(20))
	rec.Set("version", types.NewInt(1))
	rec.Set("deleted", types.NewInt(0))
	require.NoError(t, fresh.Save(ctx))

	count, err := connector.FetchField(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Int64())
}

func TestSingleRecordBinderEdit(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector,
		[4]interface{}{"alice", 30, 1, 0},
		[4]interface{}{"bob", 30, 1, 0},
		[4]interface{}{"ghost", 40, 1, 1})

	binder := NewSingleRecordBinder(usersTable)
	binder.SetConnector(connector)

	// exactly one live match binds
	require.NoError(t, binder.Edit(ctx, NewWhereSet().Equals("name", "alice")))
	require.NotNil(t, binder.Record())
	assert.False(t, binder.IsDeleted())

	// zero matches
	err := binder.Edit(ctx, NewWhereSet().Equals("name", "nobody"))
	assert.True(t, database.IsDataNotFound(err))
	assert.Nil(t, binder.Record())

	// multiple matches
	err = binder.Edit(ctx, NewWhereSet().Equals("age", 30))
	require.Error(t, err)
	assert.False(t, database.IsDataNotFound(err), "ambiguity is not a not-found condition")
	assert.Nil(t, binder.Record())

	// a soft-deleted match reads as not found
	err = binder.Edit(ctx, NewWhereSet().Equals("name", "ghost"))
	assert.True(t, database.IsDataNotFound(err))
	assert.Nil(t, binder.Record())
}

func TestSingleRecordBinderIsDeletedHook(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector, [4]interface{}{"alice", 30, 1, 0})

	binder := NewSingleRecordBinder(usersTable)
	binder.SetConnector(connector)
	binder.SetHooks(Hooks{
		IsDeleted: func(r *types.RecordMap) bool {
			age, _ := r.Get("age")
			return age.Int64() >= 30
		},
	})

	// the hook overrides the flag column: alice counts as deleted
	err := binder.Edit(ctx, NewWhereSet().Equals("name", "alice"))
	assert.True(t, database.IsDataNotFound(err))
}

// TestEndToEndEmbeddedBackend walks the whole stack against a fresh database
// file: pool start, schema inspection, default-record insert, fetch, delete.
func TestEndToEndEmbeddedBackend(t *testing.T) {
	ctx := context.Background()
	registry := database.NewPoolRegistry()
	registry.Start()
	t.Cleanup(func() { _ = registry.End() })

	params := database.SQLiteParameters{DatabaseFile: filepath.Join(t.TempDir(), "e2e.db")}
	connector, err := registry.Connect(ctx, params)
	require.NoError(t, err)
	t.Cleanup(func() { _ = connector.Close() })

	exists, err := connector.ExistsTable(ctx, "t")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = connector.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	exists, err = connector.ExistsTable(ctx, "t")
	require.NoError(t, err)
	require.True(t, exists)

	table := &Table{Name: "t", Columns: []string{"id", "name"}, PrimaryKeys: []string{"id"}}
	binder := NewRecordBinder(table)
	binder.SetConnector(connector)
	binder.SetDefaultRecord()
	rec := binder.Records()[0]
	rec.Set("id", types.NewInt(1))
	rec.Set("name", types.NewString("x"))
	require.NoError(t, binder.Insert(ctx))

	records, err := connector.FetchRecords(ctx, "SELECT * FROM t")
	require.NoError(t, err)
	require.Len(t, records, 1)
	name, _ := records[0].Get("name")
	assert.Equal(t, "x", name.Text())

	single := NewSingleRecordBinder(table)
	single.SetConnector(connector)
	require.NoError(t, single.PhysicalDelete(ctx, NewWhereSet().Equals("id", 1)))

	count, err := connector.FetchField(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	assert.Zero(t, count.Int64())
}

func TestSingleRecordBinderPhysicalDelete(t *testing.T) {
	ctx := context.Background()
	connector := newTestConnector(t)
	seedUsers(t, connector,
		[4]interface{}{"alice", 30, 1, 0},
		[4]interface{}{"ghost", 40, 1, 1})

	binder := NewSingleRecordBinder(usersTable)
	binder.SetConnector(connector)

	var dbErr *database.DatabaseError
	assert.ErrorAs(t, binder.PhysicalDelete(ctx, nil), &dbErr)

	// removes a soft-deleted row Edit refuses to bind
	where := NewWhereSet().Equals("name", "ghost")
	require.True(t, database.IsDataNotFound(binder.Edit(ctx, where)))
	require.NoError(t, binder.PhysicalDelete(ctx, where))

	count, err := connector.FetchField(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Int64())
}
