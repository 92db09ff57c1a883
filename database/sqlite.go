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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqliteAdapter is the embedded-backend strategy. The driver accepts `?`
// natively. SQLite has no table-level lock; the fail-fast lock contract is
// honored with busy_timeout 0 plus an IMMEDIATE or EXCLUSIVE transaction,
// which locks the whole database file.
type sqliteAdapter struct{}

var _ Adapter = sqliteAdapter{}

func (sqliteAdapter) Backend() string { return BackendSQLite }

func (sqliteAdapter) FixPlaceholder(query string) string { return query }

func (sqliteAdapter) BindValue(value interface{}) interface{} {
	return bindValue(value)
}

func (sqliteAdapter) QuoteIdent(name string) string {
	return quoteDoubleIdent(name)
}

func (sqliteAdapter) StatementTimeoutStatement(timeout time.Duration) string {
	// SQLite bounds contention waits, not statement runtime.
	return fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds())
}

func (sqliteAdapter) BeginStatement(mode BeginMode) string {
	return fmt.Sprintf("BEGIN %s", mode)
}

func (sqliteAdapter) LockStatements(_ string, readonly bool, inTx bool) ([]string, bool, error) {
	if inTx {
		// The open transaction already holds (or will escalate to) the
		// database-level lock; nothing further to acquire.
		return nil, false, nil
	}
	begin := "BEGIN EXCLUSIVE"
	if readonly {
		begin = "BEGIN IMMEDIATE"
	}
	return []string{"PRAGMA busy_timeout = 0", begin}, true, nil
}

// UnlockStatements returns nothing: the database lock ends with the
// transaction the lock opened.
func (sqliteAdapter) UnlockStatements() []string { return nil }

func (sqliteAdapter) ExistsTable(ctx context.Context, conn *sql.Conn, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var count int
	if err := conn.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, wrapBackendError(err)
	}
	return count > 0, nil
}

func (a sqliteAdapter) FetchColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	// PRAGMA arguments cannot be bound; the identifier is quoted instead.
	query := fmt.Sprintf("PRAGMA table_info(%s)", a.QuoteIdent(table))
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapBackendError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapBackendError(err)
	}

	var columns []string
	for rows.Next() {
		// cid, name, type, notnull, dflt_value, pk
		values := make([]interface{}, len(cols))
		for i := range values {
			values[i] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, wrapBackendError(err)
		}
		if len(values) < 2 {
			continue
		}
		switch name := (*(values[1].(*interface{}))).(type) {
		case string:
			columns = append(columns, name)
		case []byte:
			columns = append(columns, string(name))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackendError(err)
	}
	return columns, nil
}

func (sqliteAdapter) LastInsertID(ctx context.Context, conn *sql.Conn) (int64, error) {
	var id int64
	if err := conn.QueryRowContext(ctx, "SELECT last_insert_rowid()").Scan(&id); err != nil {
		return 0, wrapBackendError(err)
	}
	return id, nil
}

func (sqliteAdapter) AffectedRows(ctx context.Context, conn *sql.Conn, _ sql.Result) (int64, error) {
	// Derived via a post-write count query so the number reflects the
	// statement that just ran on this session.
	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT changes()").Scan(&n); err != nil {
		return 0, wrapBackendError(err)
	}
	return n, nil
}
