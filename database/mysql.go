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
	"strings"
	"time"
)

// mysqlAdapter is the second server-backend strategy. The driver accepts `?`
// natively, so placeholder translation is the identity transform.
type mysqlAdapter struct{}

var _ Adapter = mysqlAdapter{}

func (mysqlAdapter) Backend() string { return BackendMySQL }

func (mysqlAdapter) FixPlaceholder(query string) string { return query }

func (mysqlAdapter) BindValue(value interface{}) interface{} {
	return bindValue(value)
}

func (mysqlAdapter) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlAdapter) StatementTimeoutStatement(timeout time.Duration) string {
	return fmt.Sprintf("SET SESSION max_execution_time = %d", timeout.Milliseconds())
}

func (mysqlAdapter) BeginStatement(BeginMode) string {
	return "BEGIN"
}

func (a mysqlAdapter) LockStatements(table string, readonly bool, _ bool) ([]string, bool, error) {
	mode := "WRITE"
	if readonly {
		mode = "READ"
	}
	// lock_wait_timeout governs LOCK TABLES; 1 second is the server minimum,
	// the closest MySQL offers to NOWAIT.
	return []string{
		"SET SESSION lock_wait_timeout = 1",
		fmt.Sprintf("LOCK TABLES %s %s", a.QuoteIdent(table), mode),
	}, false, nil
}

// UnlockStatements releases the table locks and restores the session
// lock_wait_timeout. LOCK TABLES is session-scoped, not transactional, so
// without these the locks would survive into the next pool borrower.
func (mysqlAdapter) UnlockStatements() []string {
	return []string{
		"UNLOCK TABLES",
		"SET SESSION lock_wait_timeout = DEFAULT",
	}
}

func (mysqlAdapter) ExistsTable(ctx context.Context, conn *sql.Conn, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`
	var count int
	if err := conn.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, wrapBackendError(err)
	}
	return count > 0, nil
}

func (mysqlAdapter) FetchColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
	rows, err := conn.QueryContext(ctx, query, table)
	if err != nil {
		return nil, wrapBackendError(err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapBackendError(err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackendError(err)
	}
	return columns, nil
}

func (mysqlAdapter) LastInsertID(ctx context.Context, conn *sql.Conn) (int64, error) {
	var id int64
	if err := conn.QueryRowContext(ctx, "SELECT LAST_INSERT_ID()").Scan(&id); err != nil {
		return 0, wrapBackendError(err)
	}
	return id, nil
}

func (mysqlAdapter) AffectedRows(_ context.Context, _ *sql.Conn, result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapBackendError(err)
	}
	return n, nil
}
