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

// postgresAdapter is the server-backend strategy. Statements are written with
// generic `?` placeholders and rewritten to `$n`; table locks are requested
// NOWAIT so contention surfaces immediately instead of queueing.
type postgresAdapter struct{}

var _ Adapter = postgresAdapter{}

func (postgresAdapter) Backend() string { return BackendPostgres }

func (postgresAdapter) FixPlaceholder(query string) string {
	return convertPlaceholders(query, func(ordinal int) string {
		return fmt.Sprintf("$%d", ordinal)
	})
}

func (postgresAdapter) BindValue(value interface{}) interface{} {
	return bindValue(value)
}

func (postgresAdapter) QuoteIdent(name string) string {
	return quoteDoubleIdent(name)
}

func (postgresAdapter) StatementTimeoutStatement(timeout time.Duration) string {
	return fmt.Sprintf("SET statement_timeout = %d", timeout.Milliseconds())
}

func (postgresAdapter) BeginStatement(BeginMode) string {
	return "BEGIN"
}

func (a postgresAdapter) LockStatements(table string, readonly bool, inTx bool) ([]string, bool, error) {
	if !inTx {
		return nil, false, NewDatabaseError("table lock requires an open transaction")
	}
	mode := "ACCESS EXCLUSIVE"
	if readonly {
		mode = "EXCLUSIVE"
	}
	stmt := fmt.Sprintf("LOCK TABLE %s IN %s MODE NOWAIT", a.QuoteIdent(table), mode)
	return []string{stmt}, false, nil
}

// UnlockStatements returns nothing: LOCK TABLE releases with the transaction.
func (postgresAdapter) UnlockStatements() []string { return nil }

func (postgresAdapter) ExistsTable(ctx context.Context, conn *sql.Conn, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`
	var count int
	if err := conn.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, wrapBackendError(err)
	}
	return count > 0, nil
}

func (postgresAdapter) FetchColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
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

func (postgresAdapter) LastInsertID(ctx context.Context, conn *sql.Conn) (int64, error) {
	var id int64
	if err := conn.QueryRowContext(ctx, "SELECT lastval()").Scan(&id); err != nil {
		return 0, wrapBackendError(err)
	}
	return id, nil
}

func (postgresAdapter) AffectedRows(_ context.Context, _ *sql.Conn, result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapBackendError(err)
	}
	return n, nil
}
