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
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/tomoncle/remora/types"
)

// BeginMode selects the transaction locking mode on the embedded backend.
// Server backends begin implicitly and ignore the mode.
type BeginMode int

const (
	BeginDeferred BeginMode = iota
	BeginImmediate
	BeginExclusive
)

func (m BeginMode) String() string {
	switch m {
	case BeginImmediate:
		return "IMMEDIATE"
	case BeginExclusive:
		return "EXCLUSIVE"
	default:
		return "DEFERRED"
	}
}

// Adapter is the backend-specific strategy behind a Connector. Implementations
// are stateless; the Connector owns the borrowed connection and passes it in
// where execution is required. The strategy is selected once, at Connector
// construction time.
type Adapter interface {
	// Backend returns the backend identifier.
	Backend() string

	// FixPlaceholder rewrites generic `?` placeholders into the backend's
	// native positional syntax. Backends with native `?` support return the
	// query unchanged.
	FixPlaceholder(query string) string

	// BindValue coerces a tagged or wrapped value into the primitive shape
	// the driver accepts. Unrecognized types pass through unchanged.
	BindValue(value interface{}) interface{}

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string

	// StatementTimeoutStatement returns the statement bounding query
	// execution time on this session.
	StatementTimeoutStatement(timeout time.Duration) string

	// BeginStatement returns the backend-native transaction start statement.
	BeginStatement(mode BeginMode) string

	// LockStatements returns the statements acquiring a fail-fast table lock.
	// beginsTx reports that executing them opens a transaction on the
	// session (the embedded backend locks the whole database this way).
	LockStatements(table string, readonly bool, inTx bool) (stmts []string, beginsTx bool, err error)

	// UnlockStatements returns the statements releasing a session-scoped
	// table lock before the connection returns to the pool. Backends whose
	// locks end with the transaction return nothing.
	UnlockStatements() []string

	// ExistsTable reports whether the table exists in the backend catalog.
	ExistsTable(ctx context.Context, conn *sql.Conn, table string) (bool, error)

	// FetchColumns returns the table's column names in ordinal order.
	FetchColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error)

	// LastInsertID returns the identifier generated by the last insert on
	// this session.
	LastInsertID(ctx context.Context, conn *sql.Conn) (int64, error)

	// AffectedRows shapes the affected-row count of a completed write.
	AffectedRows(ctx context.Context, conn *sql.Conn, result sql.Result) (int64, error)
}

// newAdapter selects the strategy for a backend identifier.
func newAdapter(backend string) (Adapter, error) {
	switch backend {
	case BackendPostgres:
		return postgresAdapter{}, nil
	case BackendMySQL:
		return mysqlAdapter{}, nil
	case BackendSQLite:
		return sqliteAdapter{}, nil
	default:
		return nil, NewDatabaseError("unsupported database type: %s", backend)
	}
}

// bindValue is the coercion shared by every backend: tagged values unwrap to
// their primitive, Valuer implementations serialize themselves, and anything
// else passes through for the driver to judge.
func bindValue(value interface{}) interface{} {
	switch v := value.(type) {
	case types.Value:
		return v.Any()
	case *types.Value:
		if v == nil {
			return nil
		}
		return v.Any()
	case time.Time, driver.Valuer, nil:
		return value
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}

// quoteDoubleIdent quotes an identifier with double quotes, doubling embedded
// quotes (PostgreSQL and SQLite convention).
func quoteDoubleIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}
