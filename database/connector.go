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
	"time"

	"github.com/tomoncle/remora/types"
)

// Connector is a bound database session. It owns exactly one connection
// borrowed from the shared pool for its lifetime and must be closed to return
// it. A Connector processes one request at a time and is not safe for use
// from multiple goroutines; open one Connector per unit of work.
type Connector struct {
	params      ConnectionParameters
	adapter     Adapter
	conn        *sql.Conn
	logger      Logger
	hooks       []ConnectorHook
	inTx        bool
	tableLocked bool
	closed      bool
}

// Connect borrows a connection for a parameter set from the registry's pool,
// creating the pool on first use. It fails with DatabaseError when the
// registry has not been started.
func (r *PoolRegistry) Connect(ctx context.Context, params ConnectionParameters) (*Connector, error) {
	entry, err := r.acquire(params)
	if err != nil {
		return nil, err
	}
	adapter, err := newAdapter(params.Backend())
	if err != nil {
		return nil, err
	}
	conn, err := entry.sqlDB.Conn(ctx)
	if err != nil {
		return nil, &DatabaseError{Message: "failed to borrow connection from pool", Err: err}
	}
	return &Connector{
		params:  params,
		adapter: adapter,
		conn:    conn,
		logger:  r.logger,
		hooks:   r.connectorHooks(),
	}, nil
}

// Backend returns the backend identifier of the bound session.
func (c *Connector) Backend() string { return c.adapter.Backend() }

// QuoteIdent quotes a table or column identifier for this backend.
func (c *Connector) QuoteIdent(name string) string { return c.adapter.QuoteIdent(name) }

// FixPlaceholder exposes the backend placeholder rewrite, mainly for callers
// composing statements outside the Connector.
func (c *Connector) FixPlaceholder(query string) string {
	return c.adapter.FixPlaceholder(query)
}

// InTransaction reports whether an explicit transaction is open.
func (c *Connector) InTransaction() bool { return c.inTx }

func (c *Connector) guard() error {
	if c.closed || c.conn == nil {
		return NewDatabaseError("connector is closed")
	}
	return nil
}

func (c *Connector) fire(ctx context.Context, event *QueryEvent) {
	for _, h := range c.hooks {
		h.AfterQuery(ctx, event)
	}
}

func (c *Connector) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	fixed := c.adapter.FixPlaceholder(query)
	bind := make([]interface{}, len(args))
	for i, a := range args {
		bind[i] = c.adapter.BindValue(a)
	}
	event := &QueryEvent{Query: fixed, Args: bind, StartTime: time.Now()}
	res, err := c.conn.ExecContext(ctx, fixed, bind...)
	event.Err = err
	c.fire(ctx, event)
	if err != nil {
		return nil, wrapBackendError(err)
	}
	return res, nil
}

func (c *Connector) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	fixed := c.adapter.FixPlaceholder(query)
	bind := make([]interface{}, len(args))
	for i, a := range args {
		bind[i] = c.adapter.BindValue(a)
	}
	event := &QueryEvent{Query: fixed, Args: bind, StartTime: time.Now()}
	rows, err := c.conn.QueryContext(ctx, fixed, bind...)
	event.Err = err
	c.fire(ctx, event)
	if err != nil {
		return nil, wrapBackendError(err)
	}
	return rows, nil
}

// Execute runs a statement written with generic `?` placeholders and returns
// the affected row count.
func (c *Connector) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return c.adapter.AffectedRows(ctx, c.conn, res)
}

// FetchRecords runs a query and binds every result row into an ordered
// RecordMap. An empty result set yields an empty slice, not an error.
func (c *Connector) FetchRecords(ctx context.Context, query string, args ...interface{}) ([]*types.RecordMap, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapBackendError(err)
	}

	var records []*types.RecordMap
	for rows.Next() {
		holders := make([]interface{}, len(columns))
		for i := range holders {
			holders[i] = new(interface{})
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, wrapBackendError(err)
		}
		record := types.NewRecordMap(columns...)
		for i, col := range columns {
			record.Set(col, types.ValueOf(*(holders[i].(*interface{}))))
		}
		record.MarkFetched()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackendError(err)
	}
	return records, nil
}

// FetchRecord runs a query and binds the first result row. It fails with
// DataNotFoundError when the result set is empty.
func (c *Connector) FetchRecord(ctx context.Context, query string, args ...interface{}) (*types.RecordMap, error) {
	records, err := c.FetchRecords(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NewDataNotFoundError("record not found")
	}
	return records[0], nil
}

// FetchField returns the first column of the first result row. It fails with
// DataNotFoundError when the result set is empty or carries no columns.
func (c *Connector) FetchField(ctx context.Context, query string, args ...interface{}) (types.Value, error) {
	record, err := c.FetchRecord(ctx, query, args...)
	if err != nil {
		return types.NewNull(), err
	}
	columns := record.Columns()
	if len(columns) == 0 {
		return types.NewNull(), NewDataNotFoundError("field not found")
	}
	value, _ := record.Get(columns[0])
	return value, nil
}

// SetStatementTimeout bounds query execution time on this session with the
// backend-specific statement.
func (c *Connector) SetStatementTimeout(ctx context.Context, timeout time.Duration) error {
	if err := c.guard(); err != nil {
		return err
	}
	_, err := c.exec(ctx, c.adapter.StatementTimeoutStatement(timeout))
	return err
}

// Begin opens a transaction with a backend-native statement. The optional
// mode applies to the embedded backend only.
func (c *Connector) Begin(ctx context.Context, mode ...BeginMode) error {
	if err := c.guard(); err != nil {
		return err
	}
	if c.inTx {
		return NewDatabaseError("transaction already in progress")
	}
	m := BeginDeferred
	if len(mode) > 0 {
		m = mode[0]
	}
	if _, err := c.exec(ctx, c.adapter.BeginStatement(m)); err != nil {
		return err
	}
	c.inTx = true
	return nil
}

// Commit commits the open transaction.
func (c *Connector) Commit(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	if !c.inTx {
		return NewDatabaseError("no transaction in progress")
	}
	if _, err := c.exec(ctx, "COMMIT"); err != nil {
		return err
	}
	c.inTx = false
	return c.releaseTableLocks(ctx)
}

// Rollback rolls back the open transaction.
func (c *Connector) Rollback(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	if !c.inTx {
		return NewDatabaseError("no transaction in progress")
	}
	if _, err := c.exec(ctx, "ROLLBACK"); err != nil {
		return err
	}
	c.inTx = false
	return c.releaseTableLocks(ctx)
}

// LockTable acquires a fail-fast write lock on a table. The lock is requested
// NOWAIT-style: if it cannot be granted immediately the call fails with
// DatabaseError instead of queueing, and the caller decides whether to retry.
func (c *Connector) LockTable(ctx context.Context, table string) error {
	return c.lock(ctx, table, false)
}

// LockTableAsReadonly acquires a fail-fast shared lock on a table: concurrent
// readers stay allowed, writers are kept out.
func (c *Connector) LockTableAsReadonly(ctx context.Context, table string) error {
	return c.lock(ctx, table, true)
}

func (c *Connector) lock(ctx context.Context, table string, readonly bool) error {
	if err := c.guard(); err != nil {
		return err
	}
	stmts, beginsTx, err := c.adapter.LockStatements(table, readonly, c.inTx)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := c.exec(ctx, stmt); err != nil {
			return err
		}
	}
	if beginsTx {
		c.inTx = true
	}
	if len(stmts) > 0 && len(c.adapter.UnlockStatements()) > 0 {
		c.tableLocked = true
	}
	return nil
}

// releaseTableLocks issues the backend's unlock statements when a
// session-scoped table lock is held.
func (c *Connector) releaseTableLocks(ctx context.Context) error {
	if !c.tableLocked {
		return nil
	}
	for _, stmt := range c.adapter.UnlockStatements() {
		if _, err := c.exec(ctx, stmt); err != nil {
			return err
		}
	}
	c.tableLocked = false
	return nil
}

// ExistsTable reports whether the table exists in the backend catalog.
func (c *Connector) ExistsTable(ctx context.Context, table string) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	return c.adapter.ExistsTable(ctx, c.conn, table)
}

// FetchColumns returns the table's column names in ordinal order.
func (c *Connector) FetchColumns(ctx context.Context, table string) ([]string, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	return c.adapter.FetchColumns(ctx, c.conn, table)
}

// LastInsertID returns the identifier generated by the last insert on this
// session.
func (c *Connector) LastInsertID(ctx context.Context) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	return c.adapter.LastInsertID(ctx, c.conn)
}

// Close releases the borrowed connection back to the pool. An open
// transaction is rolled back best-effort first. Close is idempotent.
func (c *Connector) Close() error {
	if c.closed || c.conn == nil {
		return nil
	}
	if c.inTx {
		if _, err := c.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			c.logger.Warn("Rollback on close failed", "error", err)
		}
		c.inTx = false
	}
	if c.tableLocked {
		for _, stmt := range c.adapter.UnlockStatements() {
			if _, err := c.conn.ExecContext(context.Background(), stmt); err != nil {
				c.logger.Warn("Releasing table lock on close failed", "error", err)
				break
			}
		}
		c.tableLocked = false
	}
	err := c.conn.Close()
	c.conn = nil
	c.closed = true
	if err != nil {
		return &DatabaseError{Message: "failed to release connection", Err: err}
	}
	return nil
}
