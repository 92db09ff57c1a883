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
	"fmt"
	"strings"

	"github.com/tomoncle/remora/database"
	"github.com/tomoncle/remora/types"
)

// Hooks customize binder behavior per table. All hooks are optional.
type Hooks struct {
	// DefaultRecord populates the default record for SetDefaultRecord. A
	// failure falls back to the bare empty record and is logged, not raised.
	DefaultRecord func(t *Table) (*types.RecordMap, error)
	// Validate checks a record before any write reaches the backend. Return
	// a *RecordMapValidationError to reject the record.
	Validate func(r *types.RecordMap) error
	// IsDeleted overrides the soft-delete predicate derived from the table's
	// DeleteFlagColumn.
	IsDeleted func(r *types.RecordMap) bool
}

// RecordBinder binds zero or more rows of one table to an in-memory ordered
// collection of RecordMaps. A binder starts unbound; a successful fetch binds
// it, and save or validation failures leave it unbound again. Binders are not
// safe for concurrent use; create one per unit of work, like the Connector it
// drives.
type RecordBinder struct {
	table     *Table
	connector *database.Connector
	hooks     Hooks
	logger    database.Logger
	records   []*types.RecordMap
	where     *WhereSet
}

// NewRecordBinder returns an unbound binder for a table.
func NewRecordBinder(table *Table) *RecordBinder {
	return &RecordBinder{table: table, logger: database.GetLogger()}
}

// SetConnector binds the session the binder issues its statements through.
func (b *RecordBinder) SetConnector(c *database.Connector) { b.connector = c }

// SetHooks installs the table-specific hooks.
func (b *RecordBinder) SetHooks(h Hooks) { b.hooks = h }

// Table returns the schema descriptor.
func (b *RecordBinder) Table() *Table { return b.table }

// Records returns the bound collection in fetch order.
func (b *RecordBinder) Records() []*types.RecordMap { return b.records }

// Count returns the number of bound records.
func (b *RecordBinder) Count() int { return len(b.records) }

// Where returns the search condition of the last edit, or nil when unbound.
func (b *RecordBinder) Where() *WhereSet { return b.where }

// SetDefaultRecord populates the binder with one default record. The
// DefaultRecord hook is attempted first; any failure from it is logged and
// the bare empty record of the table is used instead.
func (b *RecordBinder) SetDefaultRecord() {
	rec := b.table.NewRecord()
	if b.hooks.DefaultRecord != nil {
		populated, err := b.hooks.DefaultRecord(b.table)
		if err != nil {
			b.logger.Warn("Default record hook failed, falling back to empty record",
				"table", b.table.Name, "error", err)
		} else if populated != nil {
			rec = populated
		}
	}
	b.records = []*types.RecordMap{rec}
	b.where = nil
}

func (b *RecordBinder) selectQuery(where *WhereSet, orders []string) (string, []interface{}) {
	quote := b.connector.QuoteIdent
	columns := make([]string, len(b.table.Columns))
	for i, c := range b.table.Columns {
		columns[i] = quote(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), quote(b.table.Name))
	var args []interface{}
	if where != nil && where.Len() > 0 {
		clause, whereArgs := where.Render(quote)
		query += " WHERE " + clause
		args = whereArgs
	}
	if len(orders) > 0 {
		query += " ORDER BY " + strings.Join(orders, ", ")
	}
	return query, args
}

// Edit fetches the rows matching the search condition, in the caller-defined
// ordering, and binds them. A nil condition binds the whole table.
func (b *RecordBinder) Edit(ctx context.Context, where *WhereSet, orders ...string) error {
	if b.connector == nil {
		return database.NewDatabaseError("connector is not bound")
	}
	query, args := b.selectQuery(where, orders)
	records, err := b.connector.FetchRecords(ctx, query, args...)
	if err != nil {
		b.records = nil
		return err
	}
	b.records = records
	b.where = where
	return nil
}

// EditPage fetches one page of the rows matching the search condition and
// binds it, returning the page together with the total match count.
func (b *RecordBinder) EditPage(ctx context.Context, where *WhereSet, page *types.PageRequest) (*types.Pagination[types.RecordMap], error) {
	if b.connector == nil {
		return nil, database.NewDatabaseError("connector is not bound")
	}
	quote := b.connector.QuoteIdent
	pagination := types.NewDefaultPagination[types.RecordMap](page.GetPage(), page.GetPageSize())

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(b.table.Name))
	var args []interface{}
	if where != nil && where.Len() > 0 {
		clause, whereArgs := where.Render(quote)
		countQuery += " WHERE " + clause
		args = whereArgs
	}
	total, err := b.connector.FetchField(ctx, countQuery, args...)
	if err != nil {
		return nil, err
	}
	pagination.Total = int(total.Int64())
	if pagination.Total == 0 {
		b.records = nil
		b.where = where
		return pagination, nil
	}

	query, queryArgs := b.selectQuery(where, page.GetOrders())
	query += " LIMIT ? OFFSET ?"
	queryArgs = append(queryArgs, page.GetPageSize(), page.GetOffset())
	records, err := b.connector.FetchRecords(ctx, query, queryArgs...)
	if err != nil {
		b.records = nil
		return nil, err
	}
	b.records = records
	b.where = where
	pagination.Items = records
	return pagination, nil
}

func (b *RecordBinder) validate() error {
	if b.hooks.Validate == nil {
		return nil
	}
	for _, rec := range b.records {
		if err := b.hooks.Validate(rec); err != nil {
			b.records = nil
			return err
		}
	}
	return nil
}

// Insert writes every bound record as a new row. It requires a live Connector
// and a non-empty bound collection; validation runs before any backend call.
func (b *RecordBinder) Insert(ctx context.Context) error {
	if b.connector == nil {
		return database.NewDatabaseError("connector is not bound")
	}
	if len(b.records) == 0 {
		return database.NewDatabaseError("record is not bound")
	}
	if err := b.validate(); err != nil {
		return err
	}
	quote := b.connector.QuoteIdent
	for _, rec := range b.records {
		columns := rec.Columns()
		quoted := make([]string, len(columns))
		marks := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			quoted[i] = quote(col)
			marks[i] = "?"
			value, _ := rec.Get(col)
			args[i] = value
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(b.table.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))
		if _, err := b.connector.Execute(ctx, query, args...); err != nil {
			b.records = nil
			return err
		}
	}
	b.refreshSnapshots()
	return nil
}

// refreshSnapshots re-marks every bound record as fetched after a successful
// save, so the bound state stays consistent with the backend and the binder's
// own write is never reported as a conflict on the next save.
func (b *RecordBinder) refreshSnapshots() {
	for _, rec := range b.records {
		rec.MarkFetched()
	}
}

// matchStored pairs a bound record with its stored counterpart, by primary
// key when the table declares one, by position otherwise.
func (b *RecordBinder) matchStored(stored []*types.RecordMap, rec *types.RecordMap, idx int) *types.RecordMap {
	if len(b.table.PrimaryKeys) > 0 && rec.IsFetched() {
		for _, candidate := range stored {
			match := true
			for _, pk := range b.table.PrimaryKeys {
				origin, ok := rec.Origin(pk)
				if !ok {
					match = false
					break
				}
				current, ok := candidate.Get(pk)
				if !ok || !current.Equal(origin) {
					match = false
					break
				}
			}
			if match {
				return candidate
			}
		}
		return nil
	}
	if idx < len(stored) {
		return stored[idx]
	}
	return nil
}

// checkConflicts compares the stored version column against each record's
// origin snapshot and collects the stored rows that diverged.
func (b *RecordBinder) checkConflicts(ctx context.Context) error {
	vc := b.table.VersionColumn
	if vc == "" || b.where == nil {
		return nil
	}
	query, args := b.selectQuery(b.where, nil)
	stored, err := b.connector.FetchRecords(ctx, query, args...)
	if err != nil {
		return err
	}
	var conflicts []*types.RecordMap
	for i, rec := range b.records {
		origin, ok := rec.Origin(vc)
		if !ok {
			continue
		}
		counterpart := b.matchStored(stored, rec, i)
		if counterpart == nil {
			continue
		}
		current, ok := counterpart.Get(vc)
		if ok && !current.Equal(origin) {
			conflicts = append(conflicts, counterpart)
		}
	}
	if len(conflicts) > 0 {
		b.records = nil
		return &RecordConflictError{Table: b.table.Name, Conflicts: conflicts}
	}
	return nil
}

// Update writes every bound record back, targeted by the bound search
// condition plus the record's primary key values when available. It requires
// a Connector, a bound record, and a bound WhereSet; validation and the
// optimistic conflict check run before the first write.
func (b *RecordBinder) Update(ctx context.Context) error {
	if b.connector == nil {
		return database.NewDatabaseError("connector is not bound")
	}
	if len(b.records) == 0 {
		return database.NewDatabaseError("record is not bound")
	}
	if b.where == nil || b.where.Len() == 0 {
		return database.NewDatabaseError("search condition is not bound")
	}
	if err := b.validate(); err != nil {
		return err
	}
	if err := b.checkConflicts(ctx); err != nil {
		return err
	}

	quote := b.connector.QuoteIdent
	clause, whereArgs := b.where.Render(quote)
	for _, rec := range b.records {
		var sets []string
		var args []interface{}
		for _, col := range rec.Columns() {
			if b.table.isPrimaryKey(col) {
				continue
			}
			value, _ := rec.Get(col)
			sets = append(sets, quote(col)+" = ?")
			args = append(args, value)
		}
		if len(sets) == 0 {
			continue
		}
		target := clause
		targetArgs := append(args, whereArgs...)
		for _, pk := range b.table.PrimaryKeys {
			if origin, ok := rec.Origin(pk); ok {
				target += " AND " + quote(pk) + " = ?"
				targetArgs = append(targetArgs, origin)
			}
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
			quote(b.table.Name), strings.Join(sets, ", "), target)
		if _, err := b.connector.Execute(ctx, query, targetArgs...); err != nil {
			b.records = nil
			return err
		}
	}
	b.refreshSnapshots()
	return nil
}

// Save writes the bound collection back: fetched records update, fresh
// records insert.
func (b *RecordBinder) Save(ctx context.Context) error {
	if len(b.records) == 0 {
		return database.NewDatabaseError("record is not bound")
	}
	fetched := true
	for _, rec := range b.records {
		if !rec.IsFetched() {
			fetched = false
			break
		}
	}
	if fetched {
		return b.Update(ctx)
	}
	return b.Insert(ctx)
}
