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

	"github.com/tomoncle/remora/database"
	"github.com/tomoncle/remora/types"
)

// SingleRecordBinder is a RecordBinder specialized to exactly one row. Edit
// enforces uniqueness, soft-deleted rows surface as not-found, and
// PhysicalDelete removes the matched rows outright.
type SingleRecordBinder struct {
	RecordBinder
}

// NewSingleRecordBinder returns an unbound single-record binder for a table.
func NewSingleRecordBinder(table *Table) *SingleRecordBinder {
	return &SingleRecordBinder{RecordBinder: RecordBinder{table: table, logger: database.GetLogger()}}
}

// Edit fetches the single row matching the search condition and binds it.
// Zero matches, a soft-deleted match, or multiple matches leave the binder
// unbound: the first two raise DataNotFoundError, the last a DatabaseError.
func (b *SingleRecordBinder) Edit(ctx context.Context, where *WhereSet, orders ...string) error {
	if err := b.RecordBinder.Edit(ctx, where, orders...); err != nil {
		return err
	}
	switch {
	case len(b.records) == 0:
		b.where = nil
		return database.NewDataNotFoundError("record not found in table %s", b.table.Name)
	case len(b.records) > 1:
		b.records = nil
		b.where = nil
		return database.NewDatabaseError("multiple records found in table %s, expected one", b.table.Name)
	}
	if b.IsDeleted() {
		b.records = nil
		b.where = nil
		return database.NewDataNotFoundError("record in table %s is logically deleted", b.table.Name)
	}
	return nil
}

// Record returns the bound record, or nil when unbound.
func (b *SingleRecordBinder) Record() *types.RecordMap {
	if len(b.records) == 0 {
		return nil
	}
	return b.records[0]
}

// IsDeleted reports whether the bound record is soft-deleted. The IsDeleted
// hook takes precedence; otherwise the table's DeleteFlagColumn is read as a
// truthy flag. Tables without either are never soft-deleted.
func (b *SingleRecordBinder) IsDeleted() bool {
	rec := b.Record()
	if rec == nil {
		return false
	}
	if b.hooks.IsDeleted != nil {
		return b.hooks.IsDeleted(rec)
	}
	if b.table.DeleteFlagColumn == "" {
		return false
	}
	flag, ok := rec.Get(b.table.DeleteFlagColumn)
	if !ok {
		return false
	}
	return isTruthy(flag)
}

// PhysicalDelete removes the rows matching the bound search condition from
// the backend. It acts on the condition, not the bound record, so it works
// even when the row is soft-deleted and Edit refused to bind it; the caller
// supplies the condition through a prior Edit (successful or not-found).
func (b *SingleRecordBinder) PhysicalDelete(ctx context.Context, where *WhereSet) error {
	if b.connector == nil {
		return database.NewDatabaseError("connector is not bound")
	}
	if where == nil || where.Len() == 0 {
		return database.NewDatabaseError("search condition is not bound")
	}
	quote := b.connector.QuoteIdent
	clause, args := where.Render(quote)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quote(b.table.Name), clause)
	if _, err := b.connector.Execute(ctx, query, args...); err != nil {
		return err
	}
	b.records = nil
	b.where = nil
	return nil
}

func isTruthy(v types.Value) bool {
	switch v.Kind() {
	case types.KindNull:
		return false
	case types.KindBool:
		return v.Bool()
	case types.KindInt:
		return v.Int64() != 0
	case types.KindFloat:
		return v.Float64() != 0
	case types.KindString:
		s := v.Text()
		return s != "" && s != "0" && s != "false"
	default:
		return false
	}
}
