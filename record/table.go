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

import "github.com/tomoncle/remora/types"

// Table is a schema descriptor supplied by the caller and immutable once a
// binder uses it. DeleteFlagColumn and VersionColumn are optional: tables
// without a soft-delete flag are physically deleted only, and tables without
// a version column skip the optimistic conflict check on update.
type Table struct {
	Name             string
	Columns          []string
	PrimaryKeys      []string
	DeleteFlagColumn string
	VersionColumn    string
}

// NewRecord returns the default (empty) record for this table: every column
// present, every value NULL.
func (t *Table) NewRecord() *types.RecordMap {
	return types.NewRecordMap(t.Columns...)
}

// HasColumn reports whether the table declares a column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) isPrimaryKey(name string) bool {
	for _, c := range t.PrimaryKeys {
		if c == name {
			return true
		}
	}
	return false
}
