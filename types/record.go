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

package types

// RecordMap is an ordered column-name-to-value view of one database row.
// Columns keep their insertion order. A RecordMap fetched from the database
// carries an origin snapshot used to distinguish "freshly fetched" from
// "locally modified" state.
type RecordMap struct {
	columns []string
	values  map[string]Value
	origin  map[string]Value
}

// NewRecordMap returns a record with the given columns, all set to NULL.
func NewRecordMap(columns ...string) *RecordMap {
	r := &RecordMap{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]Value, len(columns)),
	}
	for _, c := range columns {
		r.columns = append(r.columns, c)
		r.values[c] = NewNull()
	}
	return r
}

// Columns returns the column names in insertion order.
func (r *RecordMap) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r *RecordMap) Len() int { return len(r.columns) }

// Has reports whether the column exists.
func (r *RecordMap) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Get returns the value of a column and whether the column exists.
func (r *RecordMap) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Set stores a value. An unknown column is appended, preserving order.
func (r *RecordMap) Set(column string, v Value) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = v
}

// MarkFetched snapshots the current values as the origin state. Binders call
// this after loading a row so later saves can detect local modifications and
// stale versions.
func (r *RecordMap) MarkFetched() {
	r.origin = make(map[string]Value, len(r.values))
	for c, v := range r.values {
		r.origin[c] = v
	}
}

// IsFetched reports whether the record carries an origin snapshot.
func (r *RecordMap) IsFetched() bool { return r.origin != nil }

// Origin returns the value of a column as it was at fetch time.
func (r *RecordMap) Origin(column string) (Value, bool) {
	if r.origin == nil {
		return Value{}, false
	}
	v, ok := r.origin[column]
	return v, ok
}

// Modified reports whether any column differs from its origin snapshot. A
// record without a snapshot counts as modified.
func (r *RecordMap) Modified() bool {
	if r.origin == nil {
		return true
	}
	for c, v := range r.values {
		if o, ok := r.origin[c]; !ok || !v.Equal(o) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, origin snapshot included.
func (r *RecordMap) Clone() *RecordMap {
	cp := &RecordMap{
		columns: make([]string, len(r.columns)),
		values:  make(map[string]Value, len(r.values)),
	}
	copy(cp.columns, r.columns)
	for c, v := range r.values {
		cp.values[c] = v
	}
	if r.origin != nil {
		cp.origin = make(map[string]Value, len(r.origin))
		for c, v := range r.origin {
			cp.origin[c] = v
		}
	}
	return cp
}
