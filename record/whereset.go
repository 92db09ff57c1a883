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

import "strings"

// Comparison is one column comparison inside a WhereSet.
type Comparison struct {
	Column   string
	Operator string
	Value    interface{}
}

// WhereSet is an ordered, AND-composed list of column comparisons. It renders
// deterministically in insertion order to `column OP ?` fragments, with the
// values collected into a parallel parameter array.
type WhereSet struct {
	comparisons []Comparison
}

// NewWhereSet returns an empty where set.
func NewWhereSet() *WhereSet {
	return &WhereSet{}
}

// Add appends a comparison and returns the set for chaining.
func (w *WhereSet) Add(column, operator string, value interface{}) *WhereSet {
	w.comparisons = append(w.comparisons, Comparison{Column: column, Operator: operator, Value: value})
	return w
}

// Equals appends an equality comparison.
func (w *WhereSet) Equals(column string, value interface{}) *WhereSet {
	return w.Add(column, "=", value)
}

// Comparisons returns the comparisons in insertion order.
func (w *WhereSet) Comparisons() []Comparison {
	out := make([]Comparison, len(w.comparisons))
	copy(out, w.comparisons)
	return out
}

// Len returns the number of comparisons.
func (w *WhereSet) Len() int { return len(w.comparisons) }

// Render produces the placeholder clause and its parameter array. The quote
// function quotes column identifiers for the target backend; pass nil to keep
// them bare.
func (w *WhereSet) Render(quote func(string) string) (string, []interface{}) {
	if len(w.comparisons) == 0 {
		return "", nil
	}
	fragments := make([]string, 0, len(w.comparisons))
	args := make([]interface{}, 0, len(w.comparisons))
	for _, c := range w.comparisons {
		column := c.Column
		if quote != nil {
			column = quote(column)
		}
		fragments = append(fragments, column+" "+c.Operator+" ?")
		args = append(args, c.Value)
	}
	return strings.Join(fragments, " AND "), args
}
