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
	"fmt"

	"github.com/tomoncle/remora/types"
)

// RecordConflictError reports that a save found stored rows whose version
// diverged from the in-memory state. Conflicts carries the stored rows so the
// caller can drive a merge or retry.
type RecordConflictError struct {
	Table     string
	Conflicts []*types.RecordMap
}

func (e *RecordConflictError) Error() string {
	return fmt.Sprintf("record conflict on table %s: %d stored record(s) diverged", e.Table, len(e.Conflicts))
}

// RecordMapValidationError reports that a record failed domain validation
// before any backend call was made.
type RecordMapValidationError struct {
	Column string
	Reason string
}

func (e *RecordMapValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("record validation failed on column %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("record validation failed: %s", e.Reason)
}

// NewRecordMapValidationError builds a validation error for a column.
func NewRecordMapValidationError(column, format string, args ...interface{}) *RecordMapValidationError {
	return &RecordMapValidationError{Column: column, Reason: fmt.Sprintf(format, args...)}
}
