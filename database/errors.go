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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// DatabaseError is the root of the error taxonomy. Every failure surfaced by
// the database core is either a DatabaseError or one of its subtypes. Code
// carries the backend-native error code when one is available.
type DatabaseError struct {
	Code    string
	Class   SQLError
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code %s)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError builds a DatabaseError from a formatted message.
func NewDatabaseError(format string, args ...interface{}) *DatabaseError {
	return &DatabaseError{Message: fmt.Sprintf(format, args...)}
}

// DataNotFoundError reports that a fetch located no usable data. It is a
// subtype of DatabaseError: errors.As with **DatabaseError matches it through
// the unwrap chain.
type DataNotFoundError struct {
	DatabaseError
}

func (e *DataNotFoundError) Unwrap() error { return &e.DatabaseError }

// NewDataNotFoundError builds a DataNotFoundError from a formatted message.
func NewDataNotFoundError(format string, args ...interface{}) *DataNotFoundError {
	return &DataNotFoundError{DatabaseError{Message: fmt.Sprintf(format, args...)}}
}

// IsDataNotFound reports whether err is (or wraps) a DataNotFoundError.
func IsDataNotFound(err error) bool {
	var nf *DataNotFoundError
	return errors.As(err, &nf)
}

// SQLError classifies backend-native failures into backend-independent
// categories.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	LockNotAvailableErr
	StatementTimeoutErr
)

// IsSqlError classifies a driver error. The MySQL driver and lib/pq expose
// typed errors; the SQLite drivers only expose message text, so the fallback
// matches on SQLSTATE fragments and well-known phrasings.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1060:
			return true, ExistColumnErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265:
			return true, DataTruncatedErr
		case 1146:
			return true, NoTableErr
		case 1205, 3572:
			return true, LockNotAvailableErr
		case 3024:
			return true, StatementTimeoutErr
		default:
			return true, UnknownErr
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "42703":
			return true, NoColumnErr
		case "42704":
			return true, NoIndexErr
		case "42P01":
			return true, NoTableErr
		case "42P07":
			return true, ExistTableErr
		case "23505":
			return true, DuplicateKeyErr
		case "23502":
			return true, NotNullViolationErr
		case "23503":
			return true, ForeignKeyViolationErr
		case "23514":
			return true, CheckConstraintViolationErr
		case "22001":
			return true, DataTruncatedErr
		case "42804":
			return true, InvalidTypeCastErr
		case "55P03":
			return true, LockNotAvailableErr
		case "57014":
			return true, StatementTimeoutErr
		default:
			return true, UnknownErr
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "database is locked") ||
		strings.Contains(s, "database table is locked") ||
		strings.Contains(s, "sqlite_busy") ||
		strings.Contains(s, "lock wait timeout") {
		return true, LockNotAvailableErr
	}
	if strings.Contains(s, "interrupted") && strings.Contains(s, "sqlite") {
		return true, StatementTimeoutErr
	}
	if strings.Contains(s, "sqlstate 42703") ||
		strings.Contains(s, "undefined column") ||
		strings.Contains(s, "no such column") {
		return true, NoColumnErr
	}
	if strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") && strings.Contains(s, "index") {
		return true, ExistIndexErr
	}
	if strings.Contains(s, "already exists") &&
		strings.Contains(s, "table") ||
		strings.Contains(s, "relation") &&
			strings.Contains(s, "already exists") {
		return true, ExistTableErr
	}
	if strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "sqlstate 23502") ||
		strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed") ||
		strings.Contains(s, "sqlstate 23503") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint") ||
		strings.Contains(s, "sqlstate 23514") {
		return true, CheckConstraintViolationErr
	}
	if strings.Contains(s, "datatype mismatch") ||
		strings.Contains(s, "sqlstate 42804") {
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}

// wrapBackendError maps a backend-native error into a DatabaseError carrying
// the backend code when available. An error that already belongs to the
// taxonomy passes through unchanged.
func wrapBackendError(err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		nf := NewDataNotFoundError("no rows in result set")
		nf.Err = err
		return nf
	}
	_, class := IsSqlError(err)
	wrapped := &DatabaseError{
		Class:   class,
		Message: "backend execution failed",
		Err:     err,
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		wrapped.Code = fmt.Sprintf("%d", mysqlErr.Number)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		wrapped.Code = string(pqErr.Code)
	}
	return wrapped
}
