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

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"
)

// ValueKind identifies the concrete shape carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
)

func (k ValueKind) IsValid() bool {
	return k >= KindNull && k <= KindBytes
}

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a closed tagged union for bind parameters and row fields. A Value
// is immutable once constructed; the zero Value is the SQL NULL.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	bln  bool
	tm   time.Time
	raw  []byte
}

// NewNull returns the SQL NULL value.
func NewNull() Value { return Value{} }

// NewString wraps a text value.
func NewString(s string) Value { return Value{kind: KindString, str: s} }

// NewInt wraps an integer value.
func NewInt(i int64) Value { return Value{kind: KindInt, num: i} }

// NewFloat wraps a floating point value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, flt: f} }

// NewBool wraps a boolean value.
func NewBool(b bool) Value { return Value{kind: KindBool, bln: b} }

// NewTime wraps a date/time value.
func NewTime(t time.Time) Value { return Value{kind: KindTime, tm: t} }

// NewBytes wraps a byte buffer. The buffer is copied.
func NewBytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, raw: cp}
}

// ValueOf converts a value produced by a database driver scan into a tagged
// Value. Drivers only hand back the canonical database/sql types, so anything
// else is stored through its string representation.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return NewNull()
	case Value:
		return x
	case string:
		return NewString(x)
	case bool:
		return NewBool(x)
	case int:
		return NewInt(int64(x))
	case int32:
		return NewInt(int64(x))
	case int64:
		return NewInt(x)
	case float32:
		return NewFloat(float64(x))
	case float64:
		return NewFloat(x)
	case time.Time:
		return NewTime(x)
	case sql.RawBytes:
		return NewBytes(x)
	case []byte:
		return NewBytes(x)
	default:
		return NewString(fmt.Sprintf("%v", x))
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string payload, or "" for any other kind.
func (v Value) Text() string { return v.str }

// Int64 returns the integer payload, or 0 for any other kind.
func (v Value) Int64() int64 { return v.num }

// Float64 returns the float payload, or 0 for any other kind.
func (v Value) Float64() float64 { return v.flt }

// Bool returns the boolean payload, or false for any other kind.
func (v Value) Bool() bool { return v.bln }

// Time returns the date/time payload, or the zero time for any other kind.
func (v Value) Time() time.Time { return v.tm }

// Bytes returns the byte payload, or nil for any other kind.
func (v Value) Bytes() []byte { return v.raw }

// Any unwraps the Value into the primitive shape database drivers accept.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.bln
	case KindTime:
		return v.tm
	case KindBytes:
		return v.raw
	default:
		return nil
	}
}

// Value implements driver.Valuer so a tagged Value can be passed straight to
// database/sql as a bind parameter.
func (v Value) Value() (driver.Value, error) {
	return v.Any(), nil
}

// Equal reports whether two values carry the same kind and payload. Time
// values compare with time.Time.Equal, byte values byte-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.num == other.num
	case KindFloat:
		return v.flt == other.flt
	case KindBool:
		return v.bln == other.bln
	case KindTime:
		return v.tm.Equal(other.tm)
	case KindBytes:
		return bytes.Equal(v.raw, other.raw)
	default:
		return false
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Any())
}
