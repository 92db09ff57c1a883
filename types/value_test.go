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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructorsAndAccessors(t *testing.T) {
	assert.True(t, NewNull().IsNull())
	assert.Equal(t, KindNull, Value{}.Kind(), "the zero Value is NULL")

	v := NewString("hello")
	assert.Equal(t, KindString, v.Kind())
	assert.Equal(t, "hello", v.Text())

	assert.Equal(t, int64(42), NewInt(42).Int64())
	assert.Equal(t, 3.14, NewFloat(3.14).Float64())
	assert.True(t, NewBool(true).Bool())

	now := time.Now()
	assert.True(t, now.Equal(NewTime(now).Time()))

	b := NewBytes([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, b.Bytes())
}

func TestNewBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	v := NewBytes(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())
}

func TestValueOf(t *testing.T) {
	assert.True(t, ValueOf(nil).IsNull())
	assert.Equal(t, KindString, ValueOf("x").Kind())
	assert.Equal(t, int64(7), ValueOf(7).Int64())
	assert.Equal(t, int64(7), ValueOf(int32(7)).Int64())
	assert.Equal(t, int64(7), ValueOf(int64(7)).Int64())
	assert.Equal(t, 1.5, ValueOf(1.5).Float64())
	assert.True(t, ValueOf(true).Bool())
	assert.Equal(t, KindTime, ValueOf(time.Now()).Kind())
	assert.Equal(t, KindBytes, ValueOf([]byte("raw")).Kind())

	// a tagged value passes through
	tagged := NewInt(1)
	assert.Equal(t, tagged, ValueOf(tagged))

	// unrecognized shapes fall back to their string form
	assert.Equal(t, KindString, ValueOf(struct{ X int }{1}).Kind())
}

func TestValueAny(t *testing.T) {
	assert.Nil(t, NewNull().Any())
	assert.Equal(t, "x", NewString("x").Any())
	assert.Equal(t, int64(1), NewInt(1).Any())

	dv, err := NewString("x").Value()
	require.NoError(t, err)
	assert.Equal(t, "x", dv)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewNull().Equal(NewNull()))
	assert.True(t, NewString("a").Equal(NewString("a")))
	assert.False(t, NewString("a").Equal(NewString("b")))
	assert.False(t, NewInt(1).Equal(NewString("1")), "kind mismatch is never equal")
	assert.True(t, NewBytes([]byte{1}).Equal(NewBytes([]byte{1})))

	utc := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("X", 3600))
	assert.True(t, NewTime(utc).Equal(NewTime(local)), "times compare by instant")
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", NewNull().String())
	assert.Equal(t, "42", NewInt(42).String())
	assert.Equal(t, "abc", NewString("abc").String())
}
