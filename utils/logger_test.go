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

package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "set")
	assert.Equal(t, "set", EnvDefaultString("UTILS_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("UTILS_TEST_MISSING", "def"))

	t.Setenv("UTILS_TEST_BOOL", "true")
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_MISSING", true))

	t.Setenv("UTILS_TEST_BAD_BOOL", "not-a-bool")
	assert.False(t, EnvDefaultBool("UTILS_TEST_BAD_BOOL", false))
}

func TestParseLevel(t *testing.T) {
	level, ok := parseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logrus.DebugLevel, level)

	level, ok = parseLevel(" WARNING ")
	assert.True(t, ok)
	assert.Equal(t, logrus.WarnLevel, level)

	_, ok = parseLevel("nonsense")
	assert.False(t, ok)
}

func TestNewLoggerRegistry(t *testing.T) {
	a := NewLogger("REGTEST")
	b := NewLogger("REGTEST")
	assert.Same(t, a, b, "names resolve to one shared logger")

	SetLoggerLevel("REGTEST", "error")
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())

	// an invalid level leaves the logger untouched
	SetLoggerLevel("REGTEST", "nonsense")
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", TimestampFormat: "2006-01-02 15:04:05.000"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "pool created",
		Data:    logrus.Fields{"backend": "sqlite"},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "2025-06-01 10:30:00.000")
	assert.Contains(t, s, "[DATABASE")
	assert.Contains(t, s, "pool created")
	assert.Contains(t, s, "backend=sqlite")
}
