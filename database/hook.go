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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// querySilentMode is read by hooks on every statement while callers may
// toggle it concurrently, hence the atomic.
var querySilentMode atomic.Bool

// EnableQuerySilent suppresses all query hook output.
func EnableQuerySilent(b bool) {
	querySilentMode.Store(b)
}

func colorWrap(s, code string) string { return fmt.Sprintf("%s%s%s", code, s, ansiReset) }

// QueryEvent describes one statement executed through a Connector. Raw
// statements bypass the Bun formatter, so the Connector fires these events
// itself.
type QueryEvent struct {
	Query     string
	Args      []interface{}
	StartTime time.Time
	Err       error
}

// Operation returns the leading SQL keyword of the statement.
func (e *QueryEvent) Operation() string {
	q := strings.TrimSpace(e.Query)
	if idx := strings.IndexAny(q, " \t\r\n"); idx > 0 {
		q = q[:idx]
	}
	return strings.ToUpper(q)
}

// ConnectorHook observes statements executed through a Connector.
type ConnectorHook interface {
	AfterQuery(ctx context.Context, event *QueryEvent)
}

// QueryLogHook prints every executed statement to the console, colorized per
// operation. The REMORA_QUERY_LOG environment variable overrides it at
// runtime: empty or "0" disables, "2" switches to verbose.
type QueryLogHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ ConnectorHook = (*QueryLogHook)(nil)

// NewQueryLogHook returns a hook logging to stdout.
func NewQueryLogHook() *QueryLogHook {
	return &QueryLogHook{
		envName: "REMORA_QUERY_LOG",
		enabled: true,
		verbose: true,
		writer:  os.Stdout,
	}
}

func (h *QueryLogHook) AfterQuery(_ context.Context, event *QueryEvent) {
	if querySilentMode.Load() {
		return
	}
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	dur := now.Sub(event.StartTime)

	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%13s", "[SQL]"), ansiCyan),
		fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
		"  ", formatOperationColor(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args,
			"\t",
			color.New(color.BgRed).Sprintf(" %s ", typ+": "+event.Err.Error()),
		)
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func formatOperationColor(event *QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return colorWrap(event.Query, ansiGreen)
	case "INSERT":
		return colorWrap(event.Query, ansiBlue)
	case "UPDATE":
		return colorWrap(event.Query, ansiYellow)
	case "DELETE":
		return colorWrap(event.Query, ansiMagenta)
	default:
		return colorWrap(event.Query, ansiRed)
	}
}

// SlowQueryHook warns about successful statements slower than a threshold.
type SlowQueryHook struct {
	envName  string
	enabled  bool
	slowTime time.Duration
	writer   io.Writer
}

var _ ConnectorHook = (*SlowQueryHook)(nil)

// NewSlowQueryHook returns a slow-query hook logging to stdout. The
// REMORA_SLOW_QUERY_LOG environment variable overrides enablement.
func NewSlowQueryHook(slowTime time.Duration) *SlowQueryHook {
	return &SlowQueryHook{
		envName:  "REMORA_SLOW_QUERY_LOG",
		enabled:  true,
		slowTime: slowTime,
		writer:   os.Stdout,
	}
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *QueryEvent) {
	if querySilentMode.Load() || event.Err != nil {
		return
	}
	enabled := h.enabled
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = strings.TrimSpace(env) == "1"
	}
	if !enabled {
		return
	}
	duration := time.Since(event.StartTime)
	if duration <= h.slowTime {
		return
	}
	args := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%13s", "[SQL_SLOW]"), ansiYellow),
		fmt.Sprintf("%17s", duration.Round(time.Microsecond)),
		"  ", colorWrap(event.Query, ansiRed),
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}
