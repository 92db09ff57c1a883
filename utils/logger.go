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
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger aliases the logrus logger so callers do not import logrus directly.
type Logger = logrus.Logger

var (
	defaultConsoleLevel = logrus.InfoLevel
	loggerRegistryMu    sync.RWMutex
	loggerRegistry      = map[string]*logrus.Logger{}
	consoleLogFormat    = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
)

// EnvDefaultString returns the environment value for key, or def when unset.
func EnvDefaultString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// EnvDefaultBool returns the boolean environment value for key, or def when
// unset or unparsable.
func EnvDefaultBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseLevel(s string) (logrus.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel, true
	case "debug":
		return logrus.DebugLevel, true
	case "info":
		return logrus.InfoLevel, true
	case "warn", "warning":
		return logrus.WarnLevel, true
	case "error":
		return logrus.ErrorLevel, true
	default:
		return defaultConsoleLevel, false
	}
}

// NewLogger returns the named logger, creating and registering it on first
// use. The level comes from <NAME>_LOG_LEVEL, then LOG_LEVEL, then the
// default console level.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}

	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok = loggerRegistry[name]; ok {
		return l
	}

	l = logrus.New()
	l.SetOutput(os.Stdout)
	if consoleLogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&Log4jColorFormatter{
			LoggerName:      name,
			TimestampFormat: "2006-01-02 15:04:05.000",
			NameWidth:       10,
		})
	}

	levelEnv := EnvDefaultString(strings.ToUpper(name)+"_LOG_LEVEL", EnvDefaultString("LOG_LEVEL", ""))
	if level, ok := parseLevel(levelEnv); ok {
		l.SetLevel(level)
	} else {
		l.SetLevel(defaultConsoleLevel)
	}

	loggerRegistry[name] = l
	return l
}

// SetLoggerLevel adjusts the level of a registered logger at runtime.
func SetLoggerLevel(name, level string) {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return
	}
	if lv, valid := parseLevel(level); valid {
		l.SetLevel(lv)
	}
}

// Log4jColorFormatter renders entries as
// "2006-01-02 15:04:05.000 [NAME] LEVEL message" with the level colorized
// when the output supports it.
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
}

func (f *Log4jColorFormatter) levelText(level logrus.Level) string {
	text := strings.ToUpper(level.String())
	if text == "WARNING" {
		text = "WARN"
	}
	padded := fmt.Sprintf("%-5s", text)
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return color.New(color.FgCyan).Sprint(padded)
	case logrus.InfoLevel:
		return color.New(color.FgGreen).Sprint(padded)
	case logrus.WarnLevel:
		return color.New(color.FgYellow).Sprint(padded)
	default:
		return color.New(color.FgRed).Sprint(padded)
	}
}

// Format implements logrus.Formatter.
func (f *Log4jColorFormatter) Format(e *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = "2006-01-02 15:04:05.000"
	}
	nameWidth := f.NameWidth
	if nameWidth <= 0 {
		nameWidth = 10
	}

	var b bytes.Buffer
	b.WriteString(e.Time.Format(tsFormat))
	b.WriteString(fmt.Sprintf(" [%-*s] ", nameWidth, f.LoggerName))
	b.WriteString(f.levelText(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	if len(e.Data) > 0 {
		for k, v := range e.Data {
			b.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
