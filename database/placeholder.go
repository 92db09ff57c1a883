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

import "strings"

// convertPlaceholders rewrites generic `?` placeholders into the marker the
// backend expects, numbering them left to right starting at 1. The scan
// tracks single-quoted string literals so a `?` inside a literal is never
// rewritten. A doubled quote ('') inside a literal is the SQL escape for a
// single quote and does not terminate the literal.
func convertPlaceholders(query string, marker func(ordinal int) string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	inLiteral := false
	ordinal := 0
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			if inLiteral && i+1 < len(query) && query[i+1] == '\'' {
				// escaped quote, stay inside the literal
				b.WriteByte(ch)
				b.WriteByte(query[i+1])
				i++
				continue
			}
			inLiteral = !inLiteral
			b.WriteByte(ch)
		case ch == '?' && !inLiteral:
			ordinal++
			b.WriteString(marker(ordinal))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
