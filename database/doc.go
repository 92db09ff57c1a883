// Package database provides a uniform session and transaction API over
// PostgreSQL, MySQL, and SQLite: pooled connection management, generic `?`
// placeholder translation, bind parameter coercion, fail-fast table locks,
// catalog introspection, and a typed error taxonomy.
package database
