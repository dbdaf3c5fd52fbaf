// Package sqlite persists run summaries in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite
