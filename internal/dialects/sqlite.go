package dialects

import "strings"

// SQLiteDialect implements SQLite-specific behavior.
type SQLiteDialect struct{}

func init() {
	Register("sqlite", &SQLiteDialect{})
	Register("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string { return "sqlite" }

// Engine returns EngineSQLite.
func (d *SQLiteDialect) Engine() Engine { return EngineSQLite }

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns SQLite placeholder format (always "?").
func (d *SQLiteDialect) Placeholder(_ int) string {
	return "?"
}

// SupportsRowEstimate reports false: EXPLAIN QUERY PLAN describes strategy,
// not cardinality.
func (d *SQLiteDialect) SupportsRowEstimate() bool { return false }

// SupportsPlanCapture reports true: EXPLAIN QUERY PLAN rows rebuild into a tree.
func (d *SQLiteDialect) SupportsPlanCapture() bool { return true }
