package dialects

import "strings"

// MySQLDialect implements MySQL-specific behavior.
type MySQLDialect struct{}

func init() {
	Register("mysql", &MySQLDialect{})
}

// Name returns "mysql".
func (d *MySQLDialect) Name() string { return "mysql" }

// Engine returns EngineMySQL.
func (d *MySQLDialect) Engine() Engine { return EngineMySQL }

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// SupportsRowEstimate reports true: EXPLAIN FORMAT=JSON carries per-step
// rows_examined_per_scan estimates.
func (d *MySQLDialect) SupportsRowEstimate() bool { return true }

// SupportsPlanCapture reports true, with the caveat that plans are estimate
// only (no actual row counts or buffer statistics).
func (d *MySQLDialect) SupportsPlanCapture() bool { return true }
