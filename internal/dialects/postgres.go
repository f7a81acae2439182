package dialects

import (
	"fmt"
	"strings"
)

// PostgresDialect implements PostgreSQL-specific behavior.
type PostgresDialect struct{}

func init() {
	Register("postgres", &PostgresDialect{})
	Register("postgresql", &PostgresDialect{})
	Register("pgx", &PostgresDialect{})
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string { return "postgres" }

// Engine returns EnginePostgres.
func (d *PostgresDialect) Engine() Engine { return EnginePostgres }

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// SupportsRowEstimate reports true: EXPLAIN (FORMAT JSON) carries Plan Rows.
func (d *PostgresDialect) SupportsRowEstimate() bool { return true }

// SupportsPlanCapture reports true: EXPLAIN ANALYZE yields a full node tree.
func (d *PostgresDialect) SupportsPlanCapture() bool { return true }
