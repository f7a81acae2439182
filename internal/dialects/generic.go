package dialects

import "strings"

// GenericDialect is the fallback for driver names with no registered dialect.
// It uses ANSI double-quote identifier quoting and "?" placeholders, and
// reports no plan facilities.
type GenericDialect struct{}

var genericFallback = &GenericDialect{}

// Name returns "other".
func (d *GenericDialect) Name() string { return "other" }

// Engine returns EngineOther.
func (d *GenericDialect) Engine() Engine { return EngineOther }

// QuoteIdentifier quotes an identifier using ANSI double quotes.
func (d *GenericDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns the common "?" placeholder.
func (d *GenericDialect) Placeholder(_ int) string {
	return "?"
}

// SupportsRowEstimate reports false.
func (d *GenericDialect) SupportsRowEstimate() bool { return false }

// SupportsPlanCapture reports false.
func (d *GenericDialect) SupportsPlanCapture() bool { return false }
