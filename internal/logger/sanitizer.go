package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// Sanitizer prepares workbench SQL and its parameters for log lines: it
// masks parameter values bound to sensitive-looking columns, truncates long
// values, and compacts multi-line SQL so one statement stays one log line.
type Sanitizer struct {
	sensitiveFields []string
	maskValue       string
	patterns        []*regexp.Regexp
}

// NewSanitizer creates a sanitizer masking parameters whenever the SQL text
// mentions one of the given field names. With no fields, a default set of
// common credential and payment column names is used.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = []string{
			"password", "passwd", "pwd",
			"token", "api_key", "apikey", "api_token",
			"secret", "auth", "authorization",
			"credit_card", "card_number", "cvv", "cvc",
			"ssn", "social_security",
			"private_key", "priv_key",
		}
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(field)+`\b`))
	}

	return &Sanitizer{
		sensitiveFields: sensitiveFields,
		maskValue:       "***REDACTED***",
		patterns:        patterns,
	}
}

// MaskParams returns a copy of params with values masked when sql mentions a
// sensitive field name. Binding positions are not parsed, so every parameter
// of such a statement is masked; a false positive costs a log detail, a false
// negative leaks a secret. The input slice is never modified.
func (s *Sanitizer) MaskParams(sql string, params []any) []any {
	if len(params) == 0 || !s.mentionsSensitiveField(sql) {
		return params
	}

	masked := make([]any, len(params))
	for i := range params {
		masked[i] = s.maskValue
	}
	return masked
}

func (s *Sanitizer) mentionsSensitiveField(sql string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// FormatParams renders parameters as one bracketed list for a log field.
// Mask first with MaskParams; FormatParams only formats.
func (s *Sanitizer) FormatParams(params []any) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = s.formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue renders one parameter, truncating very long values so a bulk
// insert cannot flood the log.
func (s *Sanitizer) formatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// compactMaxLen bounds the SQL text carried on a single log line. Workbench
// statements are user-written and can be arbitrarily large.
const compactMaxLen = 500

// CompactSQL collapses runs of whitespace to single spaces and truncates the
// result, keeping one statement to one log line.
func CompactSQL(sql string) string {
	compact := strings.Join(strings.Fields(sql), " ")
	if len(compact) > compactMaxLen {
		return compact[:compactMaxLen] + "..."
	}
	return compact
}
