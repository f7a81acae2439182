package classifier

import "strings"

// Normalize prepares SQL text for keyword matching: line and block comments
// are replaced with a single space, and the contents of string literals and
// quoted identifiers are blanked while the surrounding quotes are kept.
// Doubled quotes inside a literal ('it''s') are treated as escapes.
//
// The result is only used for matching; the original text is always what gets
// executed or rewritten.
func Normalize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		c := sql[i]

		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			// Line comment: skip to end of line.
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			b.WriteByte(' ')

		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			// Block comment: skip to closing marker (or end of text).
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < len(sql) {
				i += 2
			} else {
				i = len(sql)
			}
			b.WriteByte(' ')

		case c == '\'' || c == '"' || c == '`':
			// Quoted region: keep the quotes, drop the contents.
			quote := c
			b.WriteByte(quote)
			i++
			for i < len(sql) {
				if sql[i] == quote {
					if i+1 < len(sql) && sql[i+1] == quote {
						i += 2 // escaped quote, still inside
						continue
					}
					break
				}
				i++
			}
			if i < len(sql) {
				b.WriteByte(quote)
				i++
			}

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}
