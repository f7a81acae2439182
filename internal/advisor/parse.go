package advisor

import (
	"regexp"
	"strings"
)

// The extraction here is deliberately shallow: it reads the common shapes a
// workbench produces (single-table SELECT with a WHERE and maybe an ORDER
// BY) and returns nothing for statements it cannot read confidently. A
// missing recommendation is always safe; a wrong one is not.
var (
	fromTableRe = regexp.MustCompile(`\bfrom\s+([a-z_][a-z0-9_]*)\b`)
	whereCondRe = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*(?:>=|<=|!=|<>|=|>|<|\blike\b|\bin\b|\bbetween\b)`)
	orderColRe  = regexp.MustCompile(`\b([a-z_][a-z0-9_.]*)\b`)
)

var sqlKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "null": true,
	"true": true, "false": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "exists": true,
	"select": true, "where": true, "from": true,
	"asc": true, "desc": true,
}

// tableName extracts the first relation named in FROM. Joined statements
// yield the first relation, which is where a filter index usually belongs.
func tableName(sqlText string) string {
	m := fromTableRe.FindStringSubmatch(strings.ToLower(sqlText))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// whereColumns extracts candidate filter columns from the WHERE clause in
// appearance order, deduplicated.
func whereColumns(sqlText string) []string {
	clause := clauseBetween(strings.ToLower(sqlText), " where ", []string{" group by", " order by", " limit", " having", ";"})
	if clause == "" {
		return nil
	}

	seen := make(map[string]bool)
	var cols []string
	for _, m := range whereCondRe.FindAllStringSubmatch(clause, -1) {
		col := unqualify(m[1])
		if sqlKeywords[col] || seen[col] {
			continue
		}
		cols = append(cols, col)
		seen[col] = true
	}
	return cols
}

// orderByColumns extracts the ORDER BY columns in order, deduplicated.
func orderByColumns(sqlText string) []string {
	clause := clauseBetween(strings.ToLower(sqlText), " order by ", []string{" limit", " offset", ";"})
	if clause == "" {
		return nil
	}

	seen := make(map[string]bool)
	var cols []string
	for _, part := range strings.Split(clause, ",") {
		m := orderColRe.FindStringSubmatch(strings.TrimSpace(part))
		if len(m) < 2 {
			continue
		}
		col := unqualify(m[1])
		if sqlKeywords[col] || seen[col] {
			continue
		}
		cols = append(cols, col)
		seen[col] = true
	}
	return cols
}

// clauseBetween returns the text after the first occurrence of start, cut at
// the earliest terminator.
func clauseBetween(sqlText, start string, terminators []string) string {
	idx := strings.Index(sqlText, start)
	if idx == -1 {
		return ""
	}
	clause := sqlText[idx+len(start):]
	for _, term := range terminators {
		if i := strings.Index(clause, term); i != -1 {
			clause = clause[:i]
		}
	}
	return strings.TrimSpace(clause)
}

// unqualify strips a table or schema qualifier, u.id -> id.
func unqualify(col string) string {
	parts := strings.Split(col, ".")
	return parts[len(parts)-1]
}
