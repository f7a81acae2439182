// Package limiter rewrites SELECT statements to bound their result size by
// injecting or replacing a trailing LIMIT/OFFSET clause. Only the outermost
// statement's trailing clause region is touched; subqueries, CTE bodies, and
// UNION branches are never rewritten.
package limiter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coregx/querygov/internal/classifier"
)

// Result describes the outcome of a limit rewrite.
type Result struct {
	// SQL is the statement to execute, possibly unchanged.
	SQL string
	// WasLimited reports that SQL differs from the input by exactly one
	// trailing LIMIT/OFFSET insertion or replacement. Never true for
	// non-SELECT statements.
	WasLimited bool
	// HasOriginalLimit and OriginalLimit report a LIMIT that was already
	// present in the input, whether or not it was replaced.
	HasOriginalLimit bool
	OriginalLimit    uint64
	// AppliedLimit and AppliedOffset are the bounds in effect after the call:
	// the injected values when a rewrite happened, or the pre-existing ones
	// when an existing clause was preserved.
	AppliedLimit  uint64
	AppliedOffset uint64
}

var (
	limitClauseTail  = regexp.MustCompile(`(?i)\s*\bLIMIT\s+\d+(?:\s*,\s*\d+|\s+OFFSET\s+\d+)?\s*$`)
	offsetClauseTail = regexp.MustCompile(`(?i)\s*\bOFFSET\s+\d+\s*$`)
)

// Apply classifies sql and injects a trailing LIMIT/OFFSET bound for SELECT
// statements lacking one. An existing LIMIT is preserved unless force is set,
// in which case it is replaced. Apply never fails: anything that cannot be
// rewritten safely is returned unchanged. A limit of 0 is legal and produces
// LIMIT 0.
func Apply(sql string, limit, offset uint64, force bool) Result {
	return Rewrite(sql, classifier.Classify(sql), limit, offset, force)
}

// Rewrite is Apply for callers that already classified the statement.
func Rewrite(sql string, desc classifier.Descriptor, limit, offset uint64, force bool) Result {
	if desc.Kind != classifier.KindSelect {
		return Result{SQL: sql}
	}

	if desc.HasLimit && !force {
		return Result{
			SQL:              sql,
			HasOriginalLimit: true,
			OriginalLimit:    desc.Limit,
			AppliedLimit:     desc.Limit,
			AppliedOffset:    desc.Offset,
		}
	}

	base, hadSemicolon := splitSemicolon(sql)

	// Replacement under force strips the old clause first. A bare trailing
	// OFFSET without force is left alone; the appended LIMIT composes with it.
	if desc.HasLimit || (force && desc.HasOffset) {
		stripped, ok := stripTrailingClause(base, desc)
		if !ok {
			// The descriptor saw a clause the strip pattern cannot isolate
			// (for example a comment after it). An unmodified query is safer
			// than a malformed one.
			return Result{SQL: sql}
		}
		base = stripped
	}

	if offset > 0 {
		base += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	} else {
		base += fmt.Sprintf(" LIMIT %d", limit)
	}
	if hadSemicolon {
		base += ";"
	}

	res := Result{
		SQL:           base,
		WasLimited:    true,
		AppliedLimit:  limit,
		AppliedOffset: offset,
	}
	if desc.HasLimit {
		res.HasOriginalLimit = true
		res.OriginalLimit = desc.Limit
	}
	return res
}

// splitSemicolon removes a single trailing semicolon (and surrounding
// whitespace) and reports whether one was present, so it can be restored
// after the clause is appended.
func splitSemicolon(sql string) (string, bool) {
	trimmed := strings.TrimRight(sql, " \t\r\n")
	if strings.HasSuffix(trimmed, ";") {
		return strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n"), true
	}
	return trimmed, false
}

// stripTrailingClause removes the trailing LIMIT/OFFSET clause the descriptor
// reported, in either dialect form. It operates on the original text, so a
// clause the end-anchored patterns cannot find (the descriptor matches on
// normalized text) reports false.
func stripTrailingClause(sql string, desc classifier.Descriptor) (string, bool) {
	if desc.HasLimit {
		if loc := limitClauseTail.FindStringIndex(sql); loc != nil {
			return sql[:loc[0]], true
		}
		return sql, false
	}
	// Bare trailing OFFSET without a LIMIT.
	if loc := offsetClauseTail.FindStringIndex(sql); loc != nil {
		return sql[:loc[0]], true
	}
	return sql, false
}
