// Package classifier inspects raw SQL text and produces a structured
// descriptor: statement kind, any trailing LIMIT/OFFSET clause, and
// UNION/CTE/subquery flags. It relies on keyword patterns over normalized
// text rather than a grammar; the descriptor isolates that choice so a full
// parser could be substituted without changing callers.
package classifier

import (
	"regexp"
	"strconv"
)

// Descriptor describes one SQL statement. It is a plain value, recomputed on
// every Classify call and never cached.
type Descriptor struct {
	// Kind is the statement category derived from the leading keyword.
	Kind Kind
	// HasLimit reports a trailing LIMIT clause; Limit holds its row count.
	HasLimit bool
	Limit    uint64
	// HasOffset reports a trailing OFFSET, either via the OFFSET keyword or
	// the two-argument LIMIT form; Offset holds its value.
	HasOffset bool
	Offset    uint64
	// IsUnion reports a UNION keyword anywhere outside strings and comments.
	IsUnion bool
	// HasCTE reports a statement starting with WITH.
	HasCTE bool
	// HasSubquery reports more than one SELECT keyword in the statement.
	HasSubquery bool
}

var (
	selectLead = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	insertLead = regexp.MustCompile(`(?i)^\s*INSERT\b`)
	updateLead = regexp.MustCompile(`(?i)^\s*UPDATE\b`)
	deleteLead = regexp.MustCompile(`(?i)^\s*DELETE\b`)
	ddlLead    = regexp.MustCompile(`(?i)^\s*(?:CREATE|ALTER|DROP|TRUNCATE)\b`)
	withLead   = regexp.MustCompile(`(?i)^\s*WITH\b`)

	selectWord = regexp.MustCompile(`(?i)\bSELECT\b`)
	unionWord  = regexp.MustCompile(`(?i)\bUNION\b`)

	// Trailing clause forms, anchored to the (optionally semicolon-terminated)
	// end of the statement. The two-argument form is MySQL's LIMIT offset, count.
	limitPairTail  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*,\s*(\d+)\s*;?\s*$`)
	limitTail      = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)(?:\s+OFFSET\s+(\d+))?\s*;?\s*$`)
	bareOffsetTail = regexp.MustCompile(`(?i)\bOFFSET\s+(\d+)\s*;?\s*$`)
)

// Classify inspects a single SQL statement and returns its descriptor.
// It never fails: text matching no known pattern is KindOther. A trailing
// semicolon does not change the result.
func Classify(sql string) Descriptor {
	norm := Normalize(sql)

	d := Descriptor{
		Kind:        detectKind(norm),
		IsUnion:     unionWord.MatchString(norm),
		HasCTE:      withLead.MatchString(norm),
		HasSubquery: len(selectWord.FindAllStringIndex(norm, -1)) > 1,
	}

	// Two-argument form wins only when the comma is present.
	if m := limitPairTail.FindStringSubmatch(norm); m != nil {
		d.HasLimit = true
		d.HasOffset = true
		d.Offset = parseCount(m[1])
		d.Limit = parseCount(m[2])
		return d
	}
	if m := limitTail.FindStringSubmatch(norm); m != nil {
		d.HasLimit = true
		d.Limit = parseCount(m[1])
		if m[2] != "" {
			d.HasOffset = true
			d.Offset = parseCount(m[2])
		}
		return d
	}
	if m := bareOffsetTail.FindStringSubmatch(norm); m != nil {
		d.HasOffset = true
		d.Offset = parseCount(m[1])
	}
	return d
}

func detectKind(norm string) Kind {
	switch {
	case selectLead.MatchString(norm):
		return KindSelect
	case insertLead.MatchString(norm):
		return KindInsert
	case updateLead.MatchString(norm):
		return KindUpdate
	case deleteLead.MatchString(norm):
		return KindDelete
	case ddlLead.MatchString(norm):
		return KindDDL
	case withLead.MatchString(norm) && selectWord.MatchString(norm):
		// CTE wrapping a read.
		return KindSelect
	default:
		return KindOther
	}
}

// parseCount converts matched digits to uint64. Values beyond the uint64
// range saturate at the maximum rather than failing the match.
func parseCount(digits string) uint64 {
	n, _ := strconv.ParseUint(digits, 10, 64)
	return n
}
