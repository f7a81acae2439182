// Package guard screens statements before they reach the engine. It enforces
// session policy (read-only mode, destructive-statement blocking, statement
// length caps) and rejects constructs a workbench session has no business
// sending regardless of policy. It also carries the audit trail for governed
// and blocked statements.
package guard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coregx/querygov/internal/classifier"
)

// Guard check failures. Callers match with errors.Is; the returned error
// carries statement detail around the sentinel.
var (
	// ErrReadOnly reports a mutation or DDL statement in a read-only session.
	ErrReadOnly = errors.New("statement not allowed in read-only session")
	// ErrDestructive reports a statement that would destroy data wholesale.
	ErrDestructive = errors.New("destructive statement blocked")
	// ErrDangerous reports a construct that is never allowed.
	ErrDangerous = errors.New("dangerous statement construct")
)

// Policy configures which statements a session may run. The zero value
// allows everything the construct screen allows.
type Policy struct {
	// ReadOnly rejects mutations and DDL.
	ReadOnly bool
	// BlockDestructive rejects DROP and TRUNCATE, and DELETE or UPDATE
	// statements carrying no WHERE clause.
	BlockDestructive bool
	// MaxStatementLen rejects statements longer than this many bytes.
	// Zero means no length cap.
	MaxStatementLen int
}

// Guard applies a Policy to classified statements.
type Guard struct {
	policy     Policy
	constructs []construct
}

// New creates a guard enforcing the given policy. Dangerous-construct
// screening is always active; the policy controls only the read-only,
// destructive, and length rules.
func New(policy Policy) *Guard {
	return &Guard{
		policy:     policy,
		constructs: compiledConstructs,
	}
}

// construct pairs a screening pattern with the label reported when it fires.
type construct struct {
	re    *regexp.Regexp
	label string
}

// Construct patterns match the uppercased, normalized statement (comments
// stripped, string literals blanked), so a semicolon or SLEEP inside a
// string literal does not trip them.
var compiledConstructs = []construct{
	{regexp.MustCompile(`;\s*\S`), "stacked statements"},
	{regexp.MustCompile(`\bSLEEP\s*\(`), "SLEEP call"},
	{regexp.MustCompile(`\bBENCHMARK\s*\(`), "BENCHMARK call"},
	{regexp.MustCompile(`\bPG_SLEEP\s*\(`), "PG_SLEEP call"},
	{regexp.MustCompile(`\bWAITFOR\s+DELAY\b`), "WAITFOR DELAY"},
	{regexp.MustCompile(`\bINTO\s+OUTFILE\b`), "INTO OUTFILE"},
	{regexp.MustCompile(`\bINTO\s+DUMPFILE\b`), "INTO DUMPFILE"},
}

var (
	dropLead  = regexp.MustCompile(`^\s*(?:DROP|TRUNCATE)\b`)
	whereWord = regexp.MustCompile(`\bWHERE\b`)
)

// Check validates a statement against the policy. The descriptor must come
// from classifying the same SQL text. A nil error means the statement may
// proceed to the engine.
func (g *Guard) Check(_ context.Context, sql string, desc classifier.Descriptor) error {
	if g.policy.MaxStatementLen > 0 && len(sql) > g.policy.MaxStatementLen {
		return fmt.Errorf("%w: statement is %d bytes, cap is %d",
			ErrDangerous, len(sql), g.policy.MaxStatementLen)
	}

	norm := strings.ToUpper(classifier.Normalize(sql))

	if g.policy.ReadOnly && (desc.Kind.IsMutation() || desc.Kind == classifier.KindDDL) {
		return fmt.Errorf("%w: %s", ErrReadOnly, desc.Kind)
	}

	if g.policy.BlockDestructive {
		if desc.Kind == classifier.KindDDL && dropLead.MatchString(norm) {
			return fmt.Errorf("%w: DROP or TRUNCATE", ErrDestructive)
		}
		if (desc.Kind == classifier.KindDelete || desc.Kind == classifier.KindUpdate) &&
			!whereWord.MatchString(norm) {
			return fmt.Errorf("%w: %s without WHERE", ErrDestructive, desc.Kind)
		}
	}

	for _, c := range g.constructs {
		if c.re.MatchString(norm) {
			return fmt.Errorf("%w: %s", ErrDangerous, c.label)
		}
	}

	return nil
}
