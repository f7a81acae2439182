package explain

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/coregx/querygov/internal/plan"
)

// SQLiteRunner captures plans through EXPLAIN QUERY PLAN. SQLite publishes
// no planner row estimates and has no analyzed EXPLAIN variant, so
// EstimateRows reports zero and ExplainAnalyze returns the same structural
// capture as Explain.
type SQLiteRunner struct {
	db *sql.DB
}

// NewSQLiteRunner creates a plan runner for a SQLite handle.
func NewSQLiteRunner(db *sql.DB) *SQLiteRunner {
	return &SQLiteRunner{db: db}
}

// EstimateRows reports zero with no error; SQLite's planner does not expose
// row estimates.
func (r *SQLiteRunner) EstimateRows(context.Context, string, ...any) (uint64, error) {
	return 0, nil
}

// Explain captures the statement's plan without executing it.
func (r *SQLiteRunner) Explain(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	rows, err := r.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return nil, fmt.Errorf("run EXPLAIN QUERY PLAN: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// EXPLAIN QUERY PLAN returns 4 columns: id, parent, notused, detail.
	var entries []eqpRow
	for rows.Next() {
		var e eqpRow
		var notused int
		if err := rows.Scan(&e.id, &e.parent, &notused, &e.detail); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read EXPLAIN QUERY PLAN: %w", err)
	}

	return buildSQLitePlan(entries)
}

// ExplainAnalyze returns the same structural capture as Explain.
func (r *SQLiteRunner) ExplainAnalyze(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	return r.Explain(ctx, query, args...)
}

// eqpRow is one EXPLAIN QUERY PLAN row; id and parent link rows into a tree.
type eqpRow struct {
	id     int
	parent int
	detail string
}

type eqpTreeNode struct {
	row      eqpRow
	children []*eqpTreeNode
}

// buildSQLitePlan links rows by parent id. Rows referencing an unseen parent
// (the top level uses parent 0) become roots; multiple roots are wrapped in
// a synthetic Query node so the result is always a single tree.
func buildSQLitePlan(entries []eqpRow) (*plan.Root, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: EXPLAIN QUERY PLAN returned no rows", ErrMalformedPlan)
	}

	byID := make(map[int]*eqpTreeNode, len(entries))
	var roots []*eqpTreeNode
	for _, e := range entries {
		n := &eqpTreeNode{row: e}
		byID[e.id] = n
		if parent, ok := byID[e.parent]; ok {
			parent.children = append(parent.children, n)
		} else {
			roots = append(roots, n)
		}
	}

	var top plan.Node
	if len(roots) == 1 {
		top = convertSQLiteNode(roots[0])
	} else {
		top = plan.Node{NodeType: "Query"}
		for _, r := range roots {
			top.Children = append(top.Children, convertSQLiteNode(r))
		}
	}
	return &plan.Root{Plan: &top}, nil
}

func convertSQLiteNode(n *eqpTreeNode) plan.Node {
	out := nodeFromDetail(n.row.detail)
	for _, c := range n.children {
		out.Children = append(out.Children, convertSQLiteNode(c))
	}
	return out
}

// nodeFromDetail maps EXPLAIN QUERY PLAN detail text onto a plan node.
// Representative details:
//
//	SCAN users
//	SCAN users USING COVERING INDEX idx_users_email
//	SEARCH users USING INDEX idx_users_email (email=?)
//	SEARCH users USING INTEGER PRIMARY KEY (rowid=?)
//	USE TEMP B-TREE FOR ORDER BY
func nodeFromDetail(detail string) plan.Node {
	trimmed := strings.TrimSpace(detail)
	upper := strings.ToUpper(trimmed)

	n := plan.Node{Filter: parenCondition(trimmed)}

	switch {
	case strings.HasPrefix(upper, "SEARCH "):
		n.NodeType = "Index Search"
		n.RelationName = relationFromDetail(trimmed)
		n.IndexName = indexFromDetail(trimmed)
		if n.IndexName == "" {
			n.NodeType = "Search"
		}
	case strings.HasPrefix(upper, "SCAN "):
		n.RelationName = relationFromDetail(trimmed)
		n.IndexName = indexFromDetail(trimmed)
		if n.IndexName != "" {
			n.NodeType = "Index Scan"
		} else {
			n.NodeType = "Scan"
		}
	case strings.HasPrefix(upper, "USE TEMP B-TREE"):
		n.NodeType = "Sort"
	case strings.HasPrefix(upper, "MATERIALIZE"):
		n.NodeType = "Materialize"
	case strings.HasPrefix(upper, "CO-ROUTINE") || strings.Contains(upper, "SUBQUERY"):
		n.NodeType = "Subquery"
	case strings.HasPrefix(upper, "COMPOUND") || strings.HasPrefix(upper, "UNION") || strings.HasPrefix(upper, "MERGE"):
		n.NodeType = "Union"
	default:
		n.NodeType = trimmed
	}

	return n
}

// relationFromDetail returns the table name following SCAN or SEARCH.
// Releases before SQLite 3.36 insert the TABLE keyword first.
func relationFromDetail(detail string) string {
	fields := strings.Fields(detail)
	if len(fields) < 2 {
		return ""
	}
	name := fields[1]
	if strings.EqualFold(name, "TABLE") && len(fields) > 2 {
		name = fields[2]
	}
	return firstWord(name)
}

// indexFromDetail extracts the index name from a USING clause.
func indexFromDetail(detail string) string {
	upper := strings.ToUpper(detail)

	for _, marker := range []string{"USING COVERING INDEX ", "USING INDEX "} {
		if idx := strings.Index(upper, marker); idx != -1 {
			return firstWord(detail[idx+len(marker):])
		}
	}
	if strings.Contains(upper, "USING INTEGER PRIMARY KEY") {
		return "PRIMARY KEY"
	}
	if strings.Contains(upper, "USING AUTOMATIC") {
		return "AUTOMATIC INDEX"
	}
	return ""
}

// parenCondition returns the trailing parenthesized constraint, if any.
// "SEARCH users USING INDEX idx (email=?)" yields "email=?".
func parenCondition(detail string) string {
	if !strings.HasSuffix(detail, ")") {
		return ""
	}
	open := strings.LastIndex(detail, "(")
	if open == -1 {
		return ""
	}
	return detail[open+1 : len(detail)-1]
}

// firstWord returns s up to the first space or opening parenthesis.
func firstWord(s string) string {
	s = strings.TrimSpace(s)
	end := len(s)
	for i, ch := range s {
		if ch == ' ' || ch == '(' {
			end = i
			break
		}
	}
	return s[:end]
}
