package explain

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coregx/querygov/internal/plan"
)

// MySQLRunner captures plans through EXPLAIN FORMAT=JSON.
type MySQLRunner struct {
	db *sql.DB
}

// NewMySQLRunner creates a plan runner for a MySQL handle.
func NewMySQLRunner(db *sql.DB) *MySQLRunner {
	return &MySQLRunner{db: db}
}

// EstimateRows sums rows_examined_per_scan across every table access in the
// plan, an upper bound on the work the statement would do. The statement is
// planned but never executed.
func (r *MySQLRunner) EstimateRows(ctx context.Context, query string, args ...any) (uint64, error) {
	rawJSON, err := r.raw(ctx, query, args)
	if err != nil {
		return 0, err
	}

	var payload mysqlExplainRoot
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	return sumExaminedRows(&payload.QueryBlock), nil
}

// Explain captures the plan without executing the statement.
func (r *MySQLRunner) Explain(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	rawJSON, err := r.raw(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return parseMySQLPlan(rawJSON)
}

// ExplainAnalyze captures the same plan-only snapshot as Explain. MySQL's
// analyzed EXPLAIN emits an unstructured text tree rather than JSON, so the
// structured capture stays estimate-based.
func (r *MySQLRunner) ExplainAnalyze(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	return r.Explain(ctx, query, args...)
}

func (r *MySQLRunner) raw(ctx context.Context, query string, args []any) (string, error) {
	var rawJSON string
	if err := r.db.QueryRowContext(ctx, "EXPLAIN FORMAT=JSON "+query, args...).Scan(&rawJSON); err != nil {
		return "", fmt.Errorf("run EXPLAIN: %w", err)
	}
	return rawJSON, nil
}

// mysqlExplainRoot mirrors MySQL 8.0 EXPLAIN FORMAT=JSON output. The query
// block nests ordering around grouping around either a join loop or a
// single table access; nested_loop is an array of {"table": ...} wrappers.
type mysqlExplainRoot struct {
	QueryBlock mysqlQueryBlock `json:"query_block"`
}

type mysqlQueryBlock struct {
	SelectID   int             `json:"select_id"`
	CostInfo   mysqlCostInfo   `json:"cost_info"`
	Table      *mysqlTable     `json:"table"`
	NestedLoop []mysqlLoopItem `json:"nested_loop"`
	Grouping   *mysqlGrouping  `json:"grouping_operation"`
	Ordering   *mysqlOrdering  `json:"ordering_operation"`
}

type mysqlLoopItem struct {
	Table *mysqlTable `json:"table"`
}

type mysqlGrouping struct {
	UsingTemporaryTable bool            `json:"using_temporary_table"`
	UsingFilesort       bool            `json:"using_filesort"`
	Table               *mysqlTable     `json:"table"`
	NestedLoop          []mysqlLoopItem `json:"nested_loop"`
}

type mysqlOrdering struct {
	UsingFilesort bool            `json:"using_filesort"`
	Table         *mysqlTable     `json:"table"`
	NestedLoop    []mysqlLoopItem `json:"nested_loop"`
	Grouping      *mysqlGrouping  `json:"grouping_operation"`
}

type mysqlTable struct {
	TableName           string        `json:"table_name"`
	AccessType          string        `json:"access_type"`
	Key                 string        `json:"key"`
	RowsExaminedPerScan int64         `json:"rows_examined_per_scan"`
	RowsProducedPerJoin int64         `json:"rows_produced_per_join"`
	CostInfo            mysqlCostInfo `json:"cost_info"`
	AttachedCondition   string        `json:"attached_condition"`
}

// mysqlCostInfo carries cost figures, which MySQL emits as strings.
type mysqlCostInfo struct {
	QueryCost  string `json:"query_cost"`
	ReadCost   string `json:"read_cost"`
	EvalCost   string `json:"eval_cost"`
	PrefixCost string `json:"prefix_cost"`
}

func parseMySQLPlan(rawJSON string) (*plan.Root, error) {
	var payload mysqlExplainRoot
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	top := payload.QueryBlock.node()
	if top == nil {
		return nil, fmt.Errorf("%w: query_block carries no table access", ErrMalformedPlan)
	}
	if top.TotalCost == 0 {
		top.TotalCost = costValue(payload.QueryBlock.CostInfo.QueryCost)
	}
	return &plan.Root{Plan: top}, nil
}

// node unwraps the query block into a plan node, turning the ordering and
// grouping wrappers into Sort and Aggregate nodes.
func (qb *mysqlQueryBlock) node() *plan.Node {
	if qb.Ordering != nil {
		child := innerNode(qb.Ordering.Grouping, qb.Ordering.NestedLoop, qb.Ordering.Table)
		return wrapNode("Sort", child)
	}
	return innerNode(qb.Grouping, qb.NestedLoop, qb.Table)
}

func innerNode(g *mysqlGrouping, loop []mysqlLoopItem, table *mysqlTable) *plan.Node {
	if g != nil {
		return wrapNode("Aggregate", joinOrTable(g.NestedLoop, g.Table))
	}
	return joinOrTable(loop, table)
}

func joinOrTable(loop []mysqlLoopItem, table *mysqlTable) *plan.Node {
	if len(loop) > 0 {
		join := &plan.Node{NodeType: "Nested Loop"}
		for _, item := range loop {
			if item.Table == nil {
				continue
			}
			join.Children = append(join.Children, tableNode(item.Table))
		}
		if len(join.Children) > 0 {
			// The last joined table's prefix cost is the loop's cumulative cost.
			join.TotalCost = join.Children[len(join.Children)-1].TotalCost
		}
		return join
	}
	if table != nil {
		n := tableNode(table)
		return &n
	}
	return nil
}

func wrapNode(nodeType string, child *plan.Node) *plan.Node {
	if child == nil {
		return nil
	}
	return &plan.Node{
		NodeType:  nodeType,
		TotalCost: child.TotalCost,
		Children:  []plan.Node{*child},
	}
}

func tableNode(t *mysqlTable) plan.Node {
	return plan.Node{
		NodeType:     accessNodeType(t.AccessType),
		RelationName: t.TableName,
		IndexName:    t.Key,
		Filter:       t.AttachedCondition,
		PlanRows:     clampU64(t.RowsProducedPerJoin),
		TotalCost:    costValue(t.CostInfo.PrefixCost),
	}
}

func accessNodeType(accessType string) string {
	switch accessType {
	case "ALL":
		return "Table Scan"
	case "index":
		return "Index Scan"
	case "range":
		return "Index Range Scan"
	case "ref", "eq_ref":
		return "Index Lookup"
	case "const", "system":
		return "Constant Lookup"
	default:
		return "Table Access"
	}
}

func sumExaminedRows(qb *mysqlQueryBlock) uint64 {
	var total uint64

	addTable := func(t *mysqlTable) {
		if t != nil {
			total += clampU64(t.RowsExaminedPerScan)
		}
	}
	addLoop := func(items []mysqlLoopItem) {
		for _, item := range items {
			addTable(item.Table)
		}
	}
	addGrouping := func(g *mysqlGrouping) {
		if g != nil {
			addTable(g.Table)
			addLoop(g.NestedLoop)
		}
	}

	addTable(qb.Table)
	addLoop(qb.NestedLoop)
	addGrouping(qb.Grouping)
	if qb.Ordering != nil {
		addTable(qb.Ordering.Table)
		addLoop(qb.Ordering.NestedLoop)
		addGrouping(qb.Ordering.Grouping)
	}
	return total
}

func costValue(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
