package explain

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coregx/querygov/internal/plan"
)

// PostgresRunner captures plans through EXPLAIN (FORMAT JSON).
type PostgresRunner struct {
	db *sql.DB
}

// NewPostgresRunner creates a plan runner for a PostgreSQL handle.
func NewPostgresRunner(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db}
}

// EstimateRows returns the planner's top-level row estimate. The statement
// is planned but never executed.
func (r *PostgresRunner) EstimateRows(ctx context.Context, query string, args ...any) (uint64, error) {
	root, err := r.Explain(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if root.Plan == nil {
		return 0, nil
	}
	return root.Plan.PlanRows, nil
}

// Explain captures the plan without executing the statement.
func (r *PostgresRunner) Explain(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	return r.run(ctx, "EXPLAIN (FORMAT JSON) "+query, args)
}

// ExplainAnalyze executes the statement and captures actual row counts,
// per-node timings, and buffer activity alongside the estimates.
func (r *PostgresRunner) ExplainAnalyze(ctx context.Context, query string, args ...any) (*plan.Root, error) {
	return r.run(ctx, "EXPLAIN (ANALYZE, FORMAT JSON, BUFFERS) "+query, args)
}

func (r *PostgresRunner) run(ctx context.Context, explainQuery string, args []any) (*plan.Root, error) {
	var rawJSON string
	if err := r.db.QueryRowContext(ctx, explainQuery, args...).Scan(&rawJSON); err != nil {
		return nil, fmt.Errorf("run EXPLAIN: %w", err)
	}
	return parsePostgresPlan(rawJSON)
}

// pgExplainRoot mirrors one element of the array PostgreSQL emits for
// EXPLAIN (FORMAT JSON). Execution Time is present only on analyzed runs.
type pgExplainRoot struct {
	Plan          pgExplainNode `json:"Plan"`
	PlanningTime  float64       `json:"Planning Time"`
	ExecutionTime float64       `json:"Execution Time"`
}

type pgExplainNode struct {
	NodeType         string          `json:"Node Type"`
	RelationName     string          `json:"Relation Name"`
	IndexName        string          `json:"Index Name"`
	Filter           string          `json:"Filter"`
	StartupCost      float64         `json:"Startup Cost"`
	TotalCost        float64         `json:"Total Cost"`
	PlanRows         int64           `json:"Plan Rows"`
	ActualRows       int64           `json:"Actual Rows"`
	ActualLoops      int64           `json:"Actual Loops"`
	ActualTotalTime  float64         `json:"Actual Total Time"`
	SharedHitBlocks  int64           `json:"Shared Hit Blocks"`
	SharedReadBlocks int64           `json:"Shared Read Blocks"`
	Plans            []pgExplainNode `json:"Plans"`
}

func parsePostgresPlan(rawJSON string) (*plan.Root, error) {
	var payload []pgExplainRoot
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty EXPLAIN array", ErrMalformedPlan)
	}

	top := convertPostgresNode(&payload[0].Plan)
	return &plan.Root{
		Plan:            &top,
		PlanningTimeMs:  payload[0].PlanningTime,
		ExecutionTimeMs: payload[0].ExecutionTime,
	}, nil
}

func convertPostgresNode(src *pgExplainNode) plan.Node {
	n := plan.Node{
		NodeType:          src.NodeType,
		RelationName:      src.RelationName,
		IndexName:         src.IndexName,
		Filter:            src.Filter,
		TotalCost:         src.TotalCost,
		PlanRows:          clampU64(src.PlanRows),
		ActualRows:        clampU64(src.ActualRows),
		ActualLoops:       clampU64(src.ActualLoops),
		ActualTotalTimeMs: src.ActualTotalTime,
		SharedHitBlocks:   clampU64(src.SharedHitBlocks),
		SharedReadBlocks:  clampU64(src.SharedReadBlocks),
	}
	for i := range src.Plans {
		n.Children = append(n.Children, convertPostgresNode(&src.Plans[i]))
	}
	return n
}
