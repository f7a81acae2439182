// Package explain captures execution plans and planner row estimates by
// running engine EXPLAIN variants and converting their output into the
// normalized plan node tree. It supports PostgreSQL, MySQL, and SQLite.
package explain

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/querygov/internal/dialects"
	"github.com/coregx/querygov/internal/plan"
)

var (
	// ErrPlanUnavailable reports that the connected engine exposes no plan
	// facility for the statement.
	ErrPlanUnavailable = errors.New("execution plan unavailable")

	// ErrMalformedPlan reports EXPLAIN output that did not match the shape
	// the engine documents.
	ErrMalformedPlan = errors.New("malformed EXPLAIN output")
)

// Runner captures plans and row estimates over one database handle.
//
// EstimateRows and Explain never execute the statement. ExplainAnalyze does
// execute it on engines with an analyzed EXPLAIN variant; callers gate it
// accordingly.
type Runner interface {
	// EstimateRows returns the planner's estimate of how many rows the
	// statement would produce. Engines without planner estimates report
	// 0 with a nil error.
	EstimateRows(ctx context.Context, query string, args ...any) (uint64, error)

	// Explain captures the statement's plan without executing it.
	Explain(ctx context.Context, query string, args ...any) (*plan.Root, error)

	// ExplainAnalyze captures the plan with actual execution metrics where
	// the engine supports it, falling back to the plan-only capture where
	// it does not.
	ExplainAnalyze(ctx context.Context, query string, args ...any) (*plan.Root, error)
}

// ForEngine returns the Runner for engine over db. Engines without plan
// support get a runner whose captures fail with ErrPlanUnavailable.
func ForEngine(engine dialects.Engine, db *sql.DB) Runner {
	switch engine {
	case dialects.EnginePostgres:
		return NewPostgresRunner(db)
	case dialects.EngineMySQL:
		return NewMySQLRunner(db)
	case dialects.EngineSQLite:
		return NewSQLiteRunner(db)
	default:
		return unsupportedRunner{}
	}
}

type unsupportedRunner struct{}

func (unsupportedRunner) EstimateRows(context.Context, string, ...any) (uint64, error) {
	return 0, nil
}

func (unsupportedRunner) Explain(context.Context, string, ...any) (*plan.Root, error) {
	return nil, ErrPlanUnavailable
}

func (unsupportedRunner) ExplainAnalyze(context.Context, string, ...any) (*plan.Root, error) {
	return nil, ErrPlanUnavailable
}

// clampU64 guards against engines reporting negative counters.
func clampU64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
