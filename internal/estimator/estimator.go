// Package estimator predicts how many rows a SELECT would return before it
// runs, so sessions can warn about large results up front. Estimates come
// from the engine planner via an explain.Runner; they are advisory and an
// estimation failure never blocks the statement itself.
package estimator

import (
	"context"
	"fmt"

	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/explain"
)

// DefaultLargeResultThreshold is the estimated row count above which a
// result is flagged as large.
const DefaultLargeResultThreshold = 10_000

// RowEstimate is the advisory result of one estimation. It is computed per
// request and never cached; plans shift with table statistics.
type RowEstimate struct {
	// EstimatedRows is the planner's row count prediction. Zero either
	// means a genuinely empty result or that no estimate was available.
	EstimatedRows uint64
	// IsLargeResult reports EstimatedRows above the session threshold.
	IsLargeResult bool
	// Warning carries advisory text for the workbench UI; empty means none.
	Warning string
}

// Estimator derives row estimates for SELECT statements.
type Estimator struct {
	runner    explain.Runner
	threshold uint64
}

// New creates an estimator over the given runner. A threshold of zero
// selects DefaultLargeResultThreshold.
func New(runner explain.Runner, threshold uint64) *Estimator {
	if threshold == 0 {
		threshold = DefaultLargeResultThreshold
	}
	return &Estimator{runner: runner, threshold: threshold}
}

// Threshold returns the large-result cutoff in effect.
func (e *Estimator) Threshold() uint64 {
	return e.threshold
}

// Estimate predicts the statement's result size. Non-SELECT statements
// return a zero estimate without touching the engine. Planner failures
// degrade to a zero estimate with a diagnostic warning; Estimate never
// returns an error.
func (e *Estimator) Estimate(ctx context.Context, sql string, args ...any) RowEstimate {
	desc := classifier.Classify(sql)
	return e.EstimateClassified(ctx, sql, desc, args...)
}

// EstimateClassified is Estimate for callers that already classified the
// statement, avoiding a second normalization pass.
func (e *Estimator) EstimateClassified(ctx context.Context, sql string, desc classifier.Descriptor, args ...any) RowEstimate {
	if desc.Kind != classifier.KindSelect {
		return RowEstimate{}
	}

	rows, err := e.runner.EstimateRows(ctx, sql, args...)
	if err != nil {
		return RowEstimate{
			Warning: fmt.Sprintf("row estimate unavailable: %v", err),
		}
	}

	est := RowEstimate{EstimatedRows: rows}
	if rows > e.threshold {
		est.IsLargeResult = true
		est.Warning = fmt.Sprintf("query would return approximately %d rows; consider narrowing the filter or paging", rows)
	}
	return est
}
